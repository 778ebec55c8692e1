package clnet

import (
	"bytes"
	"encoding/binary"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// MessageIn reads little-endian fields from one framed server packet. Reads
// past the end return zero values and mark the message short instead of
// failing, so handlers always run to completion.
type MessageIn struct {
	data    []byte
	pos     int
	short   bool
	charset *charmap.Charmap
	log     *zap.SugaredLogger
}

// NewMessageIn wraps a complete packet, opcode included. The read position
// starts after the opcode.
func NewMessageIn(packet []byte, charset *charmap.Charmap, log *zap.SugaredLogger) *MessageIn {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &MessageIn{data: packet, charset: charset, log: log}
	if len(packet) < 2 {
		m.short = true
		m.pos = len(packet)
		return m
	}
	m.pos = 2
	return m
}

// Op returns the packet opcode.
func (m *MessageIn) Op() uint16 {
	if len(m.data) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(m.data)
}

// Len is the full packet length including the opcode.
func (m *MessageIn) Len() int { return len(m.data) }

// Unread returns how many bytes are left.
func (m *MessageIn) Unread() int {
	if m.pos >= len(m.data) {
		return 0
	}
	return len(m.data) - m.pos
}

// Short reports whether any read ran past the end of the packet.
func (m *MessageIn) Short() bool { return m.short }

func (m *MessageIn) take(n int, name string) []byte {
	if n < 0 || m.pos+n > len(m.data) {
		m.short = true
		m.pos = len(m.data)
		m.log.Debugf("packet %#04x: short read of %q (%d bytes)", m.Op(), name, n)
		return nil
	}
	b := m.data[m.pos : m.pos+n]
	m.pos += n
	return b
}

func (m *MessageIn) ReadUInt8(name string) uint8 {
	b := m.take(1, name)
	if b == nil {
		return 0
	}
	m.log.Debugf("%s: %d", name, b[0])
	return b[0]
}

func (m *MessageIn) ReadInt16(name string) int16 {
	b := m.take(2, name)
	if b == nil {
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(b))
	m.log.Debugf("%s: %d", name, v)
	return v
}

func (m *MessageIn) ReadUInt16(name string) uint16 {
	return uint16(m.ReadInt16(name))
}

func (m *MessageIn) ReadInt32(name string) int32 {
	b := m.take(4, name)
	if b == nil {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(b))
	m.log.Debugf("%s: %d", name, v)
	return v
}

func (m *MessageIn) ReadUInt32(name string) uint32 {
	return uint32(m.ReadInt32(name))
}

// ReadBytes returns a copy of the next n bytes, or nil when fewer remain.
func (m *MessageIn) ReadBytes(n int, name string) []byte {
	b := m.take(n, name)
	if b == nil {
		return nil
	}
	m.log.Debugf("%s: % x", name, b)
	return append([]byte(nil), b...)
}

// Skip advances over n bytes.
func (m *MessageIn) Skip(n int, name string) {
	m.take(n, name)
}

// ReadString reads a fixed width, NUL padded string and decodes it with the
// server charset.
func (m *MessageIn) ReadString(n int, name string) string {
	b := m.take(n, name)
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s := string(b)
	if m.charset != nil {
		if dec, err := m.charset.NewDecoder().Bytes(b); err == nil {
			s = string(dec)
		}
	}
	m.log.Debugf("%s: %q", name, s)
	return s
}

// ReadCoordinates unpacks a 3 byte position: 10 bits x, 10 bits y and a 4 bit
// server direction.
func (m *MessageIn) ReadCoordinates(name string) (x, y uint16, dir uint8) {
	b := m.take(3, name)
	if b == nil {
		return 0, 0, 0
	}
	x = uint16(b[0])<<2 | uint16(b[1]&0xc0)>>6
	y = uint16(b[1]&0x3f)<<4 | uint16(b[2])>>4
	dir = b[2] & 0x0f
	m.log.Debugf("%s: %d,%d dir %d", name, x, y, dir)
	return x, y, dir
}

// ReadCoordinatePair unpacks the 5 byte source and destination of a walk.
func (m *MessageIn) ReadCoordinatePair(name string) (srcX, srcY, dstX, dstY uint16) {
	b := m.take(5, name)
	if b == nil {
		return 0, 0, 0, 0
	}
	srcX = (uint16(b[0])<<8 | uint16(b[1])) >> 6
	srcY = (uint16(b[1]&0x3f)<<8 | uint16(b[2])) >> 4
	dstX = (uint16(b[2]&0x0f)<<8 | uint16(b[3])) >> 2
	dstY = uint16(b[3]&0x03)<<8 | uint16(b[4])
	m.log.Debugf("%s: %d,%d -> %d,%d", name, srcX, srcY, dstX, dstY)
	return srcX, srcY, dstX, dstY
}
