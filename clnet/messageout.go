package clnet

import "encoding/binary"

// MessageOut builds a little-endian packet. It is used for client requests
// and for composing server packets in replays and tests.
type MessageOut struct {
	buf      []byte
	variable bool
}

// NewMessageOut starts a fixed size packet.
func NewMessageOut(op uint16) *MessageOut {
	m := &MessageOut{buf: make([]byte, 2, 32)}
	binary.LittleEndian.PutUint16(m.buf, op)
	return m
}

// NewVariableMessageOut starts a packet whose length field is filled in by
// Bytes.
func NewVariableMessageOut(op uint16) *MessageOut {
	m := NewMessageOut(op)
	m.variable = true
	m.buf = append(m.buf, 0, 0)
	return m
}

func (m *MessageOut) WriteInt8(v uint8) *MessageOut {
	m.buf = append(m.buf, v)
	return m
}

func (m *MessageOut) WriteInt16(v int16) *MessageOut {
	m.buf = binary.LittleEndian.AppendUint16(m.buf, uint16(v))
	return m
}

func (m *MessageOut) WriteInt32(v int32) *MessageOut {
	m.buf = binary.LittleEndian.AppendUint32(m.buf, uint32(v))
	return m
}

func (m *MessageOut) WriteBytes(b []byte) *MessageOut {
	m.buf = append(m.buf, b...)
	return m
}

// WriteString writes s NUL padded or truncated to exactly n bytes.
func (m *MessageOut) WriteString(s string, n int) *MessageOut {
	b := make([]byte, n)
	copy(b, s)
	m.buf = append(m.buf, b...)
	return m
}

// WriteCoordinates packs a position as read by MessageIn.ReadCoordinates.
func (m *MessageOut) WriteCoordinates(x, y uint16, dir uint8) *MessageOut {
	m.buf = append(m.buf,
		byte(x>>2),
		byte((x&0x03)<<6|(y>>4)&0x3f),
		byte((y&0x0f)<<4|uint16(dir&0x0f)),
	)
	return m
}

// WriteCoordinatePair packs a walk as read by MessageIn.ReadCoordinatePair.
func (m *MessageOut) WriteCoordinatePair(srcX, srcY, dstX, dstY uint16) *MessageOut {
	m.buf = append(m.buf,
		byte(srcX>>2),
		byte((srcX&0x03)<<6|(srcY>>4)&0x3f),
		byte((srcY&0x0f)<<4|(dstX>>6)&0x0f),
		byte((dstX&0x3f)<<2|(dstY>>8)&0x03),
		byte(dstY),
	)
	return m
}

// Bytes returns the packet, patching the length of variable packets.
func (m *MessageOut) Bytes() []byte {
	if m.variable {
		binary.LittleEndian.PutUint16(m.buf[2:], uint16(len(m.buf)))
	}
	return m.buf
}
