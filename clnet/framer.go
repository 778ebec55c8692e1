package clnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnknownPacket is returned for opcodes missing from the length
	// table. The stream cannot be resynchronised after one.
	ErrUnknownPacket = errors.New("unknown packet")
	// ErrShortPacket is returned when a variable packet declares a length
	// smaller than its own header.
	ErrShortPacket = errors.New("packet shorter than its header")
)

// frameSize inspects the start of buf and returns the full size of the
// packet there, or 0 when more bytes are needed.
func frameSize(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, nil
	}
	op := binary.LittleEndian.Uint16(buf)
	n, variable, ok := PacketLength(op)
	if !ok {
		return 0, fmt.Errorf("%w: %#04x", ErrUnknownPacket, op)
	}
	if !variable {
		return n, nil
	}
	if len(buf) < 4 {
		return 0, nil
	}
	n = int(binary.LittleEndian.Uint16(buf[2:]))
	if n < 4 {
		return 0, fmt.Errorf("%w: %#04x declares %d bytes", ErrShortPacket, op, n)
	}
	return n, nil
}

// Framer splits an arbitrarily chunked server stream into packets.
type Framer struct {
	buf []byte
}

// Feed appends stream bytes.
func (f *Framer) Feed(b []byte) {
	f.buf = append(f.buf, b...)
}

// Buffered returns the number of bytes waiting for a complete packet.
func (f *Framer) Buffered() int { return len(f.buf) }

// Next returns the next complete packet. It returns nil, nil when more data
// is needed.
func (f *Framer) Next() ([]byte, error) {
	n, err := frameSize(f.buf)
	if err != nil || n == 0 || len(f.buf) < n {
		return nil, err
	}
	pkt := append([]byte(nil), f.buf[:n]...)
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
	return pkt, nil
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:2]); err != nil {
		return nil, err
	}
	n, err := frameSize(hdr[:2])
	if err != nil {
		return nil, err
	}
	have := 2
	if n == 0 {
		if _, err := io.ReadFull(r, hdr[2:4]); err != nil {
			return nil, fmt.Errorf("read packet length: %w", err)
		}
		have = 4
		if n, err = frameSize(hdr[:4]); err != nil {
			return nil, err
		}
	}
	pkt := make([]byte, n)
	copy(pkt, hdr[:have])
	if n > have {
		if _, err := io.ReadFull(r, pkt[have:]); err != nil {
			return nil, fmt.Errorf("read packet %#04x body: %w", binary.LittleEndian.Uint16(pkt), err)
		}
	}
	return pkt, nil
}
