package clnet

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// Sender writes client packets, dropping any the limiter refuses.
type Sender struct {
	mu      sync.Mutex
	w       io.Writer
	limiter *Limiter
	now     func() time.Time
	dropped int
}

// NewSender wraps w. A nil limiter sends everything.
func NewSender(w io.Writer, limiter *Limiter) *Sender {
	return &Sender{w: w, limiter: limiter, now: time.Now}
}

// SetClock replaces the time source used for rate limiting. Replays drive
// it from capture timestamps.
func (s *Sender) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Send writes pkt unless its opcode is over the limit. It returns false when
// the packet was dropped.
func (s *Sender) Send(pkt []byte) (bool, error) {
	if len(pkt) < 2 {
		return false, ErrShortPacket
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.limiter.Allow(binary.LittleEndian.Uint16(pkt), s.now()) {
		s.dropped++
		return false, nil
	}
	if s.w == nil {
		return true, nil
	}
	if err := WriteFull(s.w, pkt); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFull writes pkt to w, retrying partial writes. A writer that makes
// no progress fails with io.ErrShortWrite.
func WriteFull(w io.Writer, pkt []byte) error {
	for off := 0; off < len(pkt); {
		n, err := w.Write(pkt[off:])
		if err != nil {
			return fmt.Errorf("write packet %#04x: %w", binary.LittleEndian.Uint16(pkt), err)
		}
		if n <= 0 {
			return fmt.Errorf("write packet %#04x: %w", binary.LittleEndian.Uint16(pkt), io.ErrShortWrite)
		}
		off += n
	}
	return nil
}

// Dropped returns how many packets the limiter refused.
func (s *Sender) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// RequestName asks the server for the name of being id.
func (s *Sender) RequestName(id uint32) (bool, error) {
	return s.Send(NewMessageOut(CMSGNameRequest).WriteInt32(int32(id)).Bytes())
}
