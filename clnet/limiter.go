package clnet

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimits caps how often the client sends each request type. The
// server kicks clients that flood it.
var DefaultLimits = map[uint16]time.Duration{
	CMSGNameRequest: 100 * time.Millisecond,
}

// Limiter gates outgoing packets per opcode.
type Limiter struct {
	limits map[uint16]*rate.Limiter
}

// NewLimiter builds a limiter allowing one packet of each opcode per
// interval. Opcodes without an entry are never limited.
func NewLimiter(limits map[uint16]time.Duration) *Limiter {
	l := &Limiter{limits: make(map[uint16]*rate.Limiter, len(limits))}
	for op, every := range limits {
		l.limits[op] = rate.NewLimiter(rate.Every(every), 1)
	}
	return l
}

// Allow reports whether op may be sent at now, consuming a token if so.
func (l *Limiter) Allow(op uint16, now time.Time) bool {
	if l == nil {
		return true
	}
	lim, ok := l.limits[op]
	if !ok {
		return true
	}
	return lim.AllowN(now, 1)
}
