package clnet

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

// HandlerFunc consumes one packet. Handlers never fail: anything they cannot
// apply is dropped and the next packet is processed.
type HandlerFunc func(*MessageIn)

type handler struct {
	name string
	fn   HandlerFunc
}

// PacketStat counts traffic for one opcode.
type PacketStat struct {
	Op      uint16
	Name    string
	Count   int
	Bytes   int
	Handled bool
}

// Dispatcher routes framed packets to the handler registered for their
// opcode. Packets are handled synchronously in arrival order.
type Dispatcher struct {
	handlers map[uint16]handler
	stats    map[uint16]*PacketStat
	charset  *charmap.Charmap
	log      *zap.SugaredLogger
	noisy    *rate.Limiter
}

// NewDispatcher creates a dispatcher that decodes strings with charset.
func NewDispatcher(charset *charmap.Charmap, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		handlers: make(map[uint16]handler),
		stats:    make(map[uint16]*PacketStat),
		charset:  charset,
		log:      log,
		noisy:    rate.NewLimiter(rate.Limit(2), 10),
	}
}

// Register installs fn for op, replacing any earlier handler.
func (d *Dispatcher) Register(op uint16, name string, fn HandlerFunc) {
	d.handlers[op] = handler{name: name, fn: fn}
}

// Handles reports whether op has a handler.
func (d *Dispatcher) Handles(op uint16) bool {
	_, ok := d.handlers[op]
	return ok
}

// Dispatch hands one complete packet to its handler. It reports whether a
// handler ran.
func (d *Dispatcher) Dispatch(pkt []byte) bool {
	m := NewMessageIn(pkt, d.charset, d.log)
	op := m.Op()
	h, ok := d.handlers[op]

	st := d.stats[op]
	if st == nil {
		st = &PacketStat{Op: op, Name: h.name, Handled: ok}
		d.stats[op] = st
	}
	st.Count++
	st.Bytes += len(pkt)

	if !ok {
		if d.noisy.Allow() {
			d.log.Debugf("unimplemented packet %#04x len %d", op, len(pkt))
		}
		return false
	}
	h.fn(m)
	if m.Short() {
		d.log.Warnf("%s: packet %#04x ended early (len %d)", h.name, op, len(pkt))
	} else if n := m.Unread(); n > 0 {
		d.log.Debugf("%s: %d bytes left unread", h.name, n)
	}
	return true
}

// Stats returns per-opcode counters sorted by opcode.
func (d *Dispatcher) Stats() []PacketStat {
	out := make([]PacketStat, 0, len(d.stats))
	for _, st := range d.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}
