package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/remeh/sizedwaitgroup"
	"gorm.io/gorm"
)

// packetSource is satisfied by both pcap and pcapng readers.
type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func openCapture(path string) (packetSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if r, err := pcapgo.NewReader(f); err == nil {
		return r, f, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	ng, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s is neither pcap nor pcapng: %w", path, err)
	}
	return ng, f, nil
}

type flowKey struct {
	net, transport gopacket.Flow
}

// tcpStream reorders the segments of one server to client TCP flow.
// Retransmitted bytes are dropped.
type tcpStream struct {
	s       *session
	started bool
	next    uint32
	pending map[uint32][]byte
}

func (t *tcpStream) segment(tcp *layers.TCP, ci gopacket.CaptureInfo) error {
	if tcp.SYN {
		t.started = true
		t.next = tcp.Seq + 1
		return nil
	}
	if len(tcp.Payload) == 0 {
		return nil
	}
	if !t.started {
		t.started = true
		t.next = tcp.Seq
	}
	seq, data := tcp.Seq, t.trim(tcp.Seq, tcp.Payload)
	if len(data) == 0 {
		return nil
	}
	if int32(seq-t.next) > 0 {
		if t.pending == nil {
			t.pending = make(map[uint32][]byte)
		}
		if old, ok := t.pending[seq]; !ok || len(data) > len(old) {
			t.pending[seq] = append([]byte(nil), data...)
		}
		return nil
	}
	if err := t.s.feed(data, ci.Timestamp); err != nil {
		return err
	}
	t.next += uint32(len(data))
	return t.drain(ci)
}

// trim drops the leading bytes of a segment at seq that were already
// delivered.
func (t *tcpStream) trim(seq uint32, data []byte) []byte {
	d := int32(seq - t.next)
	if d >= 0 {
		return data
	}
	if int(-d) >= len(data) {
		return nil
	}
	return data[-d:]
}

// drain delivers buffered segments that now start at or before the next
// expected byte, including ones that overlap what was already delivered.
func (t *tcpStream) drain(ci gopacket.CaptureInfo) error {
	for {
		progressed := false
		for seq, buf := range t.pending {
			if int32(seq-t.next) > 0 {
				continue
			}
			delete(t.pending, seq)
			progressed = true
			rest := t.trim(seq, buf)
			if len(rest) == 0 {
				continue
			}
			if err := t.s.feed(rest, ci.Timestamp); err != nil {
				return err
			}
			t.next += uint32(len(rest))
		}
		if !progressed {
			return nil
		}
	}
}

// replayResult is the outcome of one server flow in a capture.
type replayResult struct {
	sess *session
	err  error
}

// replayCapture feeds every server flow found in path into its own
// session. Flows are keyed by their source port matching cfg.ServerPort.
func replayCapture(ctx context.Context, cfg Settings, db *gorm.DB, path string) ([]replayResult, error) {
	src, closer, err := openCapture(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	streams := make(map[flowKey]*tcpStream)
	var order []flowKey
	failed := make(map[flowKey]error)
	port := layers.TCPPort(cfg.ServerPort)

	for n := 0; ; n++ {
		if n%1024 == 0 && ctx.Err() != nil {
			break
		}
		data, ci, err := src.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		pkt := gopacket.NewPacket(data, src.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		tcp, _ := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
		if tcp == nil || tcp.SrcPort != port || pkt.NetworkLayer() == nil {
			continue
		}
		key := flowKey{pkt.NetworkLayer().NetworkFlow(), tcp.TransportFlow()}
		if failed[key] != nil {
			continue
		}
		st := streams[key]
		if st == nil {
			name := fmt.Sprintf("%s %s:%s", filepath.Base(path), key.net.Dst(), key.transport.Dst())
			sess, err := newSession(name, cfg, db, nil, logger)
			if err != nil {
				return nil, err
			}
			st = &tcpStream{s: sess}
			streams[key] = st
			order = append(order, key)
		}
		if err := st.segment(tcp, ci); err != nil {
			failed[key] = err
		}
	}

	out := make([]replayResult, 0, len(order))
	for _, key := range order {
		st := streams[key]
		if len(st.pending) > 0 {
			logWarn("%s: %d segments never filled in", st.s.name, len(st.pending))
		}
		out = append(out, replayResult{sess: st.s, err: failed[key]})
	}
	return out, nil
}

// replayCaptures replays paths concurrently, at most cfg.ReplayWorkers at a
// time. Each flow gets its own session; only the roster database is
// shared.
func replayCaptures(ctx context.Context, cfg Settings, db *gorm.DB, paths []string) []replayResult {
	var (
		mu      sync.Mutex
		results []replayResult
		saveMu  sync.Mutex
	)
	swg := sizedwaitgroup.New(max(cfg.ReplayWorkers, 1))
	for _, p := range paths {
		swg.Add()
		go func(p string) {
			defer swg.Done()
			res, err := replayCapture(ctx, cfg, db, p)
			if err != nil {
				logError("replay %s: %v", p, err)
				res = []replayResult{{sess: nil, err: fmt.Errorf("%s: %w", p, err)}}
			}
			for _, r := range res {
				if r.sess == nil {
					continue
				}
				saveMu.Lock()
				if err := r.sess.finish(); err != nil {
					logError("%s: save roster: %v", r.sess.name, err)
				}
				saveMu.Unlock()
			}
			mu.Lock()
			results = append(results, res...)
			mu.Unlock()
		}(p)
	}
	swg.Wait()
	sort.SliceStable(results, func(i, j int) bool {
		return resultName(results[i]) < resultName(results[j])
	})
	return results
}

func resultName(r replayResult) string {
	if r.sess == nil {
		return ""
	}
	return r.sess.name
}
