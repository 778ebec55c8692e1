package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"gomana/clnet"
)

// dialTCP connects to a relay that forwards the raw server stream.
func dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// tcpReadLoop reads packets from conn until ctx is cancelled or the
// connection fails. A one second read deadline keeps cancellation prompt.
func tcpReadLoop(ctx context.Context, s *session, conn net.Conn) error {
	buf := make([]byte, 64*1024)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := s.feed(buf[:n], time.Now()); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				select {
				case <-ctx.Done():
					return nil
				default:
					s.tick(time.Now())
					s.advance()
					continue
				}
			}
			if errors.Is(err, io.EOF) {
				logInfo("%s: server closed the connection", s.name)
				return nil
			}
			return fmt.Errorf("read %s: %w", s.name, err)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// readPackets drains a framed packet stream from r, such as a saved dump of
// the server side of a connection. Every packet is stamped with the time it
// was read.
func readPackets(s *session, r io.Reader) error {
	for {
		pkt, err := clnet.ReadPacket(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.tick(time.Now())
		s.dispatchMessage(pkt)
		s.advance()
	}
}
