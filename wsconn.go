package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriter sends client packets to a websocket relay, one binary frame
// per packet.
type wsWriter struct {
	conn *websocket.Conn
}

func (w wsWriter) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// dialRelay connects to a websocket relay that forwards the server stream.
func dialRelay(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	return conn, nil
}

// wsReadLoop feeds every binary frame from conn into s. Frames need not
// align with packets. The loop ends on ctx cancellation or when the relay
// closes the connection.
func wsReadLoop(ctx context.Context, s *session, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read relay: %w", err)
		}
		if typ != websocket.BinaryMessage {
			logDebug("%s: ignoring relay frame type %d", s.name, typ)
			continue
		}
		if err := s.feed(data, time.Now()); err != nil {
			return err
		}
	}
}
