package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomana/clnet"
)

func TestTCPReadLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		pkt := visiblePacket(10, 1002, 3, 4)
		_ = clnet.WriteFull(c, pkt[:30])
		time.Sleep(20 * time.Millisecond)
		_ = clnet.WriteFull(c, pkt[30:])
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := dialTCP(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	s, err := newSession("tcp", testSettings(), nil, conn, nil)
	require.NoError(t, err)
	require.NoError(t, tcpReadLoop(ctx, s, conn))

	mob := s.registry.Find(10)
	require.NotNil(t, mob)
	assert.Equal(t, 3, mob.Pos().X)
	assert.Equal(t, 4, mob.Pos().Y)
}

func TestTCPReadLoopStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		time.Sleep(3 * time.Second)
		c.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := dialTCP(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	s, err := newSession("tcp", testSettings(), nil, conn, nil)
	require.NoError(t, err)

	cancel()
	start := time.Now()
	require.NoError(t, tcpReadLoop(ctx, s, conn))
	assert.Less(t, time.Since(start), 2*time.Second)
}
