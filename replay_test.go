package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type segment struct {
	srcPort, dstPort uint16
	seq              uint32
	syn              bool
	payload          []byte
}

func writeCapture(t *testing.T, path string, segs []segment) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	at := time.Unix(1700000000, 0)
	for i, sg := range segs {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.IP{10, 0, 0, 1},
			DstIP:    net.IP{10, 0, 0, 2},
		}
		if sg.srcPort != 5122 {
			ip.SrcIP, ip.DstIP = ip.DstIP, ip.SrcIP
		}
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(sg.srcPort),
			DstPort: layers.TCPPort(sg.dstPort),
			Seq:     sg.seq,
			SYN:     sg.syn,
			ACK:     !sg.syn,
			Window:  65535,
		}
		require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(sg.payload)))
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     at.Add(time.Duration(i) * 100 * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
}

func TestReplayReassemblesServerStream(t *testing.T) {
	vis := visiblePacket(10, 1002, 7, 8)
	name := namePacket(10, "Scorpion")
	const isn = 5000

	path := filepath.Join(t.TempDir(), "session.pcap")
	writeCapture(t, path, []segment{
		{srcPort: 5122, dstPort: 40000, seq: isn, syn: true},
		{srcPort: 5122, dstPort: 40000, seq: isn + 1, payload: vis[:20]},
		// next segment arrives after the one following it
		{srcPort: 5122, dstPort: 40000, seq: isn + 1 + uint32(len(vis)), payload: name},
		{srcPort: 5122, dstPort: 40000, seq: isn + 1 + 20, payload: vis[20:]},
		// retransmit
		{srcPort: 5122, dstPort: 40000, seq: isn + 1, payload: vis[:20]},
		// client to server traffic is ignored
		{srcPort: 40000, dstPort: 5122, seq: 1, payload: []byte{0x94, 0x00, 10, 0, 0, 0}},
	})

	res, err := replayCapture(context.Background(), testSettings(), nil, path)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NoError(t, res[0].err)

	s := res[0].sess
	mob := s.registry.Find(10)
	require.NotNil(t, mob)
	assert.Equal(t, "Scorpion", mob.Name)
	assert.Equal(t, 7, mob.Pos().X)
	assert.Equal(t, 2, s.packets)
	assert.Equal(t, 0, s.framer.Buffered())
	assert.Equal(t, time.Unix(1700000000, 0).Add(100*time.Millisecond), s.start)
}

func TestReplayOverlappingBufferedSegment(t *testing.T) {
	vis := visiblePacket(10, 1002, 7, 8)
	name := namePacket(10, "Scorpion")
	const isn = 9000
	late := append(append([]byte(nil), vis[30:]...), name...)

	path := filepath.Join(t.TempDir(), "overlap.pcap")
	writeCapture(t, path, []segment{
		{srcPort: 5122, dstPort: 40000, seq: isn, payload: vis[:20]},
		// buffered ahead of the gap
		{srcPort: 5122, dstPort: 40000, seq: isn + 30, payload: late},
		// fills the gap and runs 10 bytes into the buffered segment
		{srcPort: 5122, dstPort: 40000, seq: isn + 20, payload: vis[20:40]},
	})

	res, err := replayCapture(context.Background(), testSettings(), nil, path)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NoError(t, res[0].err)

	s := res[0].sess
	mob := s.registry.Find(10)
	require.NotNil(t, mob)
	assert.Equal(t, "Scorpion", mob.Name)
	assert.Equal(t, 2, s.packets)
	assert.Equal(t, 0, s.framer.Buffered())
}

func TestReplayCapturesRunIndependently(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, id := range []uint32{10, 11, 12} {
		p := filepath.Join(dir, "c"+string(rune('a'+i))+".pcap")
		writeCapture(t, p, []segment{
			{srcPort: 5122, dstPort: 40000, seq: 1, payload: visiblePacket(id, 1002, 1, 1)},
		})
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.pcap"))

	res := replayCaptures(context.Background(), testSettings(), nil, paths)
	require.Len(t, res, 4)

	var ok int
	for _, r := range res {
		if r.sess == nil {
			require.Error(t, r.err)
			continue
		}
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.sess.registry.Len())
		ok++
	}
	assert.Equal(t, 3, ok)
}

func TestReplayBrokenStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pcap")
	writeCapture(t, path, []segment{
		{srcPort: 5122, dstPort: 40000, seq: 1, payload: []byte{0x01, 0x00, 0, 0}},
		{srcPort: 5122, dstPort: 40000, seq: 5, payload: visiblePacket(10, 1002, 1, 1)},
	})
	res, err := replayCapture(context.Background(), testSettings(), nil, path)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.ErrorIs(t, res[0].err, errStreamBroken)
	assert.Nil(t, res[0].sess.registry.Find(10))
}
