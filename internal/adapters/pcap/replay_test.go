package pcap_test

import (
	"bytes"
	"context"
	"io"
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

	"github.com/okian/wandbrain/internal/adapters/pcap"
	"github.com/okian/wandbrain/internal/domain/codec"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/tracker"
	"github.com/okian/wandbrain/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type countingSink struct {
	payloads [][]byte
}

func (s *countingSink) Submit(_ context.Context, raw []byte) tracker.Outcome {
	s.payloads = append(s.payloads, raw)
	return tracker.Appended
}

func udpFrame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 1, 20),
		DstIP:    net.IPv4(192, 168, 1, 10),
	}
	u := &layers.UDP{SrcPort: 50000, DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, u.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, u, gopacket.Payload(payload)))
	return buf.Bytes()
}

func capture(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ts := time.Unix(1_700_000_000, 0)
	for i, f := range frames {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Millisecond), CaptureLength: len(f), Length: len(f)}
		require.NoError(t, w.WritePacket(ci, f))
	}
	return out.Bytes()
}

func point(i int) []byte {
	return codec.Encode(model.PointEvent{WandID: 1, StrokeID: 5, PacketNumber: uint32(i), X: 0.1, Y: 0.2, PenDown: true})
}

func TestReplayer_FiltersByPort(t *testing.T) {
	data := capture(t,
		udpFrame(t, 41000, point(1)),
		udpFrame(t, 53, []byte("dns")),
		udpFrame(t, 41000, point(2)),
	)
	sink := &countingSink{}
	r := pcap.NewReplayer(sink, pcap.WithPort(41000))

	st, err := r.Replay(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Packets)
	assert.Equal(t, 2, st.Submitted)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 2, st.Outcomes[tracker.Appended])
	require.Len(t, sink.payloads, 2)
	assert.Equal(t, point(2), sink.payloads[1])
}

func TestReplayer_AllPorts(t *testing.T) {
	data := capture(t, udpFrame(t, 41000, point(1)), udpFrame(t, 9999, point(2)))
	sink := &countingSink{}

	st, err := pcap.NewReplayer(sink).Replay(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Submitted)
}

func TestReplayer_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wand.pcap")
	require.NoError(t, os.WriteFile(path, capture(t, udpFrame(t, 41000, point(1))), 0o600))
	sink := &countingSink{}

	st, err := pcap.NewReplayer(sink, pcap.WithSpeed(1000)).ReplayFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Submitted)

	_, err = pcap.NewReplayer(sink).ReplayFile(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestReplayer_BadHeader(t *testing.T) {
	_, err := pcap.NewReplayer(&countingSink{}).Replay(context.Background(), bytes.NewReader([]byte("not a pcap")))
	assert.Error(t, err)
}

func TestReplayer_Cancelled(t *testing.T) {
	data := capture(t, udpFrame(t, 41000, point(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pcap.NewReplayer(&countingSink{}).Replay(ctx, bytes.NewReader(data))
	assert.ErrorIs(t, err, context.Canceled)
}
