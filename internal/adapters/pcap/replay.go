// Package pcap replays captured wand traffic from classic pcap files.
package pcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/okian/wandbrain/internal/domain/tracker"
	"github.com/okian/wandbrain/pkg/logger"
)

// Sink consumes UDP payloads.
type Sink interface {
	Submit(ctx context.Context, raw []byte) tracker.Outcome
}

// Stats summarizes a replay.
type Stats struct {
	Packets   int                     `json:"packets"`
	Submitted int                     `json:"submitted"`
	Skipped   int                     `json:"skipped"`
	Outcomes  map[tracker.Outcome]int `json:"-"`
	Elapsed   time.Duration           `json:"elapsed"`
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithPort keeps only UDP datagrams sent to port. Zero keeps every port.
func WithPort(port uint16) Option {
	return func(r *Replayer) { r.port = port }
}

// WithSpeed paces the replay by capture timestamps divided by speed.
// Zero replays as fast as possible.
func WithSpeed(speed float64) Option {
	return func(r *Replayer) {
		if speed >= 0 {
			r.speed = speed
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// Replayer feeds pcap payloads into a Sink.
type Replayer struct {
	sink   Sink
	port   uint16
	speed  float64
	logger logger.Logger
}

// NewReplayer creates a Replayer.
func NewReplayer(sink Sink, opts ...Option) *Replayer {
	r := &Replayer{sink: sink, logger: logger.Get().Named("pcap")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile opens path and replays it.
func (r *Replayer) ReplayFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open pcap %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return r.Replay(ctx, f)
}

// Replay reads a classic pcap stream and submits every matching UDP payload.
func (r *Replayer) Replay(ctx context.Context, src io.Reader) (Stats, error) {
	reader, err := pcapgo.NewReader(src)
	if err != nil {
		return Stats{}, fmt.Errorf("read pcap header: %w", err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	st := Stats{Outcomes: make(map[tracker.Outcome]int)}
	start := time.Now()
	var firstTS time.Time

	for {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("replay cancelled: %w", err)
		}
		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read pcap packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		udpLayer, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udpLayer.Payload) == 0 || (r.port != 0 && uint16(udpLayer.DstPort) != r.port) {
			st.Skipped++
			continue
		}

		if r.speed > 0 {
			ts := packet.Metadata().Timestamp
			if firstTS.IsZero() {
				firstTS = ts
			}
			due := start.Add(time.Duration(float64(ts.Sub(firstTS)) / r.speed))
			if wait := time.Until(due); wait > 0 {
				select {
				case <-ctx.Done():
					return st, fmt.Errorf("replay cancelled: %w", ctx.Err())
				case <-time.After(wait):
				}
			}
		}

		payload := append([]byte(nil), udpLayer.Payload...)
		st.Outcomes[r.sink.Submit(ctx, payload)]++
		st.Submitted++
	}

	st.Elapsed = time.Since(start)
	r.logger.Info(ctx, "pcap replay complete",
		logger.Int("packets", st.Packets),
		logger.Int("submitted", st.Submitted),
		logger.Int("skipped", st.Skipped),
		logger.Duration("elapsed", st.Elapsed))
	return st, nil
}
