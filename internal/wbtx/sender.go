package wbtx

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/okian/wandbrain/internal/domain/codec"
	"github.com/okian/wandbrain/internal/domain/model"
)

// Dial opens a UDP socket aimed at addr.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// Send encodes each event as a wb-point-v1 datagram and writes it to w,
// spacing writes by interval. It returns the number of datagrams written.
func Send(ctx context.Context, w io.Writer, events []model.PointEvent, interval time.Duration) (int, error) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	sent := 0
	for i, e := range events {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return sent, err
		}
		if _, err := w.Write(codec.Encode(e)); err != nil {
			return sent, fmt.Errorf("write packet %d: %w", e.PacketNumber, err)
		}
		sent++
	}
	return sent, nil
}
