// Package udp receives wand datagrams and forwards them to the tracker.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/okian/wandbrain/internal/domain/tracker"
	"github.com/okian/wandbrain/pkg/logger"
	"github.com/okian/wandbrain/pkg/metrics"
)

// Sink consumes raw datagrams.
type Sink interface {
	Submit(ctx context.Context, raw []byte) tracker.Outcome
}

// Packet is the last datagram seen, kept for diagnostics.
type Packet struct {
	From       string    `json:"from"`
	Data       []byte    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}

// Receiver owns one bound datagram socket and its receive loop.
type Receiver struct {
	addr       string
	poll       time.Duration
	readBuffer int
	factory    SocketFactory
	sink       Sink
	logger     logger.Logger

	mu      sync.RWMutex
	sock    Socket
	latest  Packet
	hasLast bool
	err     error
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Receiver that feeds sink.
func New(sink Sink, opts ...Option) *Receiver {
	r := &Receiver{
		addr:       DefaultAddr,
		poll:       DefaultPollInterval,
		readBuffer: DefaultReadBuffer,
		factory:    NetSocketFactory{},
		sink:       sink,
		logger:     logger.Get().Named("udp"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start binds the socket and runs the loop in the background. Calling Start
// on a running receiver is a no-op.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return nil
	}
	sock, err := r.bind()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.sock, r.cancel, r.done, r.err = sock, cancel, make(chan struct{}), nil
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		_ = r.loop(loopCtx, sock)
		r.release(done, sock)
		cancel()
	}()
	return nil
}

// release clears the running state owned by done and closes sock. A Stop
// that already took ownership leaves nothing to release.
func (r *Receiver) release(done chan struct{}, sock Socket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != done {
		return
	}
	r.cancel, r.done, r.sock = nil, nil, nil
	_ = sock.Close()
}

// Run binds the socket and blocks until ctx is done or the socket fails.
func (r *Receiver) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	sock, err := r.bind()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.sock, r.cancel, r.done, r.err = sock, cancel, done, nil
	r.mu.Unlock()

	defer func() {
		r.release(done, sock)
		cancel()
		close(done)
	}()
	return r.loop(loopCtx, sock)
}

// Stop cancels the loop, closes the socket and waits for the loop to exit.
// It is safe to call more than once.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	cancel, done, sock := r.cancel, r.done, r.sock
	r.cancel, r.done, r.sock = nil, nil, nil
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	var err error
	if sock != nil {
		if cerr := sock.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	<-done
	return err
}

// Latest returns a copy of the most recent datagram.
func (r *Receiver) Latest() (Packet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasLast {
		return Packet{}, false
	}
	p := r.latest
	p.Data = append([]byte(nil), r.latest.Data...)
	return p, true
}

// Err returns the error that ended the loop, if any.
func (r *Receiver) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// LocalAddr returns the bound address, or nil when not running.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sock == nil {
		return nil
	}
	return r.sock.LocalAddr()
}

// bind opens the socket. Caller holds mu.
func (r *Receiver) bind() (Socket, error) {
	laddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrBind, r.addr, err)
	}
	sock, err := r.factory.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrBind, r.addr, err)
	}
	if r.readBuffer > 0 {
		if err := sock.SetReadBuffer(r.readBuffer); err != nil {
			r.logger.Warn(context.Background(), "failed to set udp read buffer",
				logger.Int("bytes", r.readBuffer), logger.Error(err))
		}
	}
	r.logger.Info(context.Background(), "udp receiver listening",
		logger.String("addr", sock.LocalAddr().String()))
	return sock, nil
}

func (r *Receiver) loop(ctx context.Context, sock Socket) error {
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := sock.SetReadDeadline(time.Now().Add(r.poll)); err != nil && !errors.Is(err, net.ErrClosed) {
			return r.fail(ctx, err)
		}

		n, from, err := sock.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return r.fail(ctx, err)
		}

		raw := append([]byte(nil), buf[:n]...)
		r.mu.Lock()
		r.latest = Packet{From: addrString(from), Data: raw, ReceivedAt: time.Now()}
		r.hasLast = true
		r.mu.Unlock()

		metrics.RecordPacketReceived(n)
		if r.sink != nil {
			r.sink.Submit(ctx, raw)
		}
	}
}

func (r *Receiver) fail(ctx context.Context, err error) error {
	metrics.RecordReceiveError()
	r.logger.Error(ctx, "udp receive loop stopped", logger.Error(err))
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	return err
}

func addrString(a *net.UDPAddr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
