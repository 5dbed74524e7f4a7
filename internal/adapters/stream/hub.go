// Package stream pushes attempt lifecycle events to websocket subscribers.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/pkg/logger"
	"github.com/okian/wandbrain/pkg/metrics"
)

// Message types.
const (
	TypeAttemptFinalized = "attempt_finalized"
	TypeAttemptScored    = "attempt_scored"
)

// Message is one event pushed to subscribers.
type Message struct {
	Type   string            `json:"type"`
	Result model.FinalResult `json:"result"`
}

type subscriber struct {
	id  string
	out chan Message
}

// Hub fans messages out to connected websocket clients. A slow client loses
// messages rather than blocking publishers.
type Hub struct {
	buffer       int
	writeTimeout time.Duration
	origins      []string
	logger       logger.Logger

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

// NewHub creates an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		buffer:       DefaultBuffer,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger.Get().Named("stream"),
		subs:         make(map[string]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers msg to every subscriber without blocking.
func (h *Hub) Publish(_ context.Context, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.out <- msg:
			metrics.RecordStreamMessage("queued")
		default:
			metrics.RecordStreamMessage("dropped")
		}
	}
}

// Finalized publishes an attempt_finalized message.
func (h *Hub) Finalized(ctx context.Context, res model.FinalResult) {
	h.Publish(ctx, Message{Type: TypeAttemptFinalized, Result: res})
}

// Scored publishes an attempt_scored message.
func (h *Hub) Scored(ctx context.Context, res model.FinalResult) {
	h.Publish(ctx, Message{Type: TypeAttemptScored, Result: res})
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.out)
		delete(h.subs, id)
	}
	metrics.UpdateStreamSubscribers(0)
}

func (h *Hub) subscribe() (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	s := &subscriber{id: uuid.NewString(), out: make(chan Message, h.buffer)}
	h.subs[s.id] = s
	metrics.UpdateStreamSubscribers(len(h.subs))
	return s, true
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return
	}
	close(s.out)
	delete(h.subs, id)
	metrics.UpdateStreamSubscribers(len(h.subs))
}

// ServeHTTP upgrades the request and streams messages until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", logger.Error(err))
		return
	}
	defer conn.CloseNow()

	sub, ok := h.subscribe()
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unsubscribe(sub.id)

	// Subscribers never send; CloseRead notices the client going away.
	ctx := conn.CloseRead(r.Context())
	h.logger.Debug(ctx, "subscriber connected", logger.String("id", sub.id))

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug(r.Context(), "subscriber left", logger.String("id", sub.id))
			return
		case msg, open := <-sub.out:
			if !open {
				_ = conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				metrics.RecordStreamMessage("failed")
				return
			}
			metrics.RecordStreamMessage("sent")
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, msg)
}
