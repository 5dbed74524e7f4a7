// Package service wires the wand ingestion pipeline and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wandbrain/internal/adapters/imagestore"
	"github.com/okian/wandbrain/internal/adapters/mq/queue"
	"github.com/okian/wandbrain/internal/adapters/mq/worker"
	"github.com/okian/wandbrain/internal/adapters/pcap"
	"github.com/okian/wandbrain/internal/adapters/repository"
	"github.com/okian/wandbrain/internal/adapters/stream"
	"github.com/okian/wandbrain/internal/adapters/udp"
	"github.com/okian/wandbrain/internal/config"
	"github.com/okian/wandbrain/internal/domain/clock"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/internal/domain/raster"
	"github.com/okian/wandbrain/internal/domain/scoring"
	"github.com/okian/wandbrain/internal/domain/tracker"
	"github.com/okian/wandbrain/pkg/logger"
	"github.com/okian/wandbrain/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service owns every pipeline component: receiver, tracker, result store,
// scoring queue and workers, and the attempt stream.
type Service struct {
	mu sync.RWMutex

	cfg     *config.Config
	clock   clock.Clock
	sockets udp.SocketFactory
	logger  logger.Logger

	// Components, rebuilt on every Start.
	sink     *imagestore.FileSink
	store    *repository.MemoryStore
	tracker  *tracker.Tracker
	scorer   *scoring.MaskScorer
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	hub      *stream.Hub
	receiver *udp.Receiver
	replay   *pcap.Stats

	started bool
	cancel  context.CancelFunc
}

// New constructs a Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:   config.New(),
		clock: clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline, replays the configured capture and starts live
// ingestion. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	s.logger.Info(ctx, "starting wand service...")

	sink, err := imagestore.NewFileSink(s.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	// Workers and the receiver outlive the start request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.sink = sink
	s.store = repository.NewMemoryStore(repository.WithMaxResults(s.cfg.MaxResults))
	s.scorer = scoring.NewMaskScorer(
		scoring.WithSize(s.cfg.RenderSize),
		scoring.WithThreshold(s.cfg.ScoreThreshold),
	)
	s.hub = stream.NewHub()
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.cfg.ScoreQueueSize),
		queue.WithLogger(s.logger.Named("queue")),
	)
	s.tracker = tracker.New(sink, s.store,
		tracker.WithClock(s.clock),
		tracker.WithRasterizer(raster.New(
			raster.WithSize(s.cfg.RenderSize),
			raster.WithStrokeWidth(s.cfg.StrokeWidth),
			raster.WithMargin(s.cfg.RenderMargin),
		)),
		tracker.WithMaxPoints(s.cfg.MaxBufferPoints),
		tracker.WithLiveRenderInterval(s.cfg.LiveRenderInterval()),
		tracker.WithLegacy(s.cfg.AcceptLegacy),
		tracker.WithFinalizeListener(s.finalizeListener(s.queue, s.hub)),
	)
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.scorer, s.store, s.Templates,
		worker.WithNotifier(s.hub.Scored),
	)
	s.pool.Start(runCtx)

	s.replay = nil
	if s.cfg.ReplayFile != "" {
		st, err := s.replayCapture(runCtx)
		if err != nil {
			s.abort(ctx, cancel)
			return fmt.Errorf("%w: replay %s: %w", ErrStart, s.cfg.ReplayFile, err)
		}
		s.replay = &st
	}

	ropts := []udp.Option{
		udp.WithAddr(s.cfg.UDPAddr),
		udp.WithPollInterval(s.cfg.UDPPollInterval()),
		udp.WithReadBuffer(s.cfg.UDPReadBuffer),
	}
	if s.sockets != nil {
		ropts = append(ropts, udp.WithSocketFactory(s.sockets))
	}
	s.receiver = udp.New(s.tracker, ropts...)
	if err := s.receiver.Start(runCtx); err != nil {
		s.abort(ctx, cancel)
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "wand service started",
		logger.String("udp_addr", s.cfg.UDPAddr),
		logger.String("output_dir", s.cfg.OutputDir),
		logger.String("template_dir", s.cfg.TemplateDir),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.cfg.ScoreQueueSize),
	)
	return nil
}

// abort tears down a partially started pipeline. Caller holds s.mu.
func (s *Service) abort(ctx context.Context, cancel context.CancelFunc) {
	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer done()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.hub.Close()
	cancel()
}

func (s *Service) replayCapture(ctx context.Context) (pcap.Stats, error) {
	var popts []pcap.Option
	if port, ok := udpPort(s.cfg.UDPAddr); ok {
		popts = append(popts, pcap.WithPort(port))
	}
	st, err := pcap.NewReplayer(s.tracker, popts...).ReplayFile(ctx, s.cfg.ReplayFile)
	if err != nil {
		return st, err
	}
	s.logger.Info(ctx, "capture replayed",
		logger.String("file", s.cfg.ReplayFile),
		logger.Int("packets", st.Packets),
		logger.Int("submitted", st.Submitted),
		logger.Duration("elapsed", st.Elapsed),
	)
	return st, nil
}

// udpPort extracts the port of a host:port address.
func udpPort(addr string) (uint16, bool) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, false
	}
	port, err := strconv.ParseUint(p, 10, 16)
	if err != nil || port == 0 {
		return 0, false
	}
	return uint16(port), true
}

// Stop stops ingestion, drains the scoring queue and disconnects stream
// subscribers. Finalized results stay readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping wand service...")

	if err := s.receiver.Stop(); err != nil {
		s.logger.Warn(ctx, "receiver stop failed", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown failed", logger.Error(err))
	}

	s.hub.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "wand service stopped")
}

// finalizeListener announces finalized attempts and queues them for scoring.
// It captures the run's components so it never takes s.mu: it runs on the
// receiver and replay goroutines, which Start and Stop wait on.
func (s *Service) finalizeListener(q *queue.InMemoryQueue, hub *stream.Hub) tracker.FinalizeListener {
	log := s.logger
	return func(ctx context.Context, res model.FinalResult) {
		hub.Finalized(ctx, res)
		if !q.Enqueue(ctx, res) {
			log.Warn(ctx, "scoring queue rejected attempt",
				logger.Uint32("attempt", res.AttemptID),
				logger.Int("queue_length", q.Len(ctx)),
			)
		}
	}
}

func (s *Service) components() (*tracker.Tracker, *repository.MemoryStore) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker, s.store
}

// Submit feeds one raw datagram to the tracker.
func (s *Service) Submit(ctx context.Context, raw []byte) tracker.Outcome {
	t, _ := s.components()
	if t == nil {
		return tracker.Dropped
	}
	return t.Submit(ctx, raw)
}

// CurrentBuffer returns the in-flight points of an attempt.
func (s *Service) CurrentBuffer(device, wand uint16, attempt uint32) []model.Point {
	t, _ := s.components()
	if t == nil {
		return nil
	}
	return t.CurrentBuffer(device, wand, attempt)
}

// WandStatus returns the status of a wand.
func (s *Service) WandStatus(wand uint16) (model.WandStatus, bool) {
	t, _ := s.components()
	if t == nil {
		return model.WandStatus{}, false
	}
	return t.WandStatus(wand)
}

// LatestResult returns the most recent finalized attempt of a device's wand.
func (s *Service) LatestResult(ctx context.Context, device, wand uint16) (model.FinalResult, error) {
	_, store := s.components()
	if store == nil {
		return model.FinalResult{}, repository.ErrNotFound
	}
	return store.Latest(ctx, device, wand)
}

// ResultByAttempt returns a finalized attempt by id.
func (s *Service) ResultByAttempt(ctx context.Context, attempt uint32) (model.FinalResult, error) {
	_, store := s.components()
	if store == nil {
		return model.FinalResult{}, repository.ErrNotFound
	}
	return store.ByAttempt(ctx, attempt)
}

// LivePreview returns the path of a wand's latest preview image.
func (s *Service) LivePreview(wand uint16) (string, bool) {
	t, _ := s.components()
	if t == nil {
		return "", false
	}
	return t.LivePreview(wand)
}

// TrackerStats returns the tracker snapshot.
func (s *Service) TrackerStats() tracker.TrackerStats {
	t, _ := s.components()
	if t == nil {
		return tracker.TrackerStats{}
	}
	return t.Stats()
}

// LatestPacket returns the last datagram read by the receiver.
func (s *Service) LatestPacket() (udp.Packet, bool) {
	s.mu.RLock()
	r := s.receiver
	s.mu.RUnlock()
	if r == nil {
		return udp.Packet{}, false
	}
	return r.Latest()
}

// Templates lists the reference drawings in the template directory.
func (s *Service) Templates() ([]model.TemplateRef, error) {
	return scoring.ListTemplates(s.cfg.TemplateDir)
}

// ScoreAttempt scores a finalized attempt on demand. An empty templateID
// ranks every template, best first.
func (s *Service) ScoreAttempt(ctx context.Context, attempt uint32, templateID string) ([]model.ScoreResult, error) {
	s.mu.RLock()
	store, scorer := s.store, s.scorer
	s.mu.RUnlock()
	if store == nil {
		return nil, repository.ErrNotFound
	}

	res, err := store.ByAttempt(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if res.RenderPath == "" {
		return nil, fmt.Errorf("attempt %d: %w", attempt, worker.ErrNoRender)
	}
	templates, err := s.Templates()
	if err != nil {
		return nil, err
	}

	if templateID == "" {
		return scorer.Best(ctx, res.RenderPath, templates)
	}
	tmpl, err := scoring.FindTemplate(templates, templateID)
	if err != nil {
		return nil, err
	}
	sc, err := scorer.Score(ctx, res.RenderPath, tmpl)
	if err != nil {
		return nil, err
	}
	return []model.ScoreResult{sc}, nil
}

// Stream returns the websocket hub of the current run, or nil before Start.
func (s *Service) Stream() *stream.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// ReceiverAddr returns the bound UDP address, or nil when not listening.
func (s *Service) ReceiverAddr() net.Addr {
	s.mu.RLock()
	r := s.receiver
	s.mu.RUnlock()
	if r == nil {
		return nil
	}
	return r.LocalAddr()
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := Stats{
		Started:       s.started,
		QueueCapacity: s.cfg.ScoreQueueSize,
		Replay:        s.replay,
	}
	if s.tracker == nil {
		return st
	}

	ts := s.tracker.Stats()
	st.Tracker = ts.Counters
	st.ActiveAttempts = len(ts.Buffers)
	st.Results = s.store.Count(ctx)
	st.ResultsEvicted = s.store.Evicted()
	st.QueueLength = s.queue.Len(ctx)
	st.Workers = s.pool.Size()
	st.Scored = s.pool.Processed()
	st.Subscribers = s.hub.Subscribers()
	if s.receiver != nil {
		if addr := s.receiver.LocalAddr(); addr != nil {
			st.UDPAddr = addr.String()
		}
		if err := s.receiver.Err(); err != nil {
			st.ReceiverError = err.Error()
		}
	}

	metrics.UpdateQueueSize(st.QueueLength)
	metrics.UpdateResultsStored(st.Results)
	metrics.UpdateWorkerCount(st.Workers)
	return st
}
