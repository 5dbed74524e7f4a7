// Package worker scores finalized attempts asynchronously.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wandbrain/internal/adapters/mq/queue"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/pkg/logger"
	"github.com/okian/wandbrain/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// ErrNoRender is returned for a job whose attempt has no rendered image.
var ErrNoRender = errors.New("attempt has no render")

// Scorer ranks a drawing against templates, best first.
type Scorer interface {
	Best(ctx context.Context, drawingPath string, templates []model.TemplateRef) ([]model.ScoreResult, error)
}

// Updater attaches the best match to a stored result.
type Updater interface {
	AttachScore(ctx context.Context, res model.FinalResult, score model.ScoreResult) (model.FinalResult, error)
}

// TemplateLister returns the current template set.
type TemplateLister func() ([]model.TemplateRef, error)

// Notifier is told about every scored result.
type Notifier func(ctx context.Context, res model.FinalResult)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	scorer    Scorer
	updater   Updater
	templates TemplateLister
	notify    Notifier
	name      string
	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, updater Updater, templates TemplateLister, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		scorer:    scorer,
		updater:   updater,
		templates: templates,
		name:      "worker",
		processed: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.Process(ctx, job); err != nil {
				w.logger.Error(ctx, "error scoring attempt", logger.Uint32("attempt", job.AttemptID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process scores one job against every template and attaches the best match.
// A job with no templates available is a no-op.
func (w *InMemoryWorker) Process(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if job.RenderPath == "" {
		metrics.RecordScoringJob("no_render")
		return fmt.Errorf("%w: attempt %d", ErrNoRender, job.AttemptID)
	}

	templates, err := w.templates()
	if err != nil {
		metrics.RecordScoringJob("error")
		return fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		metrics.RecordScoringJob("no_templates")
		return nil
	}

	start := time.Now()
	ranked, err := w.scorer.Best(ctx, job.RenderPath, templates)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordScoringJob("error")
		return fmt.Errorf("score attempt %d: %w", job.AttemptID, err)
	}
	if len(ranked) == 0 {
		metrics.RecordScoringJob("no_templates")
		return nil
	}

	updated, err := w.updater.AttachScore(ctx, job, ranked[0])
	if err != nil {
		metrics.RecordScoringJob("error")
		return fmt.Errorf("attach score to attempt %d: %w", job.AttemptID, err)
	}

	metrics.RecordScoringJob("scored")
	w.processed.Add(1)
	w.logger.Debug(ctx, "attempt scored",
		logger.Uint32("attempt", job.AttemptID),
		logger.String("template", ranked[0].TemplateID),
		logger.Float64("score", ranked[0].Score))
	if w.notify != nil {
		w.notify(ctx, updated)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, scorer Scorer, updater Updater, templates TemplateLister, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, scorer, updater, templates, wopts...)
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs were scored successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			if l, ok := p.queue.(interface{ Len(context.Context) int }); ok {
				metrics.UpdateQueueSize(l.Len(ctx))
			}
		}
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
