package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/pkg/metrics"
)

// MemoryStore implements Store with two maps: latest per (device, wand),
// unaffected by eviction, and a bounded attempt index evicted in insertion
// order.
type MemoryStore struct {
	mu         sync.RWMutex
	latest     map[model.WandKey]model.FinalResult
	byAttempt  map[uint32]*list.Element // value is model.FinalResult
	order      *list.List               // front = oldest
	maxResults int
	evicted    uint64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		latest:     make(map[model.WandKey]model.FinalResult),
		byAttempt:  make(map[uint32]*list.Element),
		order:      list.New(),
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements Store. Re-putting an attempt id refreshes its position.
func (s *MemoryStore) Put(_ context.Context, res model.FinalResult) error {
	if res.NumPoints <= 0 {
		return fmt.Errorf("%w: attempt %d has no points", ErrInvalidResult, res.AttemptID)
	}

	s.mu.Lock()
	s.latest[res.Key()] = res
	if el, ok := s.byAttempt[res.AttemptID]; ok {
		el.Value = res
		s.order.MoveToBack(el)
	} else {
		s.byAttempt[res.AttemptID] = s.order.PushBack(res)
	}
	for s.order.Len() > s.maxResults {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.byAttempt, oldest.Value.(model.FinalResult).AttemptID)
		s.evicted++
		metrics.RecordResultEvicted()
	}
	n := s.order.Len()
	s.mu.Unlock()

	metrics.UpdateResultsStored(n)
	return nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(_ context.Context, device, wand uint16) (model.FinalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.latest[model.WandKey{Device: device, Wand: wand}]
	if !ok {
		return model.FinalResult{}, fmt.Errorf("%w: device %d wand %d", ErrNotFound, device, wand)
	}
	return res, nil
}

// ByAttempt implements Store.
func (s *MemoryStore) ByAttempt(_ context.Context, attempt uint32) (model.FinalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.byAttempt[attempt]
	if !ok {
		return model.FinalResult{}, fmt.Errorf("%w: attempt %d", ErrNotFound, attempt)
	}
	return el.Value.(model.FinalResult), nil
}

// AttachScore implements Store. The latest map is updated too when it still
// holds the same result.
func (s *MemoryStore) AttachScore(_ context.Context, target model.FinalResult, score model.ScoreResult) (model.FinalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byAttempt[target.AttemptID]
	if !ok {
		return model.FinalResult{}, fmt.Errorf("%w: attempt %d", ErrNotFound, target.AttemptID)
	}
	res := el.Value.(model.FinalResult)
	if !res.SameAttempt(target) {
		return model.FinalResult{}, fmt.Errorf("%w: attempt %d now belongs to device %d wand %d",
			ErrStale, target.AttemptID, res.Device, res.Wand)
	}
	sc := score
	res.Score = &sc
	el.Value = res

	if cur, ok := s.latest[res.Key()]; ok && cur.SameAttempt(res) {
		s.latest[res.Key()] = res
	}
	return res, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// Evicted returns how many results were dropped from the attempt index.
func (s *MemoryStore) Evicted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}
