// Package repository keeps finalized attempt results in memory.
package repository

import (
	"context"

	"github.com/okian/wandbrain/internal/domain/model"
)

// Store provides read/write access to finalized results.
type Store interface {
	// Put records a result as the latest for its (device, wand) and indexes it
	// by attempt id.
	Put(ctx context.Context, res model.FinalResult) error

	// Latest returns the most recent result for a device's wand.
	// Returns ErrNotFound if none was recorded.
	Latest(ctx context.Context, device, wand uint16) (model.FinalResult, error)

	// ByAttempt returns the result indexed under attempt.
	// Returns ErrNotFound if unknown or evicted.
	ByAttempt(ctx context.Context, attempt uint32) (model.FinalResult, error)

	// AttachScore sets the best match on the stored copy of res and returns
	// the update. Returns ErrStale if the attempt index now holds another
	// result under the same attempt id.
	AttachScore(ctx context.Context, res model.FinalResult, score model.ScoreResult) (model.FinalResult, error)

	// Count returns the number of results in the attempt index.
	Count(ctx context.Context) int
}
