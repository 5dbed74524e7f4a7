package api

import (
	"context"
	"net/http"

	"github.com/okian/wandbrain/internal/domain/model"
)

// AttemptDependencies exposes finalized attempts and on-demand scoring.
type AttemptDependencies interface {
	LatestResult(ctx context.Context, device, wand uint16) (model.FinalResult, error)
	ResultByAttempt(ctx context.Context, attempt uint32) (model.FinalResult, error)

	// ScoreAttempt scores the finalized image of attempt. With a template id
	// the result holds that single score, otherwise every template ranked
	// best first.
	ScoreAttempt(ctx context.Context, attempt uint32, templateID string) ([]model.ScoreResult, error)
}

// AttemptHandler handles finalized attempt requests.
type AttemptHandler struct {
	deps AttemptDependencies
}

// NewAttemptHandler creates a new attempt handler.
func NewAttemptHandler(deps AttemptDependencies) *AttemptHandler {
	return &AttemptHandler{deps: deps}
}

// HandleLatest handles GET /v1/devices/{device}/wands/{wand}/latest requests.
func (h *AttemptHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.wand_latest"
	device, err := uint16Param(r, "device")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	wand, err := uint16Param(r, "wand")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.LatestResult(r.Context(), device, wand)
	if err != nil {
		writeLookupError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGet handles GET /v1/attempts/{attempt} requests.
func (h *AttemptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.attempt"
	attempt, err := uint32Param(r, "attempt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.ResultByAttempt(r.Context(), attempt)
	if err != nil {
		writeLookupError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleScore handles GET /v1/attempts/{attempt}/score[?template=id] requests.
func (h *AttemptHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.attempt_score"
	attempt, err := uint32Param(r, "attempt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	templateID := r.URL.Query().Get("template")

	scores, err := h.deps.ScoreAttempt(r.Context(), attempt, templateID)
	if err != nil {
		writeLookupError(w, Wrap(op, err))
		return
	}
	if templateID != "" {
		if len(scores) == 0 {
			writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
			return
		}
		writeJSON(w, http.StatusOK, scores[0])
		return
	}
	if scores == nil {
		scores = []model.ScoreResult{}
	}
	writeJSON(w, http.StatusOK, scores)
}
