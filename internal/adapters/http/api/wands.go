package api

import (
	"fmt"
	"net/http"

	"github.com/okian/wandbrain/internal/domain/model"
)

// WandDependencies exposes per-wand tracker state.
type WandDependencies interface {
	WandStatus(wand uint16) (model.WandStatus, bool)
	CurrentBuffer(device, wand uint16, attempt uint32) []model.Point
}

// pointsResponse is the in-flight buffer of one attempt.
type pointsResponse struct {
	Key    model.AttemptKey `json:"key"`
	Count  int              `json:"count"`
	Points []model.Point    `json:"points"`
}

// WandHandler handles wand status and buffer requests.
type WandHandler struct {
	deps WandDependencies
}

// NewWandHandler creates a new wand handler.
func NewWandHandler(deps WandDependencies) *WandHandler {
	return &WandHandler{deps: deps}
}

// HandleStatus handles GET /v1/wands/{wand}/status requests.
func (h *WandHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.wand_status"
	wand, err := uint16Param(r, "wand")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	st, ok := h.deps.WandStatus(wand)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, fmt.Errorf("wand %d never seen", wand)))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleBuffer handles GET /v1/devices/{device}/wands/{wand}/buffer/{attempt} requests.
// An attempt that is not in flight has an empty buffer.
func (h *WandHandler) HandleBuffer(w http.ResponseWriter, r *http.Request) {
	const op = "api.wand_buffer"
	key, err := attemptKeyParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	points := h.deps.CurrentBuffer(key.Device, key.Wand, key.Attempt)
	if points == nil {
		points = []model.Point{}
	}
	writeJSON(w, http.StatusOK, pointsResponse{Key: key, Count: len(points), Points: points})
}

func attemptKeyParams(r *http.Request) (model.AttemptKey, error) {
	device, err := uint16Param(r, "device")
	if err != nil {
		return model.AttemptKey{}, fmt.Errorf("device: %w", err)
	}
	wand, err := uint16Param(r, "wand")
	if err != nil {
		return model.AttemptKey{}, fmt.Errorf("wand: %w", err)
	}
	attempt, err := uint32Param(r, "attempt")
	if err != nil {
		return model.AttemptKey{}, fmt.Errorf("attempt: %w", err)
	}
	return model.AttemptKey{Device: device, Wand: wand, Attempt: attempt}, nil
}
