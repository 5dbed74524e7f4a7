package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/wandbrain/internal/domain/model"
)

// defaultPreviewWand is used when the request names no wand.
const defaultPreviewWand = 1

// RenderDependencies exposes live preview images.
type RenderDependencies interface {
	LivePreview(wand uint16) (string, bool)
	WandStatus(wand uint16) (model.WandStatus, bool)
	CurrentBuffer(device, wand uint16, attempt uint32) []model.Point
}

// RenderHandler serves live preview images.
type RenderHandler struct {
	deps RenderDependencies
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(deps RenderDependencies) *RenderHandler {
	return &RenderHandler{deps: deps}
}

type previewResponse struct {
	WandID  uint16 `json:"wand_id"`
	Active  bool   `json:"active"`
	Attempt uint32 `json:"attempt"`
	Points  int    `json:"points"`
	Path    string `json:"path"`
}

// HandleLatest handles GET /v1/render/latest?wand=N requests.
func (h *RenderHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.render_latest"
	wand, err := wandQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	path, ok := h.deps.LivePreview(wand)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNoPreview, fmt.Errorf("wand %d", wand)))
		return
	}
	resp := previewResponse{WandID: wand, Path: path}
	if st, ok := h.deps.WandStatus(wand); ok {
		resp.Active = st.Active
		resp.Attempt = st.CurrentAttemptID
		if st.Active {
			resp.Points = len(h.deps.CurrentBuffer(st.Device, wand, st.CurrentAttemptID))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLatestPNG handles GET /v1/render/latest.png?wand=N requests.
func (h *RenderHandler) HandleLatestPNG(w http.ResponseWriter, r *http.Request) {
	const op = "api.render_latest_png"
	wand, err := wandQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	path, ok := h.deps.LivePreview(wand)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNoPreview, fmt.Errorf("wand %d", wand)))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	http.ServeFile(w, r, path)
}

// wandQuery reads ?wand=N, accepting ?wand_id=N as an alias.
func wandQuery(r *http.Request) (uint16, error) {
	q := r.URL.Query()
	raw := q.Get("wand")
	if raw == "" {
		raw = q.Get("wand_id")
	}
	if raw == "" {
		return defaultPreviewWand, nil
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
