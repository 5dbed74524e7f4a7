package api

import (
	"encoding/hex"
	"net/http"

	"github.com/okian/wandbrain/internal/adapters/udp"
	"github.com/okian/wandbrain/internal/domain/tracker"
)

// DebugDependencies exposes receiver and tracker internals.
type DebugDependencies interface {
	LatestPacket() (udp.Packet, bool)
	TrackerStats() tracker.TrackerStats
}

// DebugHandler handles diagnostic requests.
type DebugHandler struct {
	deps DebugDependencies
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(deps DebugDependencies) *DebugHandler {
	return &DebugHandler{deps: deps}
}

// packetResponse describes the last datagram read from the wand socket.
type packetResponse struct {
	From string `json:"from"`
	Len  int    `json:"len"`
	Hex  string `json:"hex"`
}

// HandleLatestPacket handles GET /v1/debug/latest-packet requests.
// Before the first datagram the response is empty rather than 404.
func (h *DebugHandler) HandleLatestPacket(w http.ResponseWriter, _ *http.Request) {
	p, _ := h.deps.LatestPacket()
	writeJSON(w, http.StatusOK, packetResponse{
		From: p.From,
		Len:  len(p.Data),
		Hex:  hex.EncodeToString(p.Data),
	})
}

// HandleState handles GET /v1/debug/state requests.
func (h *DebugHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.TrackerStats())
}
