package api

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/dashboard.html
var staticFiles embed.FS

// dashboardHandler serves the live preview page. The page polls
// /v1/render/latest.png and listens on /v1/stream.
type dashboardHandler struct {
	files fs.FS
}

func newDashboardHandler() *dashboardHandler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return &dashboardHandler{files: sub}
}

// HandleDashboard handles GET /dashboard requests.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, h.files, "dashboard.html")
}
