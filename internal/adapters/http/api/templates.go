package api

import (
	"net/http"

	"github.com/okian/wandbrain/internal/domain/model"
)

// TemplateDependencies lists the reference drawings.
type TemplateDependencies interface {
	Templates() ([]model.TemplateRef, error)
}

// TemplateHandler handles template requests.
type TemplateHandler struct {
	deps TemplateDependencies
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(deps TemplateDependencies) *TemplateHandler {
	return &TemplateHandler{deps: deps}
}

// HandleList handles GET /v1/templates requests.
func (h *TemplateHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	templates, err := h.deps.Templates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap("api.templates", err))
		return
	}
	if templates == nil {
		templates = []model.TemplateRef{}
	}
	writeJSON(w, http.StatusOK, templates)
}
