package model

import "time"

// WandStatus is the per-wand state tracked across attempts.
type WandStatus struct {
	WandID           uint16 `json:"wand_id"`
	Active           bool   `json:"active"`
	CurrentAttemptID uint32 `json:"current_attempt_id"`
	Device           uint16 `json:"device"`
	LastPointMS      uint32 `json:"last_point_ms"`
}

// FinalResult describes a finalized attempt. Score fields are filled
// once asynchronous scoring has run.
type FinalResult struct {
	Device      uint16    `json:"device"`
	Wand        uint16    `json:"wand"`
	AttemptID   uint32    `json:"attempt_id"`
	NumPoints   int       `json:"num_points"`
	StartMS     uint32    `json:"start_ms"`
	EndMS       uint32    `json:"end_ms"`
	FinalizedAt time.Time `json:"finalized_at"`
	RenderPath  string    `json:"render_path"`
	Reason      string    `json:"reason"`

	Score *ScoreResult `json:"score,omitempty"`
}

// Key returns the latest-result slot for the result.
func (r FinalResult) Key() WandKey {
	return WandKey{Device: r.Device, Wand: r.Wand}
}

// SameAttempt reports whether r and o come from the same finalization.
func (r FinalResult) SameAttempt(o FinalResult) bool {
	return r.Device == o.Device && r.Wand == o.Wand && r.AttemptID == o.AttemptID &&
		r.FinalizedAt.Equal(o.FinalizedAt)
}

// Scored reports whether a best match has been attached.
func (r FinalResult) Scored() bool {
	return r.Score != nil
}

// TemplateRef points at a reference image.
type TemplateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Metrics are the raw overlap measurements behind a composite score.
type Metrics struct {
	Dice           float64 `json:"dice"`
	IoU            float64 `json:"iou"`
	AreaRatio      float64 `json:"area_ratio"`
	DrawPixels     int     `json:"draw_pixels"`
	TemplatePixels int     `json:"template_pixels"`
	Intersection   int     `json:"intersection"`
	Union          int     `json:"union"`
}

// ScoreResult is a drawing compared against one template.
type ScoreResult struct {
	TemplateID   string  `json:"template_id"`
	TemplateName string  `json:"template_name"`
	Score        float64 `json:"score"`
	Metrics      Metrics `json:"metrics"`
}
