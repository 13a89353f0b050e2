package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
	"github.com/ironsheep/lionsgate-lanes/internal/monitor"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type LanesHandler struct {
	monitor *monitor.Monitor
}

func NewLanesHandler(mon *monitor.Monitor) *LanesHandler {
	return &LanesHandler{monitor: mon}
}

// RefreshResponse wraps a manually triggered cycle.
type RefreshResponse struct {
	Config    lanes.LaneConfig `json:"config"`
	Committed bool             `json:"committed"`
}

// DiagnosticsResponse mirrors the debug panel: what was decided and the
// per-side sample counts behind it.
type DiagnosticsResponse struct {
	Sequence    uint64         `json:"sequence"`
	CycleID     string         `json:"cycle_id"`
	Method      lanes.Method   `json:"method"`
	Confidence  int            `json:"confidence"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Diagnostics map[string]any `json:"diagnostics"`
}

// Current returns the latest committed lane configuration.
func (h *LanesHandler) Current(c *gin.Context) {
	cfg, ok := h.monitor.Engine().Last()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no lane configuration yet"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Refresh runs a cycle now and returns its result.
func (h *LanesHandler) Refresh(c *gin.Context) {
	cfg, committed := h.monitor.Refresh(c.Request.Context())
	log.Info().Uint64("seq", cfg.Sequence).Bool("committed", committed).Msg("Manual refresh")
	c.JSON(http.StatusOK, RefreshResponse{Config: cfg, Committed: committed})
}

// Diagnostics returns the evidence behind the latest result.
func (h *LanesHandler) Diagnostics(c *gin.Context) {
	cfg, ok := h.monitor.Engine().Last()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no lane configuration yet"})
		return
	}
	c.JSON(http.StatusOK, DiagnosticsResponse{
		Sequence:    cfg.Sequence,
		CycleID:     cfg.CycleID,
		Method:      cfg.Method,
		Confidence:  cfg.Confidence,
		UpdatedAt:   cfg.UpdatedAt,
		Diagnostics: h.monitor.Engine().LastDiagnostics(),
	})
}

// Fallback previews the time rule. Query parameters: time (RFC3339,
// defaults to now) and policy (weekday or weekend-aware, defaults to the
// engine's policy).
func (h *LanesHandler) Fallback(c *gin.Context) {
	engine := h.monitor.Engine()
	opts := engine.Options()

	now := engine.Now()
	if raw := c.Query("time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "time must be RFC3339: " + err.Error()})
			return
		}
		now = t.In(opts.Location)
	}

	policy := opts.Policy
	if raw := c.Query("policy"); raw != "" {
		p, err := lanes.ParseSchedulePolicy(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		policy = p
	}

	c.JSON(http.StatusOK, lanes.Fallback(now, lanes.CauseNone, policy))
}

// ZonePreview renders the sampling zone over the last camera frame as PNG.
func (h *LanesHandler) ZonePreview(c *gin.Context) {
	frame, ok := h.monitor.Frame()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no camera frame yet"})
		return
	}

	preview, err := monitor.RenderPreview(h.monitor.Engine(), frame)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, preview.Overlay, imaging.PNG); err != nil {
		log.Error().Err(err).Msg("Failed to encode zone preview")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to encode preview"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
