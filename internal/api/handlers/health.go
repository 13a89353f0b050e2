package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

type HealthHandler struct {
	version string
	engine  *lanes.Engine
}

func NewHealthHandler(version string, engine *lanes.Engine) *HealthHandler {
	return &HealthHandler{version: version, engine: engine}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Ready    bool   `json:"ready"`
	Sequence uint64 `json:"sequence"`
}

// HealthCheck reports liveness. Ready turns true after the first cycle
// commits.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	last, ok := h.engine.Last()
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Ready:    ok,
		Sequence: last.Sequence,
	})
}
