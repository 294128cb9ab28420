package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/shared/id"
)

// Handlers contains the inspection HTTP handlers
type Handlers struct {
	inspector Inspector
	console   Console
	runID     id.RunID
}

// NewHandlers creates a new handler set
func NewHandlers(inspector Inspector, console Console, runID id.RunID) *Handlers {
	return &Handlers{inspector: inspector, console: console, runID: runID}
}

// Health handles the health check
func (h *Handlers) Health(c *gin.Context) {
	stats := h.inspector.Stats()
	body := gin.H{
		"status": "healthy",
		"envs":   stats.Envs,
		"frames": stats.FramesUsed,
	}
	if h.runID != "" {
		body["run_id"] = h.runID
	}
	c.JSON(http.StatusOK, body)
}

// ListEnvs returns the env directory
func (h *Handlers) ListEnvs(c *gin.Context) {
	envs := h.inspector.Envs()
	if envs == nil {
		envs = []kernel.EnvInfo{}
	}
	c.JSON(http.StatusOK, gin.H{
		"envs":  envs,
		"count": len(envs),
	})
}

// GetEnv returns one env by its hex id
func (h *Handlers) GetEnv(c *gin.Context) {
	raw, err := strconv.ParseUint(c.Param("id"), 16, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "env id must be hex"})
		return
	}
	id := kernel.EnvID(raw)

	for _, in := range h.inspector.Envs() {
		if in.ID == id {
			c.JSON(http.StatusOK, in)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "env not found"})
}

// Stats returns kernel resource usage
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.inspector.Stats())
}

// Console returns every line printed so far
func (h *Handlers) Console(c *gin.Context) {
	lines := h.console.Lines()
	if lines == nil {
		lines = []programs.Line{}
	}
	c.JSON(http.StatusOK, gin.H{
		"lines": lines,
		"count": len(lines),
	})
}
