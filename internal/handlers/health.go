package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Error("Health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"message":   "Store is unreachable",
			"timestamp": h.now().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Docutrack is running",
		"timestamp": h.now().Format(time.RFC3339),
	})
}
