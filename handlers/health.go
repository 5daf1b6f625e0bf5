package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler checks the health status of the service
// @Summary      Health check
// @Description  Check the health status of the store, the model client and SQL Server
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string  "Service health status"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status":     "healthy",
		"db":         "connected",
		"ai_service": "ready",
		"sql_server": "not_configured",
	}

	if err := h.store.Ping(); err != nil {
		status["status"] = "degraded"
		status["db"] = "unavailable"
	}
	if !h.opts.AIKeyConfigured {
		status["ai_service"] = "needs_request_key"
	}
	if h.chat.SQLConfigured() {
		status["sql_server"] = "unreachable"
		if h.chat.SQLConnected(c.Request.Context()) {
			status["sql_server"] = "connected"
		}
	}

	c.JSON(http.StatusOK, status)
}
