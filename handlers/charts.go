package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"datachat/models"

	"github.com/gin-gonic/gin"
)

type chartRunOutcome struct {
	resp *models.GenerateChartsResponse
	err  error
}

// GenerateChartsHandler generates chart code for the selected slice.
// @Summary      Generate charts for a selection
// @Description  Requests run two at a time with a short pause between pairs. With Accept: text/event-stream each finished pair is sent as a "chunk" event, followed by "done" or "error". A new run for the same message cancels the previous one.
// @Tags         Charts
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "AI message ID"
// @Param        request  body      models.GenerateChartsRequest  true  "Prompt, chart types, chart size"
// @Success      200      {object}  models.GenerateChartsResponse
// @Failure      400      {object}  map[string]string  "Invalid request"
// @Router       /api/messages/{id}/charts [post]
func (h *Handlers) GenerateChartsHandler(c *gin.Context) {
	var req models.GenerateChartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	messageID := c.Param("id")

	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		resp, err := h.chat.GenerateCharts(c.Request.Context(), messageID, req, nil)
		if err != nil {
			h.respondError(c, err, "Failed to generate charts")
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx := c.Request.Context()
	chunks := make(chan []models.ChartResult)
	done := make(chan chartRunOutcome, 1)
	go func() {
		resp, err := h.chat.GenerateCharts(ctx, messageID, req, func(chunk []models.ChartResult) {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			}
		})
		close(chunks)
		done <- chartRunOutcome{resp: resp, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		if chunk, ok := <-chunks; ok {
			c.SSEvent("chunk", chunk)
			return true
		}
		out := <-done
		if out.err != nil {
			msg := "Failed to generate charts"
			if statusFor(out.err) != http.StatusInternalServerError {
				msg = out.err.Error()
			} else if out.err != context.Canceled {
				h.log.Error("HTTP", msg, map[string]interface{}{"message_id": messageID, "error": out.err})
			}
			c.SSEvent("error", gin.H{"error": msg})
			return false
		}
		c.SSEvent("done", out.resp)
		return false
	})
}

// CancelChartsHandler aborts an in-flight chart run.
// @Summary      Cancel a chart run
// @Tags         Charts
// @Produce      json
// @Param        id   path      string  true  "AI message ID"
// @Success      200  {object}  map[string]bool  "Whether a run was cancelled"
// @Router       /api/messages/{id}/charts/run [delete]
func (h *Handlers) CancelChartsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.chat.CancelCharts(c.Param("id"))})
}

// ListChartsHandler returns the stored chart results of a message.
// @Summary      List generated charts
// @Tags         Charts
// @Produce      json
// @Param        id   path      string  true  "AI message ID"
// @Success      200  {array}   models.ChartResult
// @Router       /api/messages/{id}/charts [get]
func (h *Handlers) ListChartsHandler(c *gin.Context) {
	charts, err := h.chat.Charts(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to load charts")
		return
	}
	c.JSON(http.StatusOK, charts)
}

// AttachChartImageHandler stores the image the client rendered for a chart.
// @Summary      Attach a rendered chart image
// @Tags         Charts
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "AI message ID"
// @Param        index    path      int                       true  "Chart index"
// @Param        request  body      models.ChartImageRequest  true  "Image as data URI or base64"
// @Success      200      {object}  models.ChartResult
// @Failure      400      {object}  map[string]string  "Invalid image"
// @Failure      404      {object}  map[string]string  "Chart not found"
// @Router       /api/messages/{id}/charts/{index}/image [put]
func (h *Handlers) AttachChartImageHandler(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chart index"})
		return
	}
	var req models.ChartImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	chart, err := h.chat.AttachChartImage(c.Param("id"), index, req.Image)
	if err != nil {
		h.respondError(c, err, "Failed to store chart image")
		return
	}
	c.JSON(http.StatusOK, chart)
}
