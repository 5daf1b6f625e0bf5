package handlers

import (
	"net/http"

	"datachat/ai"
	"datachat/models"

	"github.com/gin-gonic/gin"
)

// ImageUnderstandingHandler forwards an image and prompt to the vision model
// @Summary      Analyse an image
// @Description  Sends the image to the vision model. An empty prompt asks for question-answer pairs as JSON; any other prompt is answered in free text.
// @Tags         Models
// @Accept       json
// @Produce      json
// @Param        request  body      models.ImageUnderstandingRequest   true  "Prompt, base64 image and optional API key"
// @Success      200      {object}  models.ImageUnderstandingResponse  "Model reply"
// @Failure      500      {object}  map[string]string                  "Failed to process request"
// @Router       /api/aya-understanding [post]
func (h *Handlers) ImageUnderstandingHandler(c *gin.Context) {
	var req models.ImageUnderstandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("HTTP", "invalid image request", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	reply, err := h.assistant.AnalyzeImage(c.Request.Context(), req.APIKey, req.Prompt, req.ImageBase64)
	if err != nil {
		h.log.Error("AI", "image understanding failed", map[string]interface{}{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	c.JSON(http.StatusOK, models.ImageUnderstandingResponse{Response: reply})
}

// GenerateChartHandler asks the model for one chart script
// @Summary      Generate chart code
// @Description  Returns a matplotlib script for the given rows. The script is run by the client, which fills in the image.
// @Tags         Models
// @Accept       json
// @Produce      json
// @Param        request  body      models.GenerateChartRequest   true  "Rows, requirements, chart type and size"
// @Success      200      {object}  models.GenerateChartResponse  "Generated code"
// @Failure      500      {object}  map[string]string             "Failed to generate chart"
// @Router       /api/generate-chart [post]
func (h *Handlers) GenerateChartHandler(c *gin.Context) {
	var req models.GenerateChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("HTTP", "invalid chart request", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate chart"})
		return
	}

	reply, err := h.assistant.GenerateChartCode(c.Request.Context(), req.APIKey, ai.ChartSpec{
		Data:      req.Data,
		Prompt:    req.Prompt,
		ChartType: req.ChartType,
		ChartSize: req.ChartSize,
	})
	if err != nil {
		h.log.Error("AI", "chart generation failed", map[string]interface{}{
			"chart_type": req.ChartType,
			"error":      err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate chart"})
		return
	}

	c.JSON(http.StatusOK, models.GenerateChartResponse{
		Code:  ai.ExtractPythonCode(reply),
		Image: "",
	})
}
