package handlers

import (
	"net/http"

	"datachat/models"

	"github.com/gin-gonic/gin"
)

// ExportChartsHandler writes the stored charts of a message to a zip archive
// @Summary      Export charts
// @Description  Archive layout: python_code/<type>_chart_<n>.py and chart_images/<type>_chart_<n>.png for charts with a PNG image.
// @Tags         Results
// @Produce      json
// @Param        id   path      string  true  "AI message ID"
// @Success      201  {object}  models.ExportFileInfo
// @Failure      400  {object}  map[string]string  "No charts to export"
// @Router       /api/messages/{id}/charts/export [post]
func (h *Handlers) ExportChartsHandler(c *gin.Context) {
	info, err := h.chat.ExportCharts(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to export charts")
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListExportsHandler lists saved chart archives
// @Summary      List exports
// @Tags         Results
// @Produce      json
// @Success      200  {object}  map[string][]models.ExportFileInfo  "List of archives"
// @Failure      500  {object}  map[string]string                   "Failed to list files"
// @Router       /api/exports [get]
func (h *Handlers) ListExportsHandler(c *gin.Context) {
	files, err := h.chat.Exports().ListExports()
	if err != nil {
		h.respondError(c, err, "Failed to list files")
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DownloadExportHandler serves one archive
// @Summary      Download an export
// @Tags         Results
// @Produce      application/zip
// @Param        filename  path  string  true  "Archive name"
// @Success      200       {file}  file
// @Failure      400       {object}  map[string]string  "Invalid filename"
// @Failure      404       {object}  map[string]string  "File not found"
// @Router       /api/exports/{filename} [get]
func (h *Handlers) DownloadExportHandler(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.chat.Exports().ExportPath(filename)
	if err != nil {
		h.respondError(c, err, "Failed to read file")
		return
	}
	c.FileAttachment(path, filename)
}

// ImportSQLDatasetHandler imports a SQL Server query result as a dataset
// @Summary      Import a dataset from SQL Server
// @Description  Runs a SELECT or WITH query and stores the rows as a dataset message in the session.
// @Tags         Results
// @Accept       json
// @Produce      json
// @Param        request  body      models.SQLDatasetRequest  true  "Session, query and optional prompt"
// @Success      201      {object}  models.SendMessageResponse
// @Failure      400      {object}  map[string]string  "Not a read query"
// @Failure      503      {object}  map[string]string  "SQL Server not configured"
// @Router       /api/datasets/sql [post]
func (h *Handlers) ImportSQLDatasetHandler(c *gin.Context) {
	var req models.SQLDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	resp, err := h.chat.ImportSQL(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to import query result")
		return
	}
	c.JSON(http.StatusCreated, resp)
}
