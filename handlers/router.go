package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterConfig struct {
	AllowedOrigins []string
	// StaticDir holds the built frontend; skipped when it does not exist.
	StaticDir string
}

// NewRouter wires every route onto a gin engine.
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = h.opts.MaxUploadBytes

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", h.HealthHandler)

	api := r.Group("/api")
	api.POST("/aya-understanding", h.ImageUnderstandingHandler)
	api.POST("/generate-chart", h.GenerateChartHandler)

	api.GET("/sessions", h.ListChatSessionsHandler)
	api.POST("/sessions", h.CreateChatSessionHandler)
	api.DELETE("/sessions/:id", h.DeleteChatSessionHandler)
	api.GET("/sessions/:id/messages", h.ListMessagesHandler)
	api.POST("/sessions/:id/messages", h.SendMessageHandler)

	api.GET("/messages/:id/dataset", h.GetDatasetHandler)
	api.PUT("/messages/:id/selection", h.SetSelectionHandler)
	api.POST("/messages/:id/selection/toggle", h.ToggleSelectionHandler)
	api.POST("/messages/:id/qa-pairs", h.GenerateQAPairsHandler)

	api.POST("/messages/:id/charts", h.GenerateChartsHandler)
	api.GET("/messages/:id/charts", h.ListChartsHandler)
	api.DELETE("/messages/:id/charts/run", h.CancelChartsHandler)
	api.PUT("/messages/:id/charts/:index/image", h.AttachChartImageHandler)
	api.POST("/messages/:id/charts/export", h.ExportChartsHandler)

	api.GET("/exports", h.ListExportsHandler)
	api.GET("/exports/:filename", h.DownloadExportHandler)
	api.POST("/datasets/sql", h.ImportSQLDatasetHandler)

	serveFrontend(r, cfg.StaticDir)
	return r
}

// serveFrontend serves the single-page app and falls back to index.html for
// unknown non-API paths.
func serveFrontend(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	_, err := os.Stat(index)
	hasIndex := dir != "" && err == nil
	if hasIndex {
		r.Static("/static", filepath.Join(dir, "static"))
		r.StaticFile("/", index)
	}
	r.NoRoute(func(c *gin.Context) {
		if !hasIndex || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(index)
	})
}
