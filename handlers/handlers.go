package handlers

import (
	"errors"
	"net/http"
	"os"

	"datachat/ai"
	"datachat/dataset"
	"datachat/db"
	"datachat/logger"
	"datachat/service"
	"datachat/validation"

	"github.com/gin-gonic/gin"
)

// @title           Data Chat API
// @version         1.0
// @description     Chat over CSV files and images: dataset selection, question-answer pairs and chart code generated by a hosted model.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:9090
// @BasePath  /

// @schemes   http https

type Options struct {
	MaxUploadBytes int64
	// AIKeyConfigured reports whether a server-side model key is set.
	AIKeyConfigured bool
}

type Handlers struct {
	store     *db.DB
	assistant service.Assistant
	chat      *service.ChatService
	log       logger.Logger
	opts      Options
}

func New(store *db.DB, assistant service.Assistant, chat *service.ChatService, log logger.Logger, opts Options) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Handlers{
		store:     store,
		assistant: assistant,
		chat:      chat,
		log:       log,
		opts:      opts,
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var bounds *dataset.BoundsError
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &bounds):
		return http.StatusConflict
	case errors.Is(err, service.ErrSQLServerDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrMissingAPIKey),
		errors.Is(err, validation.ErrUnsupportedFile),
		errors.Is(err, validation.ErrInvalidImage),
		errors.Is(err, validation.ErrChartSize),
		errors.Is(err, validation.ErrChartCount),
		errors.Is(err, validation.ErrUnknownChartType),
		errors.Is(err, dataset.ErrOutOfRange),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrNoChartTypes),
		errors.Is(err, dataset.ErrEmptySelection),
		errors.Is(err, dataset.ErrNoHeader),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidPrompt),
		errors.Is(err, service.ErrEmptyToggle),
		errors.Is(err, service.ErrNotReadQuery),
		errors.Is(err, service.ErrNoCharts),
		errors.Is(err, service.ErrInvalidFilename):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Client errors carry the error text;
// server errors carry fallback and are logged.
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("HTTP", fallback, map[string]interface{}{
			"path":  c.FullPath(),
			"error": err,
		})
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
