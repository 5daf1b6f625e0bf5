package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"datachat/models"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MinChartSize = 0
	MaxChartSize = 10
)

var (
	ErrUnsupportedFile  = errors.New("unsupported file type: upload a CSV file or an image")
	ErrInvalidImage     = errors.New("image payload is not a valid base64 encoded image")
	ErrChartSize        = fmt.Errorf("chart size must be between %d and %d", MinChartSize, MaxChartSize)
	ErrChartCount       = fmt.Errorf("chart count must be between %d and %d", MinChartSize, MaxChartSize)
	ErrUnknownChartType = errors.New("unknown chart type")
)

// SupportedChartTypes lists the chart types offered to the user, in display order.
var SupportedChartTypes = []string{"bar", "line", "scatter", "pie", "area", "histogram"}

var chartTypeLabels = map[string]string{
	"bar":       "Bar Chart",
	"line":      "Line Chart",
	"scatter":   "Scatter Plot",
	"pie":       "Pie Chart",
	"area":      "Area Chart",
	"histogram": "Histogram",
}

// NormalizeChartType lower-cases t and checks it against SupportedChartTypes.
func NormalizeChartType(t string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(t))
	if _, ok := chartTypeLabels[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChartType, t)
	}
	return n, nil
}

func ChartTypeLabel(t string) string {
	if l, ok := chartTypeLabels[t]; ok {
		return l
	}
	return t
}

func ValidateChartSize(size int) error {
	if size < MinChartSize || size > MaxChartSize {
		return ErrChartSize
	}
	return nil
}

// ValidateChartCount bounds the number of charts one run may request. Zero
// means "use the chart size".
func ValidateChartCount(count int) error {
	if count < MinChartSize || count > MaxChartSize {
		return ErrChartCount
	}
	return nil
}

// DetectFileKind classifies an upload from its leading bytes, falling back to
// the file extension and the declared content type for CSV, which has no
// reliable magic number.
func DetectFileKind(filename, declaredType string, head []byte) (models.FileKind, string, error) {
	mt := mimetype.Detect(head)
	if strings.HasPrefix(mt.String(), "image/") {
		return models.FileKindImage, mt.String(), nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if mt.Is("text/csv") || ext == ".csv" || ext == ".tsv" || strings.Contains(strings.ToLower(declaredType), "csv") {
		return models.FileKindCSV, "text/csv", nil
	}
	return models.FileKindNone, mt.String(), ErrUnsupportedFile
}

// DecodeImage accepts either raw base64 or a data URI and returns the bytes
// and their sniffed mime type.
func DecodeImage(payload string) ([]byte, string, error) {
	data := strings.TrimSpace(payload)
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ",")
		if idx < 0 {
			return nil, "", ErrInvalidImage
		}
		data = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, "", ErrInvalidImage
		}
	}
	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", ErrInvalidImage
	}
	return raw, mt.String(), nil
}
