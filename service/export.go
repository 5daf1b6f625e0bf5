package service

import (
	"archive/zip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datachat/models"
)

var (
	ErrNoCharts        = errors.New("no charts to export")
	ErrInvalidFilename = errors.New("invalid export filename")
)

const pngDataPrefix = "data:image/png;base64,"

// ExportStorage writes chart archives to a directory and serves them back.
type ExportStorage struct {
	exportDir string
}

func NewExportStorage(exportDir string) (*ExportStorage, error) {
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &ExportStorage{exportDir: exportDir}, nil
}

// GenerateFileName creates a unique archive name with a timestamp.
func (e *ExportStorage) GenerateFileName() string {
	now := time.Now()
	return fmt.Sprintf("generated_charts_%s_%d.zip", now.Format("20060102_150405"), now.UnixNano())
}

// ChartEntryNames returns the archive paths for the code and image of the
// chart at 1-based position n in the archive.
func ChartEntryNames(chartType string, n int) (code, image string) {
	base := fmt.Sprintf("%s_chart_%d", chartType, n)
	return "python_code/" + base + ".py", "chart_images/" + base + ".png"
}

// WriteArchive writes the charts as a zip to w, numbered by position so
// failed charts leave no gaps. Charts without a PNG data URI contribute only
// their code.
func WriteArchive(w io.Writer, charts []models.ChartResult) error {
	zw := zip.NewWriter(w)
	for i, c := range charts {
		codeName, imageName := ChartEntryNames(c.Type, i+1)

		f, err := zw.Create(codeName)
		if err != nil {
			return fmt.Errorf("create %s: %w", codeName, err)
		}
		if _, err := io.WriteString(f, c.Code); err != nil {
			return fmt.Errorf("write %s: %w", codeName, err)
		}

		if !strings.HasPrefix(c.Image, pngDataPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(c.Image, pngDataPrefix))
		if err != nil {
			return fmt.Errorf("decode image for %s: %w", imageName, err)
		}
		f, err = zw.Create(imageName)
		if err != nil {
			return fmt.Errorf("create %s: %w", imageName, err)
		}
		if _, err := f.Write(raw); err != nil {
			return fmt.Errorf("write %s: %w", imageName, err)
		}
	}
	return zw.Close()
}

// SaveArchive writes charts to a new archive in the export directory.
func (e *ExportStorage) SaveArchive(charts []models.ChartResult) (*models.ExportFileInfo, error) {
	if len(charts) == 0 {
		return nil, ErrNoCharts
	}
	filename := e.GenerateFileName()
	path := filepath.Join(e.exportDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	if err := WriteArchive(file, charts); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &models.ExportFileInfo{
		Filename: filename,
		Size:     info.Size(),
		Modified: info.ModTime().Format(time.RFC3339),
		Charts:   len(charts),
	}, nil
}

// ListExports returns the archives in the export directory.
func (e *ExportStorage) ListExports() ([]models.ExportFileInfo, error) {
	files, err := os.ReadDir(e.exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}

	exports := []models.ExportFileInfo{}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".zip" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		exports = append(exports, models.ExportFileInfo{
			Filename: file.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().Format(time.RFC3339),
		})
	}
	return exports, nil
}

// ExportPath resolves filename inside the export directory, rejecting
// anything that is not a plain .zip name.
func (e *ExportStorage) ExportPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filepath.Ext(filename) != ".zip" {
		return "", ErrInvalidFilename
	}
	path := filepath.Join(e.exportDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
