package service

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"

	"datachat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func TestChartEntryNames(t *testing.T) {
	code, image := ChartEntryNames("bar", 1)
	assert.Equal(t, "python_code/bar_chart_1.py", code)
	assert.Equal(t, "chart_images/bar_chart_1.png", image)
}

func TestWriteArchive(t *testing.T) {
	charts := []models.ChartResult{
		{Index: 0, Type: "bar", Code: "bar()", Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)},
		{Index: 2, Type: "line", Code: "line()"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, charts))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	contents := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = data
	}
	assert.Len(t, contents, 3)
	assert.Equal(t, "bar()", string(contents["python_code/bar_chart_1.py"]))
	assert.Equal(t, "line()", string(contents["python_code/line_chart_2.py"]))
	assert.Equal(t, pngHeader, contents["chart_images/bar_chart_1.png"])
}

func TestExportStorage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewExportStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	_, err = store.SaveArchive(nil)
	assert.ErrorIs(t, err, ErrNoCharts)

	info, err := store.SaveArchive([]models.ChartResult{{Index: 0, Type: "pie", Code: "pie()"}})
	require.NoError(t, err)
	assert.Equal(t, 1, info.Charts)
	assert.Positive(t, info.Size)

	files, err := store.ListExports()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, info.Filename, files[0].Filename)

	path, err := store.ExportPath(info.Filename)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = store.ExportPath("../secret.zip")
	assert.ErrorIs(t, err, ErrInvalidFilename)
	_, err = store.ExportPath("notes.txt")
	assert.ErrorIs(t, err, ErrInvalidFilename)
	_, err = store.ExportPath("missing.zip")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
