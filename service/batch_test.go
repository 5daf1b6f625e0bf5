package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"datachat/ai"
	"datachat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeBatchAssistant struct {
	codes     []string
	codeCalls int
	qaErr     error
	reviewed  []string
}

func (f *fakeBatchAssistant) GenerateBatchChartCode(ctx context.Context, apiKey string, spec ai.BatchChartSpec) (string, error) {
	f.codeCalls++
	if len(f.codes) == 0 {
		return "", nil
	}
	code := f.codes[0]
	f.codes = f.codes[1:]
	return code, nil
}

func (f *fakeBatchAssistant) GenerateQAPairs(ctx context.Context, apiKey, tableMarkdown string, n int) ([]models.QAPair, error) {
	if f.qaErr != nil {
		return nil, f.qaErr
	}
	pairs := make([]models.QAPair, n)
	for i := range pairs {
		pairs[i] = models.QAPair{Question: "Which region has sales of 10?", Answer: "North"}
	}
	return pairs, nil
}

func (f *fakeBatchAssistant) EvaluateChartImage(ctx context.Context, apiKey, chartImage, tableMarkdown string, pairs []models.QAPair) (string, error) {
	f.reviewed = append(f.reviewed, chartImage)
	return "1. Correct and relevant.", nil
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0644))
	return path
}

const batchCode = `import pandas as pd
df = pd.read_csv(path)
counts = df[categorical_cols[0]].value_counts()
plt.bar(counts.index, counts.values)
plt.title("Counts")
plt.savefig(output_dir + "/bar.png")`

func TestBatchRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	assistant := &fakeBatchAssistant{codes: []string{"", "  ", batchCode}}
	runner := NewBatchRunner(assistant, nil)

	res, err := runner.Run(context.Background(), BatchOptions{
		CSVPath:    writeCSV(t, dir),
		ChartTypes: []string{"bar"},
		BatchSize:  10,
		OutputSize: 2,
		OutputDir:  filepath.Join(dir, "out"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, assistant.codeCalls)
	assert.Equal(t, 3, res.Report.Attempts)
	assert.Equal(t, batchCode, res.Code)
	require.Len(t, res.Report.Charts, 1)
	assert.Equal(t, 1.0, res.Report.Charts[0].Correctness)
	require.NotNil(t, res.Report.QAPairs)
	assert.Len(t, res.QAPairs, 2)
	assert.Len(t, res.Files, 3)

	code, err := os.ReadFile(filepath.Join(dir, "out", "chart.py"))
	require.NoError(t, err)
	assert.Equal(t, batchCode+"\n", string(code))

	pairs, err := LoadQAPairs(filepath.Join(dir, "out", "qa_pairs.json"))
	require.NoError(t, err)
	assert.Equal(t, res.QAPairs, pairs)

	raw, err := os.ReadFile(filepath.Join(dir, "out", "report.yaml"))
	require.NoError(t, err)
	var report BatchReport
	require.NoError(t, yaml.Unmarshal(raw, &report))
	assert.Equal(t, []string{"bar"}, report.ChartTypes)
	assert.Equal(t, 3, report.Attempts)
}

func TestBatchRunGivesUpAfterMaxRetries(t *testing.T) {
	dir := t.TempDir()
	assistant := &fakeBatchAssistant{}
	runner := NewBatchRunner(assistant, nil)
	runner.maxRetries = 3

	_, err := runner.Run(context.Background(), BatchOptions{
		CSVPath:    writeCSV(t, dir),
		ChartTypes: []string{"bar"},
		OutputDir:  filepath.Join(dir, "out"),
	})
	assert.ErrorIs(t, err, ErrNoCode)
	assert.Equal(t, 3, assistant.codeCalls)
}

func TestBatchRunRecordsQAFailure(t *testing.T) {
	dir := t.TempDir()
	assistant := &fakeBatchAssistant{codes: []string{batchCode}, qaErr: ai.ErrQAPairsExhausted}
	runner := NewBatchRunner(assistant, nil)

	res, err := runner.Run(context.Background(), BatchOptions{
		CSVPath:    writeCSV(t, dir),
		ChartTypes: []string{"bar", "pie"},
		OutputDir:  filepath.Join(dir, "out"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Report.QAPairs)
	assert.Contains(t, res.Report.QAError, "Q&A pairs")
	assert.Len(t, res.Files, 2)
	assert.NoFileExists(t, filepath.Join(dir, "out", "qa_pairs.json"))

	assistant = &fakeBatchAssistant{codes: []string{batchCode}, qaErr: ai.ErrMissingAPIKey}
	_, err = NewBatchRunner(assistant, nil).Run(context.Background(), BatchOptions{
		CSVPath:    writeCSV(t, dir),
		ChartTypes: []string{"bar"},
		OutputDir:  filepath.Join(dir, "out2"),
	})
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
}

func TestReviewCharts(t *testing.T) {
	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(images, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "b.png"), pngHeader, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "a.png"), pngHeader, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "notes.txt"), []byte("skip me"), 0644))

	assistant := &fakeBatchAssistant{}
	runner := NewBatchRunner(assistant, nil)

	reviews, err := runner.ReviewCharts(context.Background(), "", writeCSV(t, dir), 5, images,
		[]models.QAPair{{Question: "Which region?", Answer: "North"}})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "a.png", reviews[0].Image)
	assert.Equal(t, "b.png", reviews[1].Image)
	assert.Equal(t, "1. Correct and relevant.", reviews[0].Review)
	require.Len(t, assistant.reviewed, 2)
	for _, uri := range assistant.reviewed {
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	}

	failing := &failingReviewer{fakeBatchAssistant: assistant, err: errors.New("timeout")}
	reviews, err = NewBatchRunner(failing, nil).ReviewCharts(context.Background(), "", writeCSV(t, dir), 5, images, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "timeout", reviews[0].Error)
}

type failingReviewer struct {
	*fakeBatchAssistant
	err error
}

func (f *failingReviewer) EvaluateChartImage(ctx context.Context, apiKey, chartImage, tableMarkdown string, pairs []models.QAPair) (string, error) {
	return "", f.err
}
