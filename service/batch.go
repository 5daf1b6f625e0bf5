package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datachat/ai"
	"datachat/dataset"
	"datachat/logger"
	"datachat/models"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

// MaxRetries bounds how many times the batch script is regenerated.
const MaxRetries = 10

var ErrNoCode = errors.New("model did not return any chart code")

// BatchAssistant is the subset of the model client batch mode needs.
type BatchAssistant interface {
	GenerateBatchChartCode(ctx context.Context, apiKey string, spec ai.BatchChartSpec) (string, error)
	GenerateQAPairs(ctx context.Context, apiKey, tableMarkdown string, n int) ([]models.QAPair, error)
	EvaluateChartImage(ctx context.Context, apiKey, chartImage, tableMarkdown string, pairs []models.QAPair) (string, error)
}

type BatchOptions struct {
	CSVPath    string
	ChartTypes []string
	BatchSize  int
	OutputSize int
	OutputDir  string
	APIKey     string
}

// BatchReport is written to report.yaml.
type BatchReport struct {
	CSVPath     string                   `yaml:"csv_path"`
	GeneratedAt string                   `yaml:"generated_at"`
	ChartTypes  []string                 `yaml:"chart_types"`
	BatchSize   int                      `yaml:"batch_size"`
	OutputSize  int                      `yaml:"output_size"`
	Attempts    int                      `yaml:"attempts"`
	Profile     dataset.Profile          `yaml:"profile"`
	Charts      []models.ChartEvaluation `yaml:"charts"`
	QAPairs     *models.QAPairEvaluation `yaml:"qa_pairs,omitempty"`
	QAError     string                   `yaml:"qa_error,omitempty"`
}

type BatchResult struct {
	Code    string
	QAPairs []models.QAPair
	Report  BatchReport
	Files   []string
}

type BatchRunner struct {
	assistant  BatchAssistant
	evaluator  *Evaluator
	log        logger.Logger
	maxRetries int
}

func NewBatchRunner(assistant BatchAssistant, log logger.Logger) *BatchRunner {
	if log == nil {
		log = logger.NewNop()
	}
	return &BatchRunner{assistant: assistant, evaluator: NewEvaluator(), log: log, maxRetries: MaxRetries}
}

func loadCSV(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return dataset.Parse(f)
}

// Run generates a multi-chart script and question-answer pairs for a CSV,
// scores both and writes chart.py, qa_pairs.json and report.yaml.
func (b *BatchRunner) Run(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	ds, err := loadCSV(opts.CSVPath)
	if err != nil {
		return nil, err
	}
	if len(opts.ChartTypes) == 0 {
		return nil, dataset.ErrNoChartTypes
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.OutputSize <= 0 {
		opts.OutputSize = 8
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	code, attempts, err := b.generateCode(ctx, opts)
	if err != nil {
		return nil, err
	}

	profile := ds.Profile()
	report := BatchReport{
		CSVPath:     opts.CSVPath,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		ChartTypes:  opts.ChartTypes,
		BatchSize:   opts.BatchSize,
		OutputSize:  opts.OutputSize,
		Attempts:    attempts,
		Profile:     profile,
	}
	for _, t := range opts.ChartTypes {
		report.Charts = append(report.Charts, b.evaluator.EvaluateChartCode(profile, t, code))
	}

	result := &BatchResult{Code: code}
	pairs, err := b.assistant.GenerateQAPairs(ctx, opts.APIKey, ds.Markdown(opts.BatchSize), opts.OutputSize)
	if err != nil {
		if ai.IsPermanent(err) || ctx.Err() != nil {
			return nil, err
		}
		b.log.Warn("BATCH", "question-answer generation failed", map[string]interface{}{"error": err.Error()})
		report.QAError = err.Error()
	} else {
		eval := b.evaluator.EvaluateQAPairs(ds, opts.BatchSize, opts.OutputSize, pairs)
		report.QAPairs = &eval
		result.QAPairs = pairs
	}
	result.Report = report

	codePath := filepath.Join(opts.OutputDir, "chart.py")
	if err := os.WriteFile(codePath, []byte(code+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write chart.py: %w", err)
	}
	result.Files = append(result.Files, codePath)

	if result.QAPairs != nil {
		qaPath := filepath.Join(opts.OutputDir, "qa_pairs.json")
		data, err := json.MarshalIndent(result.QAPairs, "", "    ")
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(qaPath, data, 0644); err != nil {
			return nil, fmt.Errorf("write qa_pairs.json: %w", err)
		}
		result.Files = append(result.Files, qaPath)
	}

	reportPath := filepath.Join(opts.OutputDir, "report.yaml")
	data, err := yaml.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write report.yaml: %w", err)
	}
	result.Files = append(result.Files, reportPath)

	b.log.Info("BATCH", "batch run finished", map[string]interface{}{
		"csv":      opts.CSVPath,
		"attempts": attempts,
		"files":    result.Files,
	})
	return result, nil
}

// generateCode asks for the script until a non-empty code block comes back.
func (b *BatchRunner) generateCode(ctx context.Context, opts BatchOptions) (string, int, error) {
	absPath, err := filepath.Abs(opts.CSVPath)
	if err != nil {
		absPath = opts.CSVPath
	}
	spec := ai.BatchChartSpec{
		CSVPath:    filepath.ToSlash(absPath),
		ChartTypes: opts.ChartTypes,
		BatchSize:  opts.BatchSize,
		OutputSize: opts.OutputSize,
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		code, err := b.assistant.GenerateBatchChartCode(ctx, opts.APIKey, spec)
		switch {
		case err != nil:
			if ai.IsPermanent(err) || ctx.Err() != nil {
				return "", attempt, err
			}
			lastErr = err
		case strings.TrimSpace(code) == "":
			lastErr = ErrNoCode
		default:
			return code, attempt, nil
		}
		b.log.Warn("BATCH", "chart code attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
	}
	return "", b.maxRetries, fmt.Errorf("max retries reached: %w", lastErr)
}

type ChartReview struct {
	Image  string `json:"image" yaml:"image"`
	Review string `json:"review,omitempty" yaml:"review,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ReviewCharts has the vision model check every image in imagesDir against
// the same question-answer pairs. Images are visited in name order.
func (b *BatchRunner) ReviewCharts(ctx context.Context, apiKey, csvPath string, batchSize int, imagesDir string, pairs []models.QAPair) ([]ChartReview, error) {
	ds, err := loadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("read images: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".png" || ext == ".jpg" || ext == ".jpeg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	table := ds.Markdown(batchSize)
	reviews := make([]ChartReview, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(imagesDir, name))
		if err != nil {
			return reviews, err
		}
		uri := "data:" + mimetype.Detect(raw).String() + ";base64," + base64.StdEncoding.EncodeToString(raw)
		review, err := b.assistant.EvaluateChartImage(ctx, apiKey, uri, table, pairs)
		if err != nil {
			if ai.IsPermanent(err) || ctx.Err() != nil {
				return reviews, err
			}
			reviews = append(reviews, ChartReview{Image: name, Error: err.Error()})
			continue
		}
		reviews = append(reviews, ChartReview{Image: name, Review: review})
	}
	return reviews, nil
}

// LoadQAPairs reads a qa_pairs.json written by Run.
func LoadQAPairs(path string) ([]models.QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ai.ParseQAPairs(string(data))
}
