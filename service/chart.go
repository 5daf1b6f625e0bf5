package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"datachat/ai"
	"datachat/dataset"
	"datachat/logger"
	"datachat/models"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize  = 2
	DefaultChunkPause = 200 * time.Millisecond
)

// ChartCoder produces the raw model reply for one chart.
type ChartCoder interface {
	GenerateChartCode(ctx context.Context, apiKey string, spec ai.ChartSpec) (string, error)
}

// ChartRun is one fan-out request.
type ChartRun struct {
	// MessageID keys the run in the registry; empty runs are not registered.
	MessageID string
	// Data is sent to the model with its columns in header order.
	Data      *dataset.Dataset
	Prompt    string
	Types     dataset.ChartTypeSet
	ChartSize int
	// Count defaults to ChartSize when zero.
	Count  int
	APIKey string
}

type ChartGenerator struct {
	coder     ChartCoder
	runs      *RunRegistry
	log       logger.Logger
	chunkSize int
	pause     time.Duration
}

func NewChartGenerator(coder ChartCoder, runs *RunRegistry, log logger.Logger) *ChartGenerator {
	if runs == nil {
		runs = NewRunRegistry()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ChartGenerator{
		coder:     coder,
		runs:      runs,
		log:       log,
		chunkSize: DefaultChunkSize,
		pause:     DefaultChunkPause,
	}
}

// WithChunking overrides the chunk size and the pause between chunks.
func (g *ChartGenerator) WithChunking(size int, pause time.Duration) *ChartGenerator {
	if size > 0 {
		g.chunkSize = size
	}
	if pause >= 0 {
		g.pause = pause
	}
	return g
}

func (g *ChartGenerator) Runs() *RunRegistry { return g.runs }

// Generate requests run.Count charts, chunkSize at a time, pausing between
// chunks. Chart j uses Types[j % len(Types)]. Charts that fail are logged and
// skipped. onChunk, when set, receives each chunk's results in index order.
// On cancellation the results gathered so far are returned with the context
// error.
func (g *ChartGenerator) Generate(ctx context.Context, run ChartRun, onChunk func([]models.ChartResult)) ([]models.ChartResult, error) {
	if len(run.Types) == 0 {
		return nil, dataset.ErrNoChartTypes
	}
	if run.Data == nil || run.Data.Len() == 0 {
		return nil, dataset.ErrEmptySelection
	}
	count := run.Count
	if count <= 0 {
		count = run.ChartSize
	}
	if count <= 0 {
		return []models.ChartResult{}, nil
	}
	types := run.Types
	if run.ChartSize > 0 {
		types = types.Truncate(run.ChartSize)
	}

	payload := run.Data.RowsJSON()

	if run.MessageID != "" {
		var done func()
		ctx, done = g.runs.Start(ctx, run.MessageID)
		defer done()
	}

	g.log.Info("CHART", "chart run started", map[string]interface{}{
		"message_id": run.MessageID,
		"count":      count,
		"types":      []string(types),
	})

	results := make([]models.ChartResult, 0, count)
	for start := 0; start < count; start += g.chunkSize {
		if start > 0 {
			if err := sleepCtx(ctx, g.pause); err != nil {
				return results, err
			}
		}
		end := min(start+g.chunkSize, count)

		chunk, err := g.runChunk(ctx, run, payload, types, start, end)
		results = append(results, chunk...)
		if err != nil {
			return results, err
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if onChunk != nil && len(chunk) > 0 {
			onChunk(chunk)
		}
	}

	g.log.Info("CHART", "chart run finished", map[string]interface{}{
		"message_id": run.MessageID,
		"requested":  count,
		"succeeded":  len(results),
	})
	return results, nil
}

// runChunk requests charts [start, end) concurrently. Only errors that would
// fail every chart (missing or rejected key) are returned.
func (g *ChartGenerator) runChunk(ctx context.Context, run ChartRun, payload json.RawMessage, types dataset.ChartTypeSet, start, end int) ([]models.ChartResult, error) {
	slots := make([]*models.ChartResult, end-start)

	var eg errgroup.Group
	eg.SetLimit(g.chunkSize)
	for j := start; j < end; j++ {
		j := j
		chartType := types.TypeFor(j)
		eg.Go(func() error {
			reply, err := g.coder.GenerateChartCode(ctx, run.APIKey, ai.ChartSpec{
				Data:      payload,
				Prompt:    run.Prompt,
				ChartType: chartType,
				ChartSize: run.ChartSize,
			})
			if err != nil {
				if ai.IsPermanent(err) {
					return err
				}
				if !errors.Is(err, context.Canceled) {
					g.log.Warn("CHART", "chart generation failed", map[string]interface{}{
						"message_id": run.MessageID,
						"index":      j,
						"type":       chartType,
						"error":      err.Error(),
					})
				}
				return nil
			}
			slots[j-start] = &models.ChartResult{
				Index: j,
				Type:  chartType,
				Code:  ai.ExtractPythonCode(reply),
			}
			return nil
		})
	}
	err := eg.Wait()

	out := make([]models.ChartResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunRegistry holds one cancel function per message so a new run, or an
// explicit Cancel, aborts the previous one.
type RunRegistry struct {
	mu   sync.Mutex
	seq  uint64
	runs map[string]runEntry
}

type runEntry struct {
	id     uint64
	cancel context.CancelFunc
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]runEntry)}
}

// Start cancels any run registered under key and registers a new one. The
// returned function releases the registration and must be called when the
// run ends.
func (r *RunRegistry) Start(parent context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if prev, ok := r.runs[key]; ok {
		prev.cancel()
	}
	r.seq++
	id := r.seq
	r.runs[key] = runEntry{id: id, cancel: cancel}
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		if cur, ok := r.runs[key]; ok && cur.id == id {
			delete(r.runs, key)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Cancel aborts the run registered under key. It reports whether one was running.
func (r *RunRegistry) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[key]
	if !ok {
		return false
	}
	entry.cancel()
	delete(r.runs, key)
	return true
}

func (r *RunRegistry) Active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[key]
	return ok
}
