package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"datachat/ai"
	"datachat/dataset"
	"datachat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoder struct {
	mu    sync.Mutex
	types []string
	data  []string
	fail  func(spec ai.ChartSpec) error
	block chan struct{}
	start chan struct{}

	inFlight int32
	peak     int32
}

func (f *fakeCoder) GenerateChartCode(ctx context.Context, apiKey string, spec ai.ChartSpec) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.types = append(f.types, spec.ChartType)
	f.data = append(f.data, string(spec.Data))
	f.mu.Unlock()

	if f.start != nil {
		select {
		case f.start <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail != nil {
		if err := f.fail(spec); err != nil {
			return "", err
		}
	}
	return "Here:\n```python\nplot_" + spec.ChartType + "()\n```", nil
}

var sampleData = &dataset.Dataset{
	Headers: []string{"sales", "region"},
	Rows:    []map[string]string{{"region": "North", "sales": "10"}},
}

func newTestGenerator(coder ChartCoder) *ChartGenerator {
	return NewChartGenerator(coder, NewRunRegistry(), nil).WithChunking(2, 0)
}

func TestGenerateCyclesTypesInChunks(t *testing.T) {
	coder := &fakeCoder{}
	g := newTestGenerator(coder)

	var chunks [][]models.ChartResult
	results, err := g.Generate(context.Background(), ChartRun{
		MessageID: "m1",
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar", "line"},
		ChartSize: 5,
	}, func(c []models.ChartResult) { chunks = append(chunks, c) })
	require.NoError(t, err)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, []string{"bar", "line"}[i%2], r.Type)
		assert.Equal(t, "plot_"+r.Type+"()", r.Code)
	}
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
	assert.Len(t, chunks[2], 1)
	assert.False(t, g.Runs().Active("m1"))
}

func TestGenerateTruncatesTypesToChartSize(t *testing.T) {
	coder := &fakeCoder{}
	g := newTestGenerator(coder)

	results, err := g.Generate(context.Background(), ChartRun{
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar", "line", "pie", "area"},
		ChartSize: 2,
		Count:     4,
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Contains(t, []string{"bar", "line"}, r.Type)
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	g := newTestGenerator(&fakeCoder{})

	_, err := g.Generate(context.Background(), ChartRun{Data: sampleData, ChartSize: 2}, nil)
	assert.ErrorIs(t, err, dataset.ErrNoChartTypes)

	_, err = g.Generate(context.Background(), ChartRun{Types: dataset.ChartTypeSet{"bar"}, ChartSize: 2}, nil)
	assert.ErrorIs(t, err, dataset.ErrEmptySelection)

	results, err := g.Generate(context.Background(), ChartRun{Data: sampleData, Types: dataset.ChartTypeSet{"bar"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGenerateSkipsFailedCharts(t *testing.T) {
	coder := &fakeCoder{fail: func(spec ai.ChartSpec) error {
		if spec.ChartType == "line" {
			return &ai.ServerError{APIError: &ai.APIError{StatusCode: 500}}
		}
		return nil
	}}
	g := newTestGenerator(coder)

	results, err := g.Generate(context.Background(), ChartRun{
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar", "line"},
		ChartSize: 4,
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 2, results[1].Index)
}

func TestGenerateStopsOnPermanentError(t *testing.T) {
	coder := &fakeCoder{fail: func(ai.ChartSpec) error {
		return &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}
	}}
	g := newTestGenerator(coder)

	results, err := g.Generate(context.Background(), ChartRun{
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar"},
		ChartSize: 6,
	}, nil)
	var auth *ai.AuthError
	assert.ErrorAs(t, err, &auth)
	assert.Empty(t, results)
	assert.LessOrEqual(t, len(coder.types), 2, "no chunk after the first one is requested")
}

func TestGeneratePausesBetweenChunks(t *testing.T) {
	g := NewChartGenerator(&fakeCoder{}, nil, nil).WithChunking(2, 30*time.Millisecond)

	start := time.Now()
	results, err := g.Generate(context.Background(), ChartRun{
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar"},
		ChartSize: 5,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestCancelStopsRun(t *testing.T) {
	coder := &fakeCoder{block: make(chan struct{}), start: make(chan struct{}, 1)}
	g := newTestGenerator(coder)

	type outcome struct {
		results []models.ChartResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := g.Generate(context.Background(), ChartRun{
			MessageID: "m1",
			Data:      sampleData,
			Types:     dataset.ChartTypeSet{"bar"},
			ChartSize: 6,
		}, nil)
		done <- outcome{r, err}
	}()

	select {
	case <-coder.start:
	case <-time.After(2 * time.Second):
		t.Fatal("run never started")
	}
	assert.True(t, g.Runs().Cancel("m1"))

	select {
	case out := <-done:
		assert.True(t, errors.Is(out.err, context.Canceled))
		assert.Empty(t, out.results)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.False(t, g.Runs().Cancel("m1"))
}

func TestRunRegistryReplacesPreviousRun(t *testing.T) {
	r := NewRunRegistry()

	first, releaseFirst := r.Start(context.Background(), "m1")
	second, releaseSecond := r.Start(context.Background(), "m1")

	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, second.Err())

	releaseFirst()
	assert.True(t, r.Active("m1"), "releasing a replaced run keeps the newer one")

	releaseSecond()
	assert.False(t, r.Active("m1"))
	assert.ErrorIs(t, second.Err(), context.Canceled)
}

func TestGenerateSendsRowsInHeaderOrder(t *testing.T) {
	coder := &fakeCoder{}
	g := newTestGenerator(coder)

	_, err := g.Generate(context.Background(), ChartRun{
		Data:      sampleData,
		Types:     dataset.ChartTypeSet{"bar"},
		ChartSize: 1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{`[{"sales":"10","region":"North"}]`}, coder.data)
}

func TestGenerateKeepsAtMostTwoRequestsInFlight(t *testing.T) {
	coder := &fakeCoder{block: make(chan struct{}), start: make(chan struct{}, 6)}
	g := newTestGenerator(coder)

	var chunks [][]int
	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), ChartRun{
			Data:      sampleData,
			Types:     dataset.ChartTypeSet{"bar"},
			ChartSize: 6,
		}, func(c []models.ChartResult) {
			var idx []int
			for _, r := range c {
				idx = append(idx, r.Index)
			}
			chunks = append(chunks, idx)
		})
		done <- err
	}()

	for chunk := 0; chunk < 3; chunk++ {
		for i := 0; i < 2; i++ {
			select {
			case <-coder.start:
			case <-time.After(time.Second):
				t.Fatalf("chunk %d: request %d did not start", chunk, i)
			}
		}
		select {
		case <-coder.start:
			t.Fatalf("chunk %d: a third request started while two were pending", chunk)
		case <-time.After(30 * time.Millisecond):
		}
		coder.block <- struct{}{}
		coder.block <- struct{}{}
	}

	require.NoError(t, <-done)
	assert.LessOrEqual(t, atomic.LoadInt32(&coder.peak), int32(2))
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4, 5}}, chunks)
}
