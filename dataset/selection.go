package dataset

import (
	"errors"
	"fmt"
	"slices"

	"datachat/validation"
)

const (
	MinSelections = 1
	MaxSelections = 10
)

var (
	ErrMinSelection   = errors.New("selection below minimum")
	ErrMaxSelection   = errors.New("selection above maximum")
	ErrOutOfRange     = errors.New("row index out of range")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrNoChartTypes   = errors.New("you must select at least one chart type")
	ErrEmptySelection = errors.New("select at least one row and one column")
)

// BoundsError reports a selection that would leave MinSelections..MaxSelections.
// It matches ErrMinSelection or ErrMaxSelection with errors.Is.
type BoundsError struct {
	Noun string
	Over bool
}

func (e *BoundsError) Error() string {
	if e.Over {
		return fmt.Sprintf("You cannot select more than %d %ss.", MaxSelections, e.Noun)
	}
	return fmt.Sprintf("You must select at least %d %s(s).", MinSelections, e.Noun)
}

func (e *BoundsError) Is(target error) bool {
	if e.Over {
		return target == ErrMaxSelection
	}
	return target == ErrMinSelection
}

// Selection holds the chosen row indices and column names. Both are ordered
// sets bounded to MinSelections..MaxSelections once initialised.
type Selection struct {
	Rows    []int    `json:"rows"`
	Columns []string `json:"columns"`
}

// DefaultSelection picks the first row and the first column.
func DefaultSelection(d *Dataset) *Selection {
	sel := &Selection{Rows: []int{}, Columns: []string{}}
	if d.Len() > 0 && len(d.Headers) > 0 {
		sel.Rows = []int{0}
		sel.Columns = []string{d.Headers[0]}
	}
	return sel
}

func (s *Selection) Empty() bool {
	return len(s.Rows) == 0 || len(s.Columns) == 0
}

// ToggleRow adds or removes a row. A toggle that would break the bounds
// returns an error and leaves the selection unchanged.
func (s *Selection) ToggleRow(d *Dataset, idx int) error {
	if idx < 0 || idx >= d.Len() {
		return fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	rows, err := toggle(s.Rows, idx, "row")
	if err != nil {
		return err
	}
	s.Rows = rows
	return nil
}

func (s *Selection) ToggleColumn(d *Dataset, name string) error {
	if !d.HasColumn(name) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	cols, err := toggle(s.Columns, name, "column")
	if err != nil {
		return err
	}
	s.Columns = cols
	return nil
}

func toggle[T comparable](set []T, v T, noun string) ([]T, error) {
	if i := slices.Index(set, v); i >= 0 {
		if len(set) <= MinSelections {
			return nil, &BoundsError{Noun: noun}
		}
		return slices.Delete(slices.Clone(set), i, i+1), nil
	}
	if len(set) >= MaxSelections {
		return nil, &BoundsError{Noun: noun, Over: true}
	}
	return append(slices.Clone(set), v), nil
}

// Set replaces both sets after validating them against d. Duplicates
// collapse and the first occurrence keeps its position.
func (s *Selection) Set(d *Dataset, rows []int, columns []string) error {
	r := dedupe(rows)
	c := dedupe(columns)
	if err := checkBounds(len(r), "row"); err != nil {
		return err
	}
	if err := checkBounds(len(c), "column"); err != nil {
		return err
	}
	for _, idx := range r {
		if idx < 0 || idx >= d.Len() {
			return fmt.Errorf("%w: %d", ErrOutOfRange, idx)
		}
	}
	for _, name := range c {
		if !d.HasColumn(name) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
	}
	s.Rows, s.Columns = r, c
	return nil
}

func checkBounds(n int, noun string) error {
	if n < MinSelections {
		return &BoundsError{Noun: noun}
	}
	if n > MaxSelections {
		return &BoundsError{Noun: noun, Over: true}
	}
	return nil
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ChartTypeSet is the user's chosen chart types; never empty once built.
type ChartTypeSet []string

// NewChartTypeSet normalises and de-duplicates types. An empty input
// selects "bar", matching the initial UI state.
func NewChartTypeSet(types []string) (ChartTypeSet, error) {
	if len(types) == 0 {
		return ChartTypeSet{"bar"}, nil
	}
	out := make(ChartTypeSet, 0, len(types))
	for _, t := range types {
		n, err := validation.NormalizeChartType(t)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Truncate keeps the first n types when the chart size drops below the
// number of selected types. n <= 0 leaves the set as is.
func (c ChartTypeSet) Truncate(n int) ChartTypeSet {
	if n <= 0 || len(c) <= n {
		return c
	}
	return slices.Clone(c[:n])
}

// TypeFor returns the chart type for the j-th chart of a run.
func (c ChartTypeSet) TypeFor(j int) string {
	return c[j%len(c)]
}
