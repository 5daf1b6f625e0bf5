package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNoHeader = errors.New("csv has no header row")

// Dataset is a parsed table: an ordered header list and rows keyed by header.
type Dataset struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// Parse reads CSV with a header row. Short records are padded with empty
// strings, extra fields are dropped and rows with only empty values are
// skipped.
func Parse(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return FromRecords(header, records)
}

// FromRecords builds a Dataset from a header and raw records with the same
// rules as Parse.
func FromRecords(header []string, records [][]string) (*Dataset, error) {
	headers := normalizeHeaders(header)
	if len(headers) == 0 {
		return nil, ErrNoHeader
	}

	ds := &Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(records))}
	for _, rec := range records {
		row := make(map[string]string, len(headers))
		nonEmpty := false
		for i, h := range headers {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			if v != "" {
				nonEmpty = true
			}
			row[h] = v
		}
		if nonEmpty {
			ds.Rows = append(ds.Rows, row)
		}
	}
	return ds, nil
}

// normalizeHeaders trims names, names blank columns and disambiguates
// duplicates with a numeric suffix. Returns nil when every name is blank.
func normalizeHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, 0, len(header))
	blank := 0
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			blank++
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		out = append(out, name)
	}
	if blank == len(header) {
		return nil
	}
	return out
}

func (d *Dataset) Len() int { return len(d.Rows) }

func (d *Dataset) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Project returns the selected rows restricted to the selected columns, in
// selection order. Empty when either set is empty.
func (d *Dataset) Project(sel *Selection) []map[string]string {
	if sel == nil || len(sel.Rows) == 0 || len(sel.Columns) == 0 {
		return []map[string]string{}
	}
	out := make([]map[string]string, 0, len(sel.Rows))
	for _, idx := range sel.Rows {
		if idx < 0 || idx >= len(d.Rows) {
			continue
		}
		row := d.Rows[idx]
		projected := make(map[string]string, len(sel.Columns))
		for _, c := range sel.Columns {
			projected[c] = row[c]
		}
		out = append(out, projected)
	}
	return out
}

// RowsJSON encodes the rows as a JSON array of objects whose keys follow
// header order. Missing cells encode as "".
func (d *Dataset) RowsJSON() json.RawMessage {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, row := range d.Rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		for j, h := range d.Headers {
			if j > 0 {
				b.WriteByte(',')
			}
			key, _ := json.Marshal(h)
			val, _ := json.Marshal(row[h])
			b.Write(key)
			b.WriteByte(':')
			b.Write(val)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.Bytes()
}

// Head returns a dataset holding the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{Headers: d.Headers, Rows: d.Rows[:n]}
}

// Markdown renders the first limit rows as a markdown table; limit <= 0
// renders every row.
func (d *Dataset) Markdown(limit int) string {
	rows := d.Rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(d.Headers), " | ") + " |\n")
	b.WriteString("|")
	for range d.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(d.Headers))
		for i, h := range d.Headers {
			cells[i] = row[h]
		}
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "\n", " "), "|", "/")
	}
	return out
}
