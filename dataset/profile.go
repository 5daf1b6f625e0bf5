package dataset

import (
	"strconv"
	"strings"
	"time"
)

type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindDatetime    ColumnKind = "datetime"
	KindCategorical ColumnKind = "categorical"
)

type ColumnProfile struct {
	Name       string     `json:"name" yaml:"name"`
	Kind       ColumnKind `json:"kind" yaml:"kind"`
	Identifier bool       `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Distinct   int        `json:"distinct" yaml:"distinct"`
	Empty      int        `json:"empty" yaml:"empty"`
}

type Profile struct {
	Columns []ColumnProfile `json:"columns" yaml:"columns"`
}

func (p Profile) names(kind ColumnKind) []string {
	var out []string
	for _, c := range p.Columns {
		if c.Kind == kind && !c.Identifier {
			out = append(out, c.Name)
		}
	}
	return out
}

func (p Profile) Numeric() []string     { return p.names(KindNumeric) }
func (p Profile) Datetime() []string    { return p.names(KindDatetime) }
func (p Profile) Categorical() []string { return p.names(KindCategorical) }

// Profile infers a kind per column. A column is numeric or datetime when
// every non-empty value parses as such; everything else is categorical.
// Columns whose name looks like an id, or whose values are all distinct
// integers, are flagged as identifiers.
func (d *Dataset) Profile() Profile {
	prof := Profile{Columns: make([]ColumnProfile, 0, len(d.Headers))}
	for _, h := range d.Headers {
		cp := ColumnProfile{Name: h}
		distinct := map[string]struct{}{}
		numeric, datetime, ints := true, true, true
		seen := 0
		for _, row := range d.Rows {
			v := strings.TrimSpace(row[h])
			if v == "" {
				cp.Empty++
				continue
			}
			seen++
			distinct[v] = struct{}{}
			if numeric {
				if _, ok := parseNumeric(v); !ok {
					numeric = false
				}
			}
			if ints {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					ints = false
				}
			}
			if datetime {
				if _, ok := parseTimeMaybe(v); !ok {
					datetime = false
				}
			}
		}
		cp.Distinct = len(distinct)
		switch {
		case seen == 0:
			cp.Kind = KindCategorical
		case numeric:
			cp.Kind = KindNumeric
		case datetime:
			cp.Kind = KindDatetime
		default:
			cp.Kind = KindCategorical
		}
		cp.Identifier = looksLikeIdentifier(h) || (ints && seen > 1 && cp.Distinct == seen && cp.Kind == KindNumeric && isSequential(d, h))
		prof.Columns = append(prof.Columns, cp)
	}
	return prof
}

func looksLikeIdentifier(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == "id" || n == "uuid" || n == "index" || strings.HasSuffix(n, "_id") || strings.HasSuffix(n, " id")
}

// isSequential reports whether the integer values increase by exactly one.
func isSequential(d *Dataset, col string) bool {
	var prev int64
	first := true
	for _, row := range d.Rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false
		}
		if !first && n != prev+1 {
			return false
		}
		prev, first = n, false
	}
	return true
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric accepts thousands separators, a trailing percent sign and a
// leading currency symbol.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimLeft(raw, "$€£¥")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
