// Package frame holds the rectangular price table a fetch produces and the
// normalization steps that make it safe to chart: column flattening, index
// ordering and invalid-row filtering.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"StockDash/internal/model"
)

// Field names of a price table, in provider order.
const (
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

// ErrUnknownColumn is returned when a selection names a column the frame lacks.
var ErrUnknownColumn = errors.New("unknown column")

// Column is a named vector of values. Name has one level for flat columns and
// two (field, ticker) for provider-style nested columns. NaN marks a missing value.
type Column struct {
	Name   []string
	Values []float64
}

// Label returns the column name with its levels joined by a single space.
func (c Column) Label() string {
	parts := make([]string, 0, len(c.Name))
	for _, p := range c.Name {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Nested reports whether the column still carries more than one name level.
func (c Column) Nested() bool { return len(c.Name) > 1 }

func (c Column) numeric() bool {
	for _, v := range c.Values {
		if !Missing(v) {
			return true
		}
	}
	return false
}

// Frame is a table of numeric columns indexed by time. A zero time is a missing date.
type Frame struct {
	Index   []time.Time
	Columns []Column
}

// New creates an empty frame over the given index.
func New(index []time.Time) *Frame {
	return &Frame{Index: index}
}

// Missing reports whether v is an absent value.
func Missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// AddColumn appends a column. values must have one entry per index row.
func (f *Frame) AddColumn(name []string, values []float64) error {
	if len(values) != len(f.Index) {
		return fmt.Errorf("column %q: %d values for %d rows", strings.Join(name, " "), len(values), len(f.Index))
	}
	f.Columns = append(f.Columns, Column{Name: name, Values: values})
	return nil
}

// FromBars builds a provider-style frame with two-level (field, symbol) column names.
func FromBars(symbol string, bars []model.OHLCV) *Frame {
	n := len(bars)
	index := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	cls := make([]float64, n)
	vol := make([]float64, n)
	for i, b := range bars {
		index[i] = b.Time
		open[i], high[i], low[i], cls[i], vol[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	f := New(index)
	f.Columns = []Column{
		{Name: []string{FieldOpen, symbol}, Values: open},
		{Name: []string{FieldHigh, symbol}, Values: high},
		{Name: []string{FieldLow, symbol}, Values: low},
		{Name: []string{FieldClose, symbol}, Values: cls},
		{Name: []string{FieldVolume, symbol}, Values: vol},
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Empty reports whether the frame has no rows or no columns.
func (f *Frame) Empty() bool { return f == nil || len(f.Index) == 0 || len(f.Columns) == 0 }

// Flatten collapses every nested column name into a single level. Already
// flat columns are left unchanged, so calling it twice is a no-op.
func (f *Frame) Flatten() *Frame {
	for i, c := range f.Columns {
		if c.Nested() {
			f.Columns[i].Name = []string{c.Label()}
		}
	}
	return f
}

// Names returns the column labels in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Label()
	}
	return names
}

// Column looks up a column by label.
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Label() == name {
			return c, true
		}
	}
	return Column{}, false
}

// Normalize drops rows with a missing date, orders rows by time and keeps only
// the last row for any repeated timestamp, leaving the index strictly increasing.
func (f *Frame) Normalize() *Frame {
	order := make([]int, 0, len(f.Index))
	for i, ts := range f.Index {
		if !ts.IsZero() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return f.Index[order[a]].Before(f.Index[order[b]]) })

	kept := order[:0]
	for _, row := range order {
		if n := len(kept); n > 0 && f.Index[kept[n-1]].Equal(f.Index[row]) {
			kept[n-1] = row
			continue
		}
		kept = append(kept, row)
	}

	index := make([]time.Time, len(kept))
	for i, row := range kept {
		index[i] = f.Index[row]
	}
	for ci, c := range f.Columns {
		vals := make([]float64, len(kept))
		for i, row := range kept {
			vals[i] = c.Values[row]
		}
		f.Columns[ci].Values = vals
	}
	f.Index = index
	return f
}

// NumericColumns returns the labels of columns holding at least one present value.
func (f *Frame) NumericColumns() []string {
	var names []string
	for _, c := range f.Columns {
		if c.numeric() {
			names = append(names, c.Label())
		}
	}
	return names
}

// DefaultColumn picks the first numeric column whose label starts with the
// Close field, falling back to the first numeric column.
func (f *Frame) DefaultColumn() (string, bool) {
	numeric := f.NumericColumns()
	if len(numeric) == 0 {
		return "", false
	}
	for _, name := range numeric {
		if name == FieldClose || strings.HasPrefix(name, FieldClose+" ") {
			return name, true
		}
	}
	return numeric[0], true
}

// FieldColumn returns the label of the first column for the given field, if any.
func (f *Frame) FieldColumn(field string) (string, bool) {
	for _, c := range f.Columns {
		if len(c.Name) > 0 && (c.Name[0] == field || strings.HasPrefix(c.Label(), field+" ")) {
			return c.Label(), true
		}
	}
	return "", false
}

// Select returns the dated values of one column, excluding rows with a
// missing date or a missing value.
func (f *Frame) Select(name string) ([]model.Point, error) {
	c, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	points := make([]model.Point, 0, len(c.Values))
	for i, v := range c.Values {
		if f.Index[i].IsZero() || Missing(v) {
			continue
		}
		points = append(points, model.Point{Time: f.Index[i], Value: v})
	}
	return points, nil
}

// Rows returns the table rows, limited to the last tail rows when tail > 0.
func (f *Frame) Rows(tail int) []model.Row {
	start := 0
	if tail > 0 && len(f.Index) > tail {
		start = len(f.Index) - tail
	}
	rows := make([]model.Row, 0, len(f.Index)-start)
	for i := start; i < len(f.Index); i++ {
		vals := make([]*float64, len(f.Columns))
		for ci, c := range f.Columns {
			if v := c.Values[i]; !Missing(v) {
				vals[ci] = &v
			}
		}
		rows = append(rows, model.Row{Time: f.Index[i], Values: vals})
	}
	return rows
}
