// Package export writes a normalized price table as CSV or Parquet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"StockDash/internal/frame"
	"StockDash/internal/model"
)

// Format names accepted by Write.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Record is the Parquet schema: one row per present cell of the table.
type Record struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Column    string  `parquet:"column"`
	Value     float64 `parquet:"value"`
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	if format == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

// Write dispatches on format.
func Write(w io.Writer, format, symbol string, f *frame.Frame) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, f)
	case FormatParquet:
		return WriteParquet(w, symbol, f)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Records converts a frame into long-format rows, skipping missing cells.
func Records(symbol string, f *frame.Frame) []Record {
	var out []Record
	for i, ts := range f.Index {
		if ts.IsZero() {
			continue
		}
		for _, c := range f.Columns {
			v := c.Values[i]
			if frame.Missing(v) {
				continue
			}
			out = append(out, Record{
				Symbol:    symbol,
				Timestamp: ts.UnixMilli(),
				Column:    c.Label(),
				Value:     v,
			})
		}
	}
	return out
}

// WriteParquet streams the frame as Parquet records.
func WriteParquet(w io.Writer, symbol string, f *frame.Frame) error {
	pw := parquet.NewGenericWriter[Record](w)
	if _, err := pw.Write(Records(symbol, f)); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteCSV writes a wide table: Date followed by one column per label.
// Missing cells are left empty.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Date"}, f.Names()...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range f.Rows(0) {
		if row.Time.IsZero() {
			continue
		}
		rec := make([]string, 0, len(row.Values)+1)
		rec = append(rec, formatTime(row))
		for _, v := range row.Values {
			if v == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(*v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(row model.Row) string {
	t := row.Time
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(model.DateLayout)
	}
	return t.Format("2006-01-02 15:04:05")
}
