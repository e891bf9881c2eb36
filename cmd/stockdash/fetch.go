package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"StockDash/internal/config"
	"StockDash/internal/dashboard"
	"StockDash/internal/export"
	"StockDash/internal/model"
)

// queryFlags are shared by fetch and forecast.
type queryFlags struct {
	start    string
	end      string
	interval string
	column   string
	tail     int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "start date YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date YYYY-MM-DD, exclusive (default tomorrow)")
	cmd.Flags().StringVar(&f.interval, "interval", "", "bar interval: "+strings.Join(model.Intervals, ", "))
	cmd.Flags().StringVar(&f.column, "column", "", "column to summarize (default: first Close column)")
	cmd.Flags().IntVar(&f.tail, "tail", 0, "print only the last N rows")
}

func (f *queryFlags) query(ticker string, d dashboard.Defaults, now time.Time) (model.Query, error) {
	q := model.Query{
		Ticker:     ticker,
		Start:      d.Start,
		Interval:   d.Interval,
		Column:     f.column,
		Projection: model.ProjectionNone,
		Seed:       d.Seed,
		Horizon:    d.Horizon,
		Tail:       f.tail,
	}
	var err error
	if f.start != "" {
		if q.Start, err = parseDate(f.start); err != nil {
			return q, fmt.Errorf("--start: %w", err)
		}
	}
	q.End = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if f.end != "" {
		if q.End, err = parseDate(f.end); err != nil {
			return q, fmt.Errorf("--end: %w", err)
		}
	}
	if f.interval != "" {
		q.Interval = f.interval
	}
	return q, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, strings.TrimSpace(s))
}

func newFetchCmd(cfg *config.Config) *cobra.Command {
	var (
		qf     queryFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "fetch TICKER",
		Short: "Fetch a price table and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := qf.query(args[0], a.defaults, time.Now())
			if err != nil {
				return err
			}
			view, err := runView(cmd.Context(), a, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "table":
				return printTable(out, view)
			case export.FormatCSV, export.FormatParquet:
				if view.Frame == nil {
					return fmt.Errorf("%s", dashboard.WarnNoData)
				}
				return export.Write(out, format, view.Query.Ticker, view.Frame)
			}
			return fmt.Errorf("unknown --format %q", format)
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv, parquet")
	return cmd
}

// runView runs one interaction and turns validation errors into command errors.
func runView(ctx context.Context, a *app, q model.Query) (*dashboard.View, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	view, err := a.svc.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	if view.Error != "" {
		return nil, fmt.Errorf("%w: %s", dashboard.ErrInvalidQuery, view.Error)
	}
	return view, nil
}

func printTable(w io.Writer, view *dashboard.View) error {
	for _, msg := range view.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	if len(view.Rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Date\t%s\t\n", strings.Join(view.Columns, "\t"))
	for _, row := range view.Rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			if v != nil {
				cells[i] = model.FormatPrice(*v)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", stamp(row.Time, view.Query.Interval), strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s := view.Summary; s != nil {
		fmt.Fprintf(w, "\n%s  last %s  change %s (%+.2f%%)  high %s  low %s\n",
			view.Selected, model.FormatPrice(s.Last), model.FormatChange(s.Change), s.ChangePct,
			model.FormatPrice(s.High), model.FormatPrice(s.Low))
	}
	return nil
}

func stamp(t time.Time, interval string) string {
	switch interval {
	case "1d", "1wk", "1mo":
		return t.Format(model.DateLayout)
	}
	return t.Format("2006-01-02 15:04")
}
