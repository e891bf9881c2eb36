package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"StockDash/internal/config"
	"StockDash/internal/model"
)

func newForecastCmd(cfg *config.Config) *cobra.Command {
	var (
		qf      queryFlags
		mode    string
		seed    int64
		horizon int
	)
	cmd := &cobra.Command{
		Use:   "forecast TICKER",
		Short: "Project a ticker forward with the model or a seeded random walk",
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
			q.Projection = model.ProjectionMode(mode)
			if cmd.Flags().Changed("seed") {
				q.Seed = seed
			}
			if cmd.Flags().Changed("horizon") {
				q.Horizon = horizon
			}

			view, err := runView(cmd.Context(), a, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, msg := range view.Warnings {
				fmt.Fprintf(out, "warning: %s\n", msg)
			}
			if view.Forecast == nil {
				return fmt.Errorf("no forecast for %s", view.Query.Ticker)
			}
			if len(view.Points) > 0 {
				last := view.Points[len(view.Points)-1]
				fmt.Fprintf(out, "%s %s last %s\n", view.Query.Ticker, stamp(last.Time, q.Interval), model.FormatPrice(last.Value))
			}
			fmt.Fprintf(out, "method: %s\n", view.Forecast.Method)
			for _, p := range view.Forecast.Points {
				fmt.Fprintf(out, "%s\t%s\n", stamp(p.Time, q.Interval), model.FormatPrice(p.Value))
			}
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(model.ProjectionRandom), "projection mode: model or random")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random walk seed")
	cmd.Flags().IntVar(&horizon, "horizon", 30, "random walk horizon in business days")
	return cmd
}
