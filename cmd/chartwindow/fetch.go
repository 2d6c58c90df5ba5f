package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/chartwindow/internal/chartdata"
	"github.com/dgnsrekt/chartwindow/internal/config"
	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/types"
)

func newFetchCmd() *cobra.Command {
	var (
		symbol    string
		timeframe string
		direction string
		startStr  string
		limit     int
		fillGaps  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one page of bars from the historical data API and print it as JSON",
		Example: `  chartwindow fetch --symbol AAPL --timeframe 1h --limit 50
  chartwindow fetch --symbol AAPL --timeframe 1m --direction centered --start 2024-03-05T14:30:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tf, err := types.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			dir, err := types.ParseDirection(direction)
			if err != nil {
				return err
			}
			q := types.Query{Symbol: symbol, Timeframe: tf, Limit: limit, Direction: dir}
			if startStr != "" {
				if q.Start, err = types.ParseTimestamp(startStr); err != nil {
					return fmt.Errorf("bad --start: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout+5*time.Second)
			defer cancel()
			client := chartdata.New(cfg.DataURL, cfg.DataToken, cfg.FetchTimeout)
			bars, err := client.FetchBars(ctx, q)
			if err != nil {
				return err
			}
			if fillGaps && tf == types.Timeframe1m && len(bars) > 0 {
				bars = series.FillMinuteGaps(bars, bars[len(bars)-1].Time(), series.DefaultMaxGap)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bars)
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "instrument symbol (required)")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1h", "bar timeframe (1m, 5m, 15m, 30m, 1h, 2h, 4h, 1d, 1w, 1M)")
	cmd.Flags().StringVarP(&direction, "direction", "d", string(types.DirectionPast), "past, future or centered")
	cmd.Flags().StringVar(&startStr, "start", "", "RFC 3339 anchor timestamp; empty means now")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum bars to request")
	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "fill short 1m gaps with synthetic bars")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func init() {
	rootCmd.AddCommand(newFetchCmd())
}
