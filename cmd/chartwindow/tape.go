package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/chartwindow/internal/storage"
)

var tapeCmd = &cobra.Command{
	Use:   "tape <file.jsonl>",
	Short: "Summarise a recorded bar tape",
	Args:  cobra.ExactArgs(1),
	RunE:  runTape,
}

func init() {
	rootCmd.AddCommand(tapeCmd)
}

type tapeStat struct {
	records int
	first   string
	last    string
}

func runTape(cmd *cobra.Command, args []string) error {
	records, skipped, err := storage.ReadTape(args[0])
	if err != nil {
		return err
	}

	stats := map[string]*tapeStat{}
	for _, rec := range records {
		key := rec.Symbol + " " + string(rec.Timeframe) + " " + rec.Source
		st, ok := stats[key]
		if !ok {
			st = &tapeStat{first: rec.Bar.Timestamp}
			stats[key] = st
		}
		st.records++
		if rec.Bar.Timestamp < st.first {
			st.first = rec.Bar.Timestamp
		}
		if rec.Bar.Timestamp > st.last {
			st.last = rec.Bar.Timestamp
		}
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL TF SOURCE\tRECORDS\tFIRST\tLAST")
	for _, k := range keys {
		st := stats[k]
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", k, st.records, st.first, st.last)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d malformed lines skipped\n", skipped)
	}
	return nil
}
