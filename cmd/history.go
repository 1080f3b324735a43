/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/transbench/internal/store"
)

var (
	historyDBPath string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved benchmark runs",
	Long:  `List, inspect and summarize benchmark runs saved in the SQLite history database.`,
}

func openHistory(cmd *cobra.Command) (*store.Store, error) {
	path := cfg.Store.Path
	if cmd.Flags().Changed("db") || path == "" {
		path = historyDBPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no history database at %s: %w", path, err)
	}
	return openStore(path)
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent benchmark runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListBenchmarkRuns(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No benchmark runs saved.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSUITE\tLANGUAGE\tMODELS\tFASTEST\tDURATION")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Suite, r.TargetLanguage,
				strings.Join(r.Models, ","), r.Fastest, r.Duration)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one benchmark run with every sentence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetBenchmarkRun(context.Background(), args[0])
		if err != nil {
			return err
		}
		if err := printRun(run); err != nil {
			return err
		}

		for _, it := range run.Items {
			fmt.Printf("\n[%d] %s\n", it.Index+1, it.Original)
			for _, o := range it.Outcomes {
				output := o.Translation
				if o.Error != "" {
					output = "ERROR: " + o.Error
				}
				fmt.Printf("  %-10s %.3fs  %s\n", o.Backend, o.Latency, output)
			}
		}
		return nil
	},
}

var historyBackendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Summarize every backend across all saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		sums, err := db.BackendSummaries(context.Background())
		if err != nil {
			return fmt.Errorf("failed to summarize backends: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BACKEND\tRUNS\tSUCCESS\tAVG LATENCY")
		for _, s := range sums {
			fmt.Fprintf(w, "%s\t%d\t%d/%d\t%.3fs\n", s.Backend, s.Runs, s.Successes, s.Attempts, s.AvgLatency)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "./data/transbench.db", "Database path (default store.path)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyBackendsCmd)
}
