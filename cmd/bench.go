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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/transbench/internal"
	"github.com/valpere/transbench/internal/benchmark"
	"github.com/valpere/transbench/internal/config"
)

var (
	benchSuite  string
	benchTarget string
	benchModels []string
	benchDB     string
	benchJSON   bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a benchmark suite against several backends",
	Long: `Run every sentence of a predefined suite through the selected backends
and report average latency over successful calls, success counts and the
fastest backend. Runs are saved to the history database when one is set.

Suites: ` + strings.Join(benchmark.Suites(), ", ") + ` (unknown names use general)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("db") {
			cfg.Store.Path = benchDB
		}
		models := benchModels
		if len(models) == 0 {
			models = cfg.Preset(config.PresetCompare)
		}

		a, err := buildApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.runner().Run(context.Background(), benchmark.Request{
			Suite:          benchSuite,
			TargetLanguage: benchTarget,
			Models:         models,
		})
		if err != nil {
			return err
		}

		if benchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		return printRun(run)
	},
}

func printRun(run *internal.BenchmarkRun) error {
	fmt.Printf("Run %s: suite %s, %s, %d sentences in %s\n",
		run.ID, run.Suite, run.TargetLanguage, len(run.Items), run.Duration.Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSUCCESS\tAVG LATENCY")
	for _, st := range run.Stats {
		fmt.Fprintf(w, "%s\t%d/%d\t%.3fs\n", st.Backend, st.Successes, st.Attempts, st.AvgLatency)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if run.Fastest != "" {
		fmt.Printf("Fastest: %s\n", run.Fastest)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVar(&benchSuite, "suite", benchmark.DefaultSuite, "Benchmark suite")
	benchCmd.Flags().StringVarP(&benchTarget, "target", "t", "", "Target language (default from config)")
	benchCmd.Flags().StringSliceVar(&benchModels, "models", nil, "Backends to benchmark (default: compare preset)")
	benchCmd.Flags().StringVar(&benchDB, "db", "", "History database path (overrides store.path)")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "Print the full run as JSON")
}
