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

	"github.com/spf13/cobra"

	"github.com/valpere/transbench/internal/comparator"
	"github.com/valpere/transbench/internal/config"
	"github.com/valpere/transbench/internal/orchestrator"
)

var (
	compareText   string
	compareInput  string
	compareTarget string
	comparePreset string
	compareModels []string
	compareJSON   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Translate with several backends and compare the results",
	Long: `Send the same text to several backends concurrently and report each
result with latency, success rate, the fastest backend and pairwise metrics.

Presets (configurable under orchestrator.presets):
  - compare         marian, google
  - compare_three   marian, m2m100, madlad
  - compare_custom  marian, m2m100

Use --models to pick backends directly: --models marian,chatgpt,ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(compareText, compareInput)
		if err != nil {
			return err
		}

		models := compareModels
		if len(models) == 0 {
			models = cfg.Preset(comparePreset)
			if len(models) == 0 {
				return fmt.Errorf("unknown preset: %s", comparePreset)
			}
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.orch.Compare(context.Background(), orchestrator.Request{
			Text:           text,
			TargetLanguage: compareTarget,
			Models:         models,
		})
		if err != nil {
			return err
		}

		if compareJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return printReport(report)
	},
}

func printReport(report *comparator.Report) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSTATUS\tLATENCY\tLANG\tOUTPUT")
	for _, id := range report.SelectedModels {
		r := report.Results[id]
		output := r.Text()
		if !r.OK() {
			output = r.ErrorMessage()
		}
		fmt.Fprintf(w, "%s\t%s\t%.3fs\t%s\t%s\n", id, r.Status, r.LatencySeconds(), r.DetectedLanguage, output)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	sum := report.Comparison
	fmt.Printf("\nTarget language: %s\n", report.TargetLanguage)
	fmt.Printf("Success rate:    %.0f%% (%d/%d)\n", sum.SuccessRate*100, len(sum.SuccessfulModels), sum.TotalModels)
	if sum.Fastest != "" {
		fmt.Printf("Fastest:         %s\n", sum.Fastest)
		fmt.Printf("Ranking:         %s\n", strings.Join(sum.LatencyRanking, " < "))
	}
	if len(sum.LanguageMismatches) > 0 {
		fmt.Printf("Wrong language:  %s\n", strings.Join(sum.LanguageMismatches, ", "))
	}
	for _, p := range sum.Pairwise {
		if !p.Available {
			fmt.Printf("%s vs %s: %s\n", p.Models[0], p.Models[1], p.Note)
			continue
		}
		fmt.Printf("%s vs %s: same=%v length_diff=%+d speed_diff=%+.3fs (%s)\n",
			p.Models[0], p.Models[1], *p.AreSame, *p.LengthDiff, *p.SpeedDiff, p.Note)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareText, "text", "", "Text to translate")
	compareCmd.Flags().StringVarP(&compareInput, "input", "i", "", "Input file to translate (instead of --text)")
	compareCmd.Flags().StringVarP(&compareTarget, "target", "t", "", "Target language (default from config)")
	compareCmd.Flags().StringVar(&comparePreset, "preset", config.PresetCompare, "Model preset to compare")
	compareCmd.Flags().StringSliceVar(&compareModels, "models", nil, "Backends to compare (overrides --preset)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Print the full report as JSON")
}
