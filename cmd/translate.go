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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/translator"
)

var (
	inputFile  string
	outputFile string
	inputText  string
	targetLang string
	modelID    string
	domain     string
	references map[string]string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate text with a single backend",
	Long: `Translate text with one backend and report its latency.

Available backends:
  - marian      MarianMT models from the model hub (default)
  - m2m100      M2M-100 from the model hub
  - madlad      MADLAD-400 from the model hub
  - google      Google Cloud Translation (requires credentials)
  - chatgpt     OpenAI chat completion (requires OPENAI_API_KEY)
  - mymemory    MyMemory (free, 5000 chars/day)
  - ollama      Ollama LLM (self-hosted)

Context adaptation:
  --domain museum_tour --ref "Leonardo da Vinci=0.9"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile != "" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readText(inputText, inputFile)
		if err != nil {
			return err
		}
		usage, err := usageContext(domain, references)
		if err != nil {
			return err
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.orch.TranslateOne(context.Background(), modelID, orchestrator.Request{
			Text:           text,
			TargetLanguage: targetLang,
			Context:        usage,
		})
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("%s failed after %.3fs: %s", res.BackendID, res.LatencySeconds(), res.ErrorMessage())
		}

		if outputFile == "" {
			fmt.Println(res.Text())
		} else {
			if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := os.WriteFile(outputFile, []byte(res.Text()), 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		}

		fmt.Fprintf(os.Stderr, "Translated with %s (%s) in %.3fs\n", res.Model, res.BackendID, res.LatencySeconds())
		if res.DetectedLanguage != "" {
			fmt.Fprintf(os.Stderr, "Detected output language: %s\n", res.DetectedLanguage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (stdout when empty)")
	translateCmd.Flags().StringVar(&inputText, "text", "", "Text to translate (instead of --input)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language, e.g. french (default from config)")
	translateCmd.Flags().StringVarP(&modelID, "model", "m", translator.MarianID, "Backend to use")
	translateCmd.Flags().StringVar(&domain, "domain", "", "Usage domain for context adaptation (museum_tour, art_gallery)")
	translateCmd.Flags().StringToStringVar(&references, "ref", nil, "Key reference with confidence, name=0.9 (repeatable)")
}
