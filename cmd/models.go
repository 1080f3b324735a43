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

	"github.com/valpere/transbench/internal/translator"
)

var modelsInit bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List enabled backends and supported languages",
	Long: `List every enabled backend with its provider, initialization state and
language table. With --init each backend is initialized first, which surfaces
missing credentials or unavailable models.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if modelsInit {
			for _, b := range a.registry.Backends() {
				if err := b.Initialize(context.Background()); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", b.Descriptor().ID, err)
				}
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tPROVIDER\tSTATE\tLANGUAGES")
		for _, b := range a.registry.Backends() {
			d := b.Descriptor()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.DisplayName, d.Provider, b.State(), strings.Join(d.Languages, ","))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tNATIVE\tISO")
		for _, l := range translator.Languages() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Name, l.Label, l.Native, l.ISO)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsInit, "init", false, "Initialize every backend before listing")
}
