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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/transbench/internal/httpapi"
)

var (
	servePreload bool
	serveHost    string
	servePort    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving translation, comparison, benchmark and
health endpoints. With --preload every enabled backend marked preload: true
is initialized before the server accepts requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if servePreload {
			if err := a.registry.Preload(ctx, cfg.PreloadIDs(), logger); err != nil {
				logger.Warn().Err(err).Msg("some backends failed to preload")
			}
		}

		opts := httpapi.Options{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}
		if cmd.Flags().Changed("host") {
			opts.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			opts.Port = servePort
		}

		srv := httpapi.NewServer(httpapi.Deps{
			Dispatcher: a.orch,
			Catalog:    a.registry,
			Benchmarks: a.runner(),
			Stats:      a.stats,
			Presets:    cfg.Orchestrator.Presets,
		}, logger, opts)

		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&servePreload, "preload", false, "Initialize preload backends at startup")
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "Listen port (overrides server.port)")
}
