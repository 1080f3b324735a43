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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/valpere/transbench/internal/benchmark"
	"github.com/valpere/transbench/internal/detector"
	"github.com/valpere/transbench/internal/hub"
	"github.com/valpere/transbench/internal/metrics"
	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/postprocess"
	"github.com/valpere/transbench/internal/registry"
	"github.com/valpere/transbench/internal/store"
	"github.com/valpere/transbench/internal/translator"
	"github.com/valpere/transbench/internal/validator"
)

// app is the wired core shared by every command.
type app struct {
	registry *registry.Registry
	orch     *orchestrator.Orchestrator
	stats    *metrics.Stats
	store    *store.Store
}

// buildApp wires backends, the orchestrator and, when withStore is set and a
// path is configured, the benchmark history store.
func buildApp(withStore bool) (*app, error) {
	stats := metrics.New()

	reg, err := buildRegistry(hub.New(cfg.Hub), stats)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(reg, cfg.DispatchConfig(),
		orchestrator.WithLogger(logger),
		orchestrator.WithRecorder(stats),
		orchestrator.WithLanguageChecker(validator.New(detector.TargetLanguages...)),
	)

	a := &app{registry: reg, orch: orch, stats: stats}
	if withStore && cfg.Store.Path != "" {
		if a.store, err = openStore(cfg.Store.Path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	a.registry.Release()
	if a.store != nil {
		a.store.Close()
	}
}

// runner returns a benchmark runner persisting to the store when one is open.
func (a *app) runner() *benchmark.Runner {
	if a.store == nil {
		return benchmark.NewRunner(a.orch, nil, logger)
	}
	return benchmark.NewRunner(a.orch, a.store, logger)
}

// buildRegistry registers every enabled backend in configuration order.
func buildRegistry(hubClient translator.HubClient, stats *metrics.Stats) (*registry.Registry, error) {
	reg := registry.New()

	for _, id := range cfg.Enabled() {
		b, err := newBackend(id, cfg.Backends[id], hubClient)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(b); err != nil {
			return nil, err
		}
		if err := stats.TrackReadiness(id, b.State); err != nil {
			return nil, fmt.Errorf("track readiness of %s: %w", id, err)
		}
	}

	if len(reg.IDs()) == 0 {
		return nil, fmt.Errorf("no backends enabled")
	}
	reg.Seal()
	return reg, nil
}

func newBackend(id string, sc translator.ServiceConfig, hubClient translator.HubClient) (translator.Backend, error) {
	switch id {
	case translator.MarianID:
		return translator.NewMarianBackend(hubClient, logger), nil
	case translator.M2M100ID:
		return translator.NewM2M100Backend(hubClient, sc, logger), nil
	case translator.MadladID:
		return translator.NewMadladBackend(hubClient, sc, logger), nil
	case translator.GoogleID:
		return translator.NewGoogleBackend(sc, logger), nil
	case translator.ChatGPTID:
		return translator.NewChatGPTBackend(sc, logger), nil
	case translator.MyMemoryID:
		return translator.NewMyMemoryService(sc), nil
	case translator.OllamaID:
		return translator.NewOllamaTranslator(sc, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", id)
	}
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// readText returns --text when set, otherwise the contents of --input.
func readText(text, inputFile string) (string, error) {
	if text != "" {
		return text, nil
	}
	if inputFile == "" {
		return "", fmt.Errorf("either --text or --input is required")
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// usageContext builds a post-processing context from --domain and
// --ref name=confidence flags. It returns nil when both are empty.
func usageContext(domain string, refs map[string]string) (*postprocess.Context, error) {
	if domain == "" && len(refs) == 0 {
		return nil, nil
	}
	uc := &postprocess.Context{Domain: domain}
	if len(refs) > 0 {
		uc.KeyReferences = make(map[string]float64, len(refs))
		for name, raw := range refs {
			conf, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid confidence for %q: %w", name, err)
			}
			uc.KeyReferences[name] = conf
		}
	}
	return uc, nil
}
