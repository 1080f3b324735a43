package translator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/hub"
)

// HubClient is the part of hub.Client the model-hub backends use.
type HubClient interface {
	ModelInfo(ctx context.Context, model string) (*hub.ModelInfo, error)
	Infer(ctx context.Context, model string, req hub.InferenceRequest) (string, error)
}

// hubModel is one lazily verified model on the hub.
type hubModel struct {
	backend string
	name    string
	client  HubClient
	logger  zerolog.Logger
	init    lazyInit
}

func (m *hubModel) ensure(ctx context.Context) error {
	return m.init.Do(ctx, func(ctx context.Context) error {
		if err := checkHubModel(ctx, m.client, m.logger, m.backend, m.name); err != nil {
			return &InitError{Backend: m.backend, Model: m.name, Cause: err}
		}
		return nil
	})
}

func checkHubModel(ctx context.Context, client HubClient, logger zerolog.Logger, backend, name string) error {
	start := time.Now()
	if _, err := client.ModelInfo(ctx, name); err != nil {
		logger.Error().Err(err).Str("backend", backend).Str("model", name).Msg("model load failed")
		return err
	}
	logger.Info().
		Str("backend", backend).
		Str("model", name).
		Dur("latency", time.Since(start)).
		Msg("model loaded")
	return nil
}
