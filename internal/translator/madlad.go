package translator

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/hub"
)

const (
	MadladID           = "madlad"
	defaultMadladModel = "google/madlad400-3b-mt"
)

var madladCodes = codeTable{
	"english":  "en",
	"french":   "fr",
	"spanish":  "es",
	"german":   "de",
	"japanese": "ja",
	"korean":   "ko",
	"chinese":  "zh",
	"tamil":    "ta",
}

// MadladBackend selects the target language with a <2xx> input prefix.
// Languages outside its table fail hard.
type MadladBackend struct {
	model hubModel
}

func NewMadladBackend(client HubClient, cfg ServiceConfig, logger zerolog.Logger) *MadladBackend {
	name := cfg.Model
	if name == "" {
		name = defaultMadladModel
	}
	return &MadladBackend{model: hubModel{backend: MadladID, name: name, client: client, logger: logger}}
}

func (b *MadladBackend) Descriptor() Descriptor {
	return Descriptor{
		ID:          MadladID,
		DisplayName: "MADLAD-400",
		Provider:    "Google",
		Languages:   madladCodes.names(),
	}
}

func (b *MadladBackend) Initialize(ctx context.Context) error {
	return b.model.ensure(ctx)
}

func (b *MadladBackend) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(b.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	code, ok := madladCodes.resolve(req.TargetLang)
	if !ok {
		result.Fail(unsupported(req.TargetLang))
		return result
	}
	if err := b.model.ensure(ctx); err != nil {
		result.Fail(err)
		return result
	}

	prefix := "<2" + code + ">"
	text, err := b.model.client.Infer(ctx, b.model.name, hub.InferenceRequest{
		Inputs:     prefix + " " + req.Text,
		Parameters: map[string]any{"max_new_tokens": 512},
	})
	if err != nil {
		result.Fail(&UpstreamError{Backend: MadladID, Cause: err})
		return result
	}

	text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
	if text == "" {
		result.Fail(&UpstreamError{Backend: MadladID, Cause: errEmptyOutput})
		return result
	}
	result.Succeed(text)
	return result
}

func (b *MadladBackend) State() InitState {
	return b.model.init.State()
}

func (b *MadladBackend) Release() {
	b.model.init.Reset()
}
