package translator

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/hub"
)

const (
	M2M100ID           = "m2m100"
	defaultM2M100Model = "facebook/m2m100_418M"
)

var m2m100Codes = codeTable{
	"english":  "en",
	"french":   "fr",
	"spanish":  "es",
	"german":   "de",
	"japanese": "ja",
	"korean":   "ko",
	"chinese":  "zh",
	"tamil":    "ta",
}

// M2M100Backend fails hard on languages outside its table.
type M2M100Backend struct {
	model hubModel
}

func NewM2M100Backend(client HubClient, cfg ServiceConfig, logger zerolog.Logger) *M2M100Backend {
	name := cfg.Model
	if name == "" {
		name = defaultM2M100Model
	}
	return &M2M100Backend{model: hubModel{backend: M2M100ID, name: name, client: client, logger: logger}}
}

func (b *M2M100Backend) Descriptor() Descriptor {
	return Descriptor{
		ID:          M2M100ID,
		DisplayName: "M2M-100",
		Provider:    "Facebook",
		Languages:   m2m100Codes.names(),
	}
}

func (b *M2M100Backend) Initialize(ctx context.Context) error {
	return b.model.ensure(ctx)
}

func (b *M2M100Backend) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(b.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	code, ok := m2m100Codes.resolve(req.TargetLang)
	if !ok {
		result.Fail(unsupported(req.TargetLang))
		return result
	}
	if err := b.model.ensure(ctx); err != nil {
		result.Fail(err)
		return result
	}

	text, err := b.model.client.Infer(ctx, b.model.name, hub.InferenceRequest{
		Inputs:     req.Text,
		Parameters: map[string]any{"src_lang": "en", "tgt_lang": code},
	})
	if err != nil {
		result.Fail(&UpstreamError{Backend: M2M100ID, Cause: err})
		return result
	}
	result.Succeed(text)
	return result
}

func (b *M2M100Backend) State() InitState {
	return b.model.init.State()
}

func (b *M2M100Backend) Release() {
	b.model.init.Reset()
}
