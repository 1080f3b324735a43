package translator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/hub"
)

const (
	MarianID              = "marian"
	marianDefaultLanguage = "french"
)

// ModelRef is what a Marian lookup yields: SingleModel or FallbackChain.
type ModelRef interface {
	isModelRef()
}

type SingleModel struct {
	Name string
}

// FallbackChain lists candidate models tried in order until one loads.
type FallbackChain struct {
	Names []string
}

func (SingleModel) isModelRef()   {}
func (FallbackChain) isModelRef() {}

var marianModels = map[string]ModelRef{
	"french":     SingleModel{"Helsinki-NLP/opus-mt-en-fr"},
	"spanish":    SingleModel{"Helsinki-NLP/opus-mt-en-es"},
	"german":     SingleModel{"Helsinki-NLP/opus-mt-en-de"},
	"italian":    SingleModel{"Helsinki-NLP/opus-mt-en-it"},
	"japanese":   SingleModel{"Helsinki-NLP/opus-mt-en-jap"},
	"chinese":    SingleModel{"Helsinki-NLP/opus-mt-en-zh"},
	"portuguese": SingleModel{"Helsinki-NLP/opus-mt-en-roa"},
	"dutch":      SingleModel{"Helsinki-NLP/opus-mt-en-nl"},
	"korean":     SingleModel{"Helsinki-NLP/opus-mt-en-ko"},
	"thai":       SingleModel{"Helsinki-NLP/opus-mt-en-th"},
	"vietnamese": SingleModel{"Helsinki-NLP/opus-mt-en-vi"},
	"indonesian": SingleModel{"Helsinki-NLP/opus-mt-en-id"},
	"tamil":      SingleModel{"Helsinki-NLP/opus-mt-en-ta"},
	"malay": FallbackChain{[]string{
		"Helsinki-NLP/opus-mt-en-ms",
		"Helsinki-NLP/opus-mt-en-id",
	}},
}

// LookupMarianModel resolves a target language to its model reference.
// Unknown languages resolve to the French model with fellBack set.
func LookupMarianModel(raw string) (lang string, ref ModelRef, fellBack bool) {
	key := NormalizeLanguage(raw)
	if ref, ok := marianModels[key]; ok {
		return key, ref, false
	}
	if l, ok := LookupLanguage(key); ok {
		if ref, ok := marianModels[l.Name]; ok {
			return l.Name, ref, false
		}
	}
	return marianDefaultLanguage, marianModels[marianDefaultLanguage], true
}

type marianShard struct {
	init  lazyInit
	model string
}

// MarianBackend keeps one model per target language, each loaded on first
// use. Unknown target languages fall back to French; the result's metadata
// records the substitution.
type MarianBackend struct {
	client HubClient
	logger zerolog.Logger

	mu     sync.RWMutex
	shards map[string]*marianShard
}

func NewMarianBackend(client HubClient, logger zerolog.Logger) *MarianBackend {
	return &MarianBackend{
		client: client,
		logger: logger,
		shards: make(map[string]*marianShard),
	}
}

func (b *MarianBackend) Descriptor() Descriptor {
	langs := make([]string, 0, len(marianModels))
	for name := range marianModels {
		langs = append(langs, name)
	}
	sort.Strings(langs)
	return Descriptor{
		ID:          MarianID,
		DisplayName: "MarianMT",
		Provider:    "Helsinki-NLP",
		Languages:   langs,
	}
}

// Initialize loads the default language model.
func (b *MarianBackend) Initialize(ctx context.Context) error {
	return b.InitializeLanguage(ctx, marianDefaultLanguage)
}

func (b *MarianBackend) InitializeLanguage(ctx context.Context, raw string) error {
	lang, ref, _ := LookupMarianModel(raw)
	_, err := b.ensure(ctx, lang, ref)
	return err
}

func (b *MarianBackend) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(b.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}

	lang, ref, fellBack := LookupMarianModel(req.TargetLang)
	if fellBack {
		b.logger.Warn().
			Str("backend", MarianID).
			Str("language", req.TargetLang).
			Msg("unsupported language, using french model")
		result.SetMeta("language_fallback", fmt.Sprintf("%s -> %s", req.TargetLang, lang))
	}

	model, err := b.ensure(ctx, lang, ref)
	if err != nil {
		result.Fail(err)
		return result
	}
	result.SetMeta("hub_model", model)

	text, err := b.client.Infer(ctx, model, hub.InferenceRequest{Inputs: req.Text})
	if err != nil {
		result.Fail(&UpstreamError{Backend: MarianID, Cause: err})
		return result
	}
	result.Succeed(text)
	return result
}

// State reports the most advanced state across language shards.
func (b *MarianBackend) State() InitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := NotLoaded
	for _, shard := range b.shards {
		switch s := shard.init.State(); {
		case s == Ready:
			return Ready
		case s == Loading:
			state = Loading
		case s == Failed && state == NotLoaded:
			state = Failed
		}
	}
	return state
}

// ShardStates returns the state of every language seen so far.
func (b *MarianBackend) ShardStates() map[string]InitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]InitState, len(b.shards))
	for lang, shard := range b.shards {
		out[lang] = shard.init.State()
	}
	return out
}

func (b *MarianBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shards = make(map[string]*marianShard)
}

func (b *MarianBackend) shard(lang string) *marianShard {
	b.mu.RLock()
	shard, ok := b.shards[lang]
	b.mu.RUnlock()
	if ok {
		return shard
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if shard, ok := b.shards[lang]; ok {
		return shard
	}
	shard = &marianShard{}
	b.shards[lang] = shard
	return shard
}

func (b *MarianBackend) ensure(ctx context.Context, lang string, ref ModelRef) (string, error) {
	shard := b.shard(lang)
	err := shard.init.Do(ctx, func(ctx context.Context) error {
		var names []string
		switch r := ref.(type) {
		case SingleModel:
			names = []string{r.Name}
		case FallbackChain:
			names = r.Names
		default:
			return &InitError{Backend: MarianID, Cause: fmt.Errorf("no model for %s", lang)}
		}

		var errs []error
		for _, name := range names {
			if err := checkHubModel(ctx, b.client, b.logger, MarianID, name); err != nil {
				errs = append(errs, err)
				continue
			}
			shard.model = name
			return nil
		}
		return &InitError{Backend: MarianID, Model: strings.Join(names, ", "), Cause: errors.Join(errs...)}
	})
	if err != nil {
		return "", err
	}
	return shard.model, nil
}
