package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/hub"
)

type fakeHub struct {
	missing map[string]bool
	delay   time.Duration
	reply   func(model string, req hub.InferenceRequest) (string, error)

	infoCalls  atomic.Int32
	inferCalls atomic.Int32

	mu        sync.Mutex
	lastModel string
	lastReq   hub.InferenceRequest
}

func (f *fakeHub) ModelInfo(ctx context.Context, model string) (*hub.ModelInfo, error) {
	f.infoCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.missing[model] {
		return nil, fmt.Errorf("%w: %s", hub.ErrModelNotFound, model)
	}
	return &hub.ModelInfo{ID: model, PipelineTag: "translation"}, nil
}

func (f *fakeHub) Infer(ctx context.Context, model string, req hub.InferenceRequest) (string, error) {
	f.inferCalls.Add(1)
	f.mu.Lock()
	f.lastModel = model
	f.lastReq = req
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(model, req)
	}
	return "translated by " + model, nil
}

func (f *fakeHub) last() (string, hub.InferenceRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastModel, f.lastReq
}

func TestLookupMarianModel(t *testing.T) {
	tests := []struct {
		input    string
		lang     string
		fellBack bool
	}{
		{"french", "french", false},
		{"  Spanish ", "spanish", false},
		{"fr", "french", false},
		{"bahasa", "malay", false},
		{"klingon", "french", true},
		{"", "french", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lang, ref, fellBack := LookupMarianModel(tt.input)
			if lang != tt.lang {
				t.Errorf("expected %q, got %q", tt.lang, lang)
			}
			if fellBack != tt.fellBack {
				t.Errorf("expected fellBack=%v, got %v", tt.fellBack, fellBack)
			}
			if ref == nil {
				t.Error("expected a model reference")
			}
		})
	}
}

func TestLookupMarianModel_MalayIsChain(t *testing.T) {
	_, ref, _ := LookupMarianModel("malay")
	chain, ok := ref.(FallbackChain)
	if !ok {
		t.Fatalf("expected FallbackChain, got %T", ref)
	}
	if len(chain.Names) != 2 || chain.Names[0] != "Helsinki-NLP/opus-mt-en-ms" {
		t.Errorf("unexpected chain %v", chain.Names)
	}

	_, ref, _ = LookupMarianModel("german")
	if _, ok := ref.(SingleModel); !ok {
		t.Errorf("expected SingleModel for german, got %T", ref)
	}
}

func TestMarianBackend_Translate(t *testing.T) {
	h := &fakeHub{}
	b := NewMarianBackend(h, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "German"})

	if !result.OK() {
		t.Fatalf("expected success, got %q", result.ErrorMessage())
	}
	if result.Text() != "translated by Helsinki-NLP/opus-mt-en-de" {
		t.Errorf("unexpected translation %q", result.Text())
	}
	if result.Model != "MarianMT" {
		t.Errorf("expected display name MarianMT, got %q", result.Model)
	}
	if result.BackendID != MarianID {
		t.Errorf("expected backend id %q, got %q", MarianID, result.BackendID)
	}
	if result.Latency <= 0 {
		t.Error("expected positive latency")
	}
	if b.State() != Ready {
		t.Errorf("expected Ready, got %s", b.State())
	}
}

func TestMarianBackend_UnknownLanguageFallsBackToFrench(t *testing.T) {
	h := &fakeHub{}
	b := NewMarianBackend(h, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "klingon"})

	if !result.OK() {
		t.Fatalf("expected success, got %q", result.ErrorMessage())
	}
	model, _ := h.last()
	if model != "Helsinki-NLP/opus-mt-en-fr" {
		t.Errorf("expected french model, got %q", model)
	}
	if result.Metadata["language_fallback"] != "klingon -> french" {
		t.Errorf("expected fallback note, got %v", result.Metadata)
	}
}

func TestMarianBackend_FallbackChain(t *testing.T) {
	h := &fakeHub{missing: map[string]bool{"Helsinki-NLP/opus-mt-en-ms": true}}
	b := NewMarianBackend(h, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "malay"})

	if !result.OK() {
		t.Fatalf("expected success, got %q", result.ErrorMessage())
	}
	if result.Metadata["hub_model"] != "Helsinki-NLP/opus-mt-en-id" {
		t.Errorf("expected second chain entry, got %q", result.Metadata["hub_model"])
	}
	if got := h.infoCalls.Load(); got != 2 {
		t.Errorf("expected 2 model lookups, got %d", got)
	}
}

func TestMarianBackend_InitFailureIsRemembered(t *testing.T) {
	h := &fakeHub{missing: map[string]bool{
		"Helsinki-NLP/opus-mt-en-ms": true,
		"Helsinki-NLP/opus-mt-en-id": true,
	}}
	b := NewMarianBackend(h, zerolog.Nop())

	first := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "malay"})
	second := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "malay"})

	for _, r := range []Result{first, second} {
		if r.OK() || r.Translation != nil {
			t.Fatal("expected failure without translation")
		}
		msg := r.ErrorMessage()
		if !strings.Contains(msg, "opus-mt-en-ms") || !strings.Contains(msg, "opus-mt-en-id") {
			t.Errorf("expected every tried model in error, got %q", msg)
		}
	}
	if got := h.infoCalls.Load(); got != 2 {
		t.Errorf("expected load attempted once (2 lookups), got %d", got)
	}
	if got := h.inferCalls.Load(); got != 0 {
		t.Errorf("expected no inference, got %d", got)
	}
	if b.State() != Failed {
		t.Errorf("expected Failed, got %s", b.State())
	}
	if b.ShardStates()["malay"] != Failed {
		t.Errorf("expected malay shard Failed, got %v", b.ShardStates())
	}
}

func TestMarianBackend_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	h := &fakeHub{delay: 20 * time.Millisecond}
	b := NewMarianBackend(h, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "french"}); !r.OK() {
				t.Errorf("unexpected failure: %s", r.ErrorMessage())
			}
		}()
	}
	wg.Wait()

	if got := h.infoCalls.Load(); got != 1 {
		t.Errorf("expected exactly one load, got %d", got)
	}
	if got := h.inferCalls.Load(); got != 16 {
		t.Errorf("expected 16 inferences, got %d", got)
	}
}

func TestMarianBackend_ShardsPerLanguage(t *testing.T) {
	h := &fakeHub{}
	b := NewMarianBackend(h, zerolog.Nop())

	b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "french"})
	b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "spanish"})
	b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "french"})

	if got := h.infoCalls.Load(); got != 2 {
		t.Errorf("expected one load per language, got %d", got)
	}
	if got := len(b.ShardStates()); got != 2 {
		t.Errorf("expected 2 shards, got %d", got)
	}

	b.Release()
	if b.State() != NotLoaded {
		t.Errorf("expected NotLoaded after release, got %s", b.State())
	}
}

func TestMarianBackend_EmptyText(t *testing.T) {
	h := &fakeHub{}
	b := NewMarianBackend(h, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "   ", TargetLang: "french"})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.ErrorMessage() != ErrEmptyText.Error() {
		t.Errorf("unexpected error %q", result.ErrorMessage())
	}
	if h.infoCalls.Load() != 0 || h.inferCalls.Load() != 0 {
		t.Error("expected no hub calls")
	}
}

func TestMarianBackend_UpstreamError(t *testing.T) {
	h := &fakeHub{reply: func(string, hub.InferenceRequest) (string, error) {
		return "", errors.New("inference status 503: overloaded")
	}}
	b := NewMarianBackend(h, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "french"})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.ErrorMessage(), "overloaded") {
		t.Errorf("expected upstream message, got %q", result.ErrorMessage())
	}
	if b.State() != Ready {
		t.Errorf("upstream errors must not change init state, got %s", b.State())
	}
}

func TestM2M100Backend_Translate(t *testing.T) {
	h := &fakeHub{}
	b := NewM2M100Backend(h, ServiceConfig{}, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "Japanese"})

	if !result.OK() {
		t.Fatalf("expected success, got %q", result.ErrorMessage())
	}
	model, req := h.last()
	if model != defaultM2M100Model {
		t.Errorf("expected %q, got %q", defaultM2M100Model, model)
	}
	if req.Parameters["src_lang"] != "en" || req.Parameters["tgt_lang"] != "ja" {
		t.Errorf("unexpected parameters %v", req.Parameters)
	}
}

func TestM2M100Backend_UnsupportedLanguage(t *testing.T) {
	h := &fakeHub{}
	b := NewM2M100Backend(h, ServiceConfig{}, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "thai"})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.ErrorMessage() != "Unsupported language: thai" {
		t.Errorf("unexpected error %q", result.ErrorMessage())
	}
	if h.infoCalls.Load() != 0 {
		t.Error("expected no model load for unsupported language")
	}
}

func TestM2M100Backend_ModelNotFound(t *testing.T) {
	h := &fakeHub{missing: map[string]bool{"custom/m2m": true}}
	b := NewM2M100Backend(h, ServiceConfig{Model: "custom/m2m"}, zerolog.Nop())

	err := b.Initialize(context.Background())

	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
	if !errors.Is(err, hub.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound in chain, got %v", err)
	}
	if b.State() != Failed {
		t.Errorf("expected Failed, got %s", b.State())
	}

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "french"})
	if result.OK() {
		t.Fatal("expected failure after init error")
	}
	if got := h.infoCalls.Load(); got != 1 {
		t.Errorf("expected no reload, got %d lookups", got)
	}
}

func TestM2M100Backend_SlowFailureIsRemembered(t *testing.T) {
	h := &fakeHub{delay: 100 * time.Millisecond, missing: map[string]bool{defaultM2M100Model: true}}
	b := NewM2M100Backend(h, ServiceConfig{}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		result := b.Translate(ctx, TranslateRequest{Text: "Hello", TargetLang: "french"})
		cancel()
		if result.OK() {
			t.Fatal("expected failure")
		}
	}

	if b.State() != Failed {
		t.Errorf("expected Failed, got %s", b.State())
	}
	if got := h.infoCalls.Load(); got != 1 {
		t.Errorf("expected 1 model lookup, got %d", got)
	}
}

func TestM2M100Backend_ReleaseDoesNotWaitForLoad(t *testing.T) {
	h := &fakeHub{delay: 500 * time.Millisecond}
	b := NewM2M100Backend(h, ServiceConfig{}, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- b.Initialize(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for b.State() != Loading {
		if time.Now().After(deadline) {
			t.Fatal("load never started")
		}
		time.Sleep(time.Millisecond)
	}

	start := time.Now()
	b.Release()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Release blocked for %s", elapsed)
	}

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != NotLoaded {
		t.Errorf("expected NotLoaded, got %s", b.State())
	}
}

func TestMadladBackend_Translate(t *testing.T) {
	h := &fakeHub{reply: func(model string, req hub.InferenceRequest) (string, error) {
		return "<2es> Hola", nil
	}}
	b := NewMadladBackend(h, ServiceConfig{}, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "spanish"})

	if !result.OK() {
		t.Fatalf("expected success, got %q", result.ErrorMessage())
	}
	if result.Text() != "Hola" {
		t.Errorf("expected echoed prefix stripped, got %q", result.Text())
	}
	_, req := h.last()
	if req.Inputs != "<2es> Hello" {
		t.Errorf("expected prefixed input, got %q", req.Inputs)
	}
}

func TestMadladBackend_UnsupportedLanguage(t *testing.T) {
	b := NewMadladBackend(&fakeHub{}, ServiceConfig{}, zerolog.Nop())

	result := b.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "vietnamese"})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.ErrorMessage() != "Unsupported language: vietnamese" {
		t.Errorf("unexpected error %q", result.ErrorMessage())
	}
}
