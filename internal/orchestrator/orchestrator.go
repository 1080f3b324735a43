package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/comparator"
	"github.com/valpere/transbench/internal/postprocess"
	"github.com/valpere/transbench/internal/translator"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultLanguage = "french"
)

type OrchestratorConfig struct {
	Timeout         time.Duration            `mapstructure:"timeout"`
	Timeouts        map[string]time.Duration `mapstructure:"timeouts"`
	DefaultLanguage string                   `mapstructure:"default_language"`
}

// Resolver finds a backend by id; *registry.Registry implements it.
type Resolver interface {
	Resolve(id string) (translator.Backend, error)
}

// Recorder is told about every attempted backend invocation.
type Recorder interface {
	Record(r translator.Result)
}

// LanguageChecker reports the detected language of a translation and an
// error when it differs from the expected ISO code.
type LanguageChecker interface {
	Check(text, targetISO string) (string, error)
}

type Request struct {
	Text           string               `json:"text"`
	TargetLanguage string               `json:"targetLanguage"`
	Models         []string             `json:"models"`
	Context        *postprocess.Context `json:"context,omitempty"`
}

// ValidationError rejects a whole request before any backend is called.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Orchestrator struct {
	backends Resolver
	config   OrchestratorConfig
	logger   zerolog.Logger
	recorder Recorder
	checker  LanguageChecker
}

type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithLanguageChecker(c LanguageChecker) Option {
	return func(o *Orchestrator) { o.checker = c }
}

func New(backends Resolver, config OrchestratorConfig, opts ...Option) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(config.DefaultLanguage) == "" {
		config.DefaultLanguage = DefaultLanguage
	}
	o := &Orchestrator{
		backends: backends,
		config:   config,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Compare fans the request out to every requested backend and waits for
// all of them. Only validation errors are returned; backend failures are
// part of the report.
func (o *Orchestrator) Compare(ctx context.Context, req Request) (*comparator.Report, error) {
	if err := validateText(req.Text); err != nil {
		return nil, err
	}
	ids, err := uniqueIDs(req.Models)
	if err != nil {
		return nil, err
	}
	lang := o.language(req.TargetLanguage)

	results := o.Execute(ctx, ids, req.Text, lang, req.Context)

	report := comparator.CompareMany(results)
	report.SourceText = req.Text
	report.TargetLanguage = lang
	if o.checker != nil {
		report.Comparison.LanguageMismatches = comparator.LanguageMismatches(results, isoCode(lang))
	}
	return &report, nil
}

// TranslateOne runs a single backend. An unknown id yields a failed result,
// not an error.
func (o *Orchestrator) TranslateOne(ctx context.Context, backendID string, req Request) (translator.Result, error) {
	if err := validateText(req.Text); err != nil {
		return translator.Result{}, err
	}
	ids, err := uniqueIDs([]string{backendID})
	if err != nil {
		return translator.Result{}, err
	}
	results := o.Execute(ctx, ids, req.Text, o.language(req.TargetLanguage), req.Context)
	return results[0], nil
}

// Execute returns one result per id, in the order given. ids must already
// be unique.
func (o *Orchestrator) Execute(ctx context.Context, ids []string, text, lang string, usage *postprocess.Context) []translator.Result {
	results := make([]translator.Result, len(ids))
	treq := translator.TranslateRequest{Text: text, TargetLang: lang}

	type resultChan struct {
		index int
		res   translator.Result
	}
	resultChanSlice := make(chan resultChan, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		backend, err := o.backends.Resolve(id)
		if err != nil {
			results[i] = unknownResult(id)
			o.logger.Warn().Str("backend", id).Msg("unknown backend requested")
			continue
		}

		wg.Add(1)
		go func(index int, id string, backend translator.Backend) {
			defer wg.Done()
			resultChanSlice <- resultChan{index: index, res: o.invoke(ctx, id, backend, treq)}
		}(i, id, backend)
	}

	go func() {
		wg.Wait()
		close(resultChanSlice)
	}()

	iso := isoCode(lang)
	for rc := range resultChanSlice {
		res := rc.res
		if o.recorder != nil {
			o.recorder.Record(res)
		}
		if res.OK() {
			o.finish(&res, iso, usage)
		}
		results[rc.index] = res
	}
	return results
}

func (o *Orchestrator) invoke(ctx context.Context, id string, backend translator.Backend, req translator.TranslateRequest) translator.Result {
	timeout := o.timeoutFor(id)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	desc := backend.Descriptor()
	start := time.Now()
	done := make(chan translator.Result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				r := translator.NewResult(desc)
				r.Fail(fmt.Errorf("backend panicked: %v", p))
				r.Latency = time.Since(start)
				done <- r
			}
		}()
		done <- backend.Translate(callCtx, req)
	}()

	var res translator.Result
	select {
	case res = <-done:
		if res.Latency <= 0 {
			res.Latency = time.Since(start)
		}
	case <-callCtx.Done():
		res = translator.NewResult(desc)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			res.Fail(fmt.Errorf("timeout after %s", timeout))
			res.Latency = timeout
		} else {
			res.Fail(fmt.Errorf("cancelled: %w", ctx.Err()))
			res.Latency = time.Since(start)
		}
	}

	res = normalize(res, id, desc)
	if !res.OK() {
		o.logger.Warn().
			Str("backend", id).
			Str("language", req.TargetLang).
			Dur("latency", res.Latency).
			Str("error", res.ErrorMessage()).
			Msg("backend failed")
	} else {
		o.logger.Debug().
			Str("backend", id).
			Str("language", req.TargetLang).
			Dur("latency", res.Latency).
			Msg("backend succeeded")
	}
	return res
}

// finish applies usage context and the output language check to a
// successful result.
func (o *Orchestrator) finish(res *translator.Result, iso string, usage *postprocess.Context) {
	if !usage.Empty() {
		adapted := postprocess.Adapt(res.Text(), iso, usage)
		res.Succeed(adapted)
		res.SetMeta("context_adapted", "true")
	}
	if o.checker == nil {
		return
	}
	detected, err := o.checker.Check(res.Text(), iso)
	res.DetectedLanguage = detected
	if err != nil {
		o.logger.Warn().Err(err).Str("backend", res.BackendID).Msg("output language mismatch")
	}
}

func (o *Orchestrator) timeoutFor(id string) time.Duration {
	if d, ok := o.config.Timeouts[id]; ok && d > 0 {
		return d
	}
	return o.config.Timeout
}

func (o *Orchestrator) language(raw string) string {
	if lang := translator.NormalizeLanguage(raw); lang != "" {
		return lang
	}
	return translator.NormalizeLanguage(o.config.DefaultLanguage)
}

// normalize enforces the result invariants whatever the backend returned.
func normalize(res translator.Result, id string, desc translator.Descriptor) translator.Result {
	res.BackendID = id
	if res.Model == "" {
		res.Model = desc.DisplayName
	}
	switch {
	case res.Status == translator.StatusSuccess && res.Translation != nil:
		res.Error = nil
	case res.Status == translator.StatusSuccess:
		res.Fail(errors.New("backend returned no translation"))
	default:
		msg := res.ErrorMessage()
		if msg == "" {
			msg = "translation failed"
		}
		res.Fail(errors.New(msg))
	}
	if res.Latency < 0 {
		res.Latency = 0
	}
	return res
}

func unknownResult(id string) translator.Result {
	res := translator.NewResult(translator.Descriptor{ID: id, DisplayName: id})
	res.Fail(fmt.Errorf("Unknown model: %s", id))
	return res
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: translator.ErrEmptyText.Error()}
	}
	return nil
}

// uniqueIDs normalizes ids and keeps the first occurrence of each.
func uniqueIDs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Field: "models", Message: "no models selected"}
	}
	seen := make(map[string]bool, len(raw))
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		id := strings.ToLower(strings.TrimSpace(r))
		if id == "" {
			return nil, &ValidationError{Field: "models", Message: "empty model id"}
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func isoCode(lang string) string {
	if l, ok := translator.LookupLanguage(lang); ok {
		return l.ISO
	}
	return ""
}
