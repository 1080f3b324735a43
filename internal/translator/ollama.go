package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/postprocess"
)

const (
	OllamaID             = "ollama"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

// OllamaTranslator talks to a self-hosted Ollama server. Like ChatGPT it
// passes unknown target languages into the prompt verbatim.
type OllamaTranslator struct {
	baseURL string
	model   string
	client  *http.Client
	logger  zerolog.Logger
	init    lazyInit
}

func NewOllamaTranslator(cfg ServiceConfig, logger zerolog.Logger) *OllamaTranslator {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaTranslator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *OllamaTranslator) Descriptor() Descriptor {
	langs := make([]string, 0, len(languages))
	for _, lang := range Languages() {
		langs = append(langs, lang.Name)
	}
	return Descriptor{
		ID:          OllamaID,
		DisplayName: "Ollama (" + s.model + ")",
		Provider:    "Ollama",
		Languages:   langs,
	}
}

// Initialize checks that the server is up and has the configured model.
func (s *OllamaTranslator) Initialize(ctx context.Context) error {
	return s.init.Do(ctx, func(ctx context.Context) error {
		if err := s.probe(ctx); err != nil {
			s.logger.Error().Err(err).Str("backend", OllamaID).Str("model", s.model).Msg("ollama not available")
			return &InitError{Backend: OllamaID, Model: s.model, Cause: err}
		}
		return nil
	})
}

func (s *OllamaTranslator) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == s.model || strings.TrimSuffix(m.Name, ":latest") == s.model {
			return nil
		}
	}
	return fmt.Errorf("model %s not pulled", s.model)
}

func (s *OllamaTranslator) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(s.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	if err := s.Initialize(ctx); err != nil {
		result.Fail(err)
		return result
	}

	prompt := fmt.Sprintf(`Translate the following text from English to %s.
Only respond with the translation, nothing else.

Text: "%s"

Translation:`, promptLanguageName(req.TargetLang), req.Text)

	jsonData, err := json.Marshal(map[string]any{
		"model":  s.model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		result.Fail(fmt.Errorf("failed to marshal request: %w", err))
		return result
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		result.Fail(fmt.Errorf("failed to create request: %w", err))
		return result
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Fail(&UpstreamError{Backend: OllamaID, Cause: fmt.Errorf("request failed: %w", err)})
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Fail(&UpstreamError{Backend: OllamaID, Cause: fmt.Errorf("API returned status %d", resp.StatusCode)})
		return result
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		result.Fail(&UpstreamError{Backend: OllamaID, Cause: fmt.Errorf("failed to decode response: %w", err)})
		return result
	}

	text := postprocess.Clean(ollamaResp.Response, req.Text)
	if text == "" {
		result.Fail(&UpstreamError{Backend: OllamaID, Cause: errEmptyOutput})
		return result
	}
	result.Succeed(text)
	result.SetMeta("llm_model", s.model)
	return result
}

func (s *OllamaTranslator) State() InitState {
	return s.init.State()
}

func (s *OllamaTranslator) Release() {
	s.init.Reset()
}
