package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/valpere/transbench/internal/postprocess"
)

const ChatGPTID = "chatgpt"

const chatGPTSystemPrompt = "You are a professional translator. Translate the given English text to %s. " +
	"Provide only the translation without any explanations, comments, or additional text."

// ChatGPTBackend never rejects a target language: names outside the shared
// table go into the prompt as written.
type ChatGPTBackend struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	init   lazyInit
	mu     sync.Mutex
	client *openai.Client
}

func NewChatGPTBackend(cfg ServiceConfig, logger zerolog.Logger) *ChatGPTBackend {
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	return &ChatGPTBackend{cfg: cfg, logger: logger}
}

func (b *ChatGPTBackend) Descriptor() Descriptor {
	langs := make([]string, 0, len(languages))
	for _, lang := range Languages() {
		langs = append(langs, lang.Name)
	}
	return Descriptor{
		ID:          ChatGPTID,
		DisplayName: "ChatGPT",
		Provider:    "OpenAI",
		Languages:   langs,
	}
}

func (b *ChatGPTBackend) Initialize(ctx context.Context) error {
	return b.init.Do(ctx, func(ctx context.Context) error {
		if strings.TrimSpace(b.cfg.APIKey) == "" {
			return &InitError{Backend: ChatGPTID, Cause: errors.New("OPENAI_API_KEY not set")}
		}
		config := openai.DefaultConfig(b.cfg.APIKey)
		if b.cfg.BaseURL != "" {
			config.BaseURL = b.cfg.BaseURL
		}

		b.mu.Lock()
		b.client = openai.NewClientWithConfig(config)
		b.mu.Unlock()
		b.logger.Info().Str("backend", ChatGPTID).Str("model", b.cfg.Model).Msg("client ready")
		return nil
	})
}

func (b *ChatGPTBackend) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(b.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	if err := b.Initialize(ctx); err != nil {
		result.Fail(err)
		return result
	}

	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		result.Fail(ErrNotInitialized)
		return result
	}

	target := promptLanguageName(req.TargetLang)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(chatGPTSystemPrompt, target)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Translate this text to %s: %s", target, req.Text)},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		result.Fail(&UpstreamError{Backend: ChatGPTID, Cause: err})
		return result
	}
	if len(resp.Choices) == 0 {
		result.Fail(&UpstreamError{Backend: ChatGPTID, Cause: errEmptyOutput})
		return result
	}

	text := postprocess.Clean(resp.Choices[0].Message.Content, req.Text)
	if text == "" {
		result.Fail(&UpstreamError{Backend: ChatGPTID, Cause: errEmptyOutput})
		return result
	}
	result.Succeed(text)
	if resp.Model != "" {
		result.SetMeta("llm_model", resp.Model)
	}
	return result
}

func (b *ChatGPTBackend) State() InitState {
	return b.init.State()
}

func (b *ChatGPTBackend) Release() {
	b.mu.Lock()
	b.client = nil
	b.mu.Unlock()
	b.init.Reset()
}

// promptLabels name the variant the model should produce where the plain
// label is ambiguous.
var promptLabels = map[string]string{
	"malay":   "Malay (Bahasa Melayu)",
	"chinese": "Chinese (Simplified)",
}

func promptLanguageName(raw string) string {
	if lang, ok := LookupLanguage(raw); ok {
		if label, ok := promptLabels[lang.Name]; ok {
			return label
		}
		return lang.Label
	}
	return strings.TrimSpace(raw)
}
