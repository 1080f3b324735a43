package translator

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

const GoogleID = "google"

// googleClient is satisfied by *translate.Client.
type googleClient interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

func newGoogleClient(ctx context.Context, opts ...option.ClientOption) (googleClient, error) {
	return translate.NewClient(ctx, opts...)
}

var googleCodes = codeTable{
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"japanese":   "ja",
	"chinese":    "zh-CN",
	"tamil":      "ta",
	"portuguese": "pt",
	"dutch":      "nl",
	"korean":     "ko",
	"thai":       "th",
	"vietnamese": "vi",
	"indonesian": "id",
	"malay":      "ms",
}

// GoogleBackend keeps one Cloud Translation client for the process. Target
// languages outside its table are accepted when they parse as BCP 47 tags.
type GoogleBackend struct {
	cfg       ServiceConfig
	logger    zerolog.Logger
	newClient func(ctx context.Context, opts ...option.ClientOption) (googleClient, error)

	init   lazyInit
	mu     sync.Mutex
	client googleClient
	// releases counts Release calls; a load started before one must not
	// install its client.
	releases int
}

func NewGoogleBackend(cfg ServiceConfig, logger zerolog.Logger) *GoogleBackend {
	return &GoogleBackend{cfg: cfg, logger: logger, newClient: newGoogleClient}
}

func (b *GoogleBackend) Descriptor() Descriptor {
	return Descriptor{
		ID:          GoogleID,
		DisplayName: "Google Translate",
		Provider:    "Google Cloud",
		Languages:   googleCodes.names(),
	}
}

func (b *GoogleBackend) Initialize(ctx context.Context) error {
	return b.init.Do(ctx, func(ctx context.Context) error {
		var opts []option.ClientOption
		switch {
		case b.cfg.Credentials != "":
			opts = append(opts, option.WithCredentialsFile(b.cfg.Credentials))
		case b.cfg.APIKey != "":
			opts = append(opts, option.WithAPIKey(b.cfg.APIKey))
		}

		b.mu.Lock()
		gen := b.releases
		b.mu.Unlock()

		client, err := b.newClient(ctx, opts...)
		if err != nil {
			b.logger.Error().Err(err).Str("backend", GoogleID).Msg("client setup failed")
			return &InitError{Backend: GoogleID, Cause: err}
		}

		b.mu.Lock()
		if b.releases != gen {
			b.mu.Unlock()
			b.closeClient(client)
			return errReleased
		}
		b.client = client
		b.mu.Unlock()
		b.logger.Info().Str("backend", GoogleID).Msg("client ready")
		return nil
	})
}

func (b *GoogleBackend) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(b.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	target, err := googleTarget(req.TargetLang)
	if err != nil {
		result.Fail(err)
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

	translations, err := client.Translate(ctx, []string{req.Text}, target, &translate.Options{
		Source: language.English,
		Format: translate.Text,
	})
	if err != nil {
		result.Fail(&UpstreamError{Backend: GoogleID, Cause: fmt.Errorf("translation failed: %w", err)})
		return result
	}
	if len(translations) == 0 || strings.TrimSpace(translations[0].Text) == "" {
		result.Fail(&UpstreamError{Backend: GoogleID, Cause: errEmptyOutput})
		return result
	}

	result.Succeed(html.UnescapeString(translations[0].Text))
	return result
}

func (b *GoogleBackend) State() InitState {
	return b.init.State()
}

// Release closes the client; the next call creates a new one. A client
// still being created is closed by its own load.
func (b *GoogleBackend) Release() {
	b.mu.Lock()
	b.releases++
	client := b.client
	b.client = nil
	b.init.Reset()
	b.mu.Unlock()

	if client != nil {
		b.closeClient(client)
	}
}

func (b *GoogleBackend) closeClient(client googleClient) {
	if err := client.Close(); err != nil {
		b.logger.Warn().Err(err).Str("backend", GoogleID).Msg("close client")
	}
}

func googleTarget(raw string) (language.Tag, error) {
	if code, ok := googleCodes.resolve(raw); ok {
		return language.Make(code), nil
	}
	key := strings.TrimSpace(raw)
	if key == "" {
		return language.Und, unsupported(raw)
	}
	tag, err := language.Parse(key)
	if err != nil || tag == language.Und {
		return language.Und, unsupported(raw)
	}
	return tag, nil
}
