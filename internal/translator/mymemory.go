package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MyMemoryID             = "mymemory"
	defaultMyMemoryBaseURL = "https://api.mymemory.translated.net"
)

var myMemoryCodes = codeTable{
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"japanese":   "ja",
	"chinese":    "zh-CN",
	"portuguese": "pt",
	"dutch":      "nl",
	"korean":     "ko",
	"thai":       "th",
	"vietnamese": "vi",
	"indonesian": "id",
	"malay":      "ms",
}

// MyMemoryService is stateless; unsupported languages fail hard.
type MyMemoryService struct {
	baseURL string
	email   string
	client  *http.Client
}

func NewMyMemoryService(cfg ServiceConfig) *MyMemoryService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultMyMemoryBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MyMemoryService{
		baseURL: baseURL,
		email:   cfg.Email,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *MyMemoryService) Descriptor() Descriptor {
	return Descriptor{
		ID:          MyMemoryID,
		DisplayName: "MyMemory",
		Provider:    "Translated",
		Languages:   myMemoryCodes.names(),
	}
}

func (s *MyMemoryService) Initialize(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) State() InitState {
	return Ready
}

func (s *MyMemoryService) Translate(ctx context.Context, req TranslateRequest) (result Result) {
	result = NewResult(s.Descriptor())
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Fail(ErrEmptyText)
		return result
	}
	code, ok := myMemoryCodes.resolve(req.TargetLang)
	if !ok {
		result.Fail(unsupported(req.TargetLang))
		return result
	}

	params := url.Values{}
	params.Set("q", req.Text)
	params.Set("langpair", "en|"+code)
	if s.email != "" {
		params.Set("de", s.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		result.Fail(fmt.Errorf("failed to create request: %w", err))
		return result
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Fail(&UpstreamError{Backend: MyMemoryID, Cause: fmt.Errorf("request failed: %w", err)})
		return result
	}
	defer resp.Body.Close()

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		result.Fail(&UpstreamError{Backend: MyMemoryID, Cause: fmt.Errorf("failed to decode response: %w", err)})
		return result
	}

	if mymemResp.ResponseStatus.String() != "200" {
		result.Fail(&UpstreamError{
			Backend: MyMemoryID,
			Cause:   fmt.Errorf("API error: %s (%s)", mymemResp.ResponseDetails, mymemResp.ResponseStatus),
		})
		return result
	}

	text := strings.TrimSpace(mymemResp.ResponseData.TranslatedText)
	if text == "" {
		result.Fail(&UpstreamError{Backend: MyMemoryID, Cause: errEmptyOutput})
		return result
	}
	result.Succeed(text)
	result.SetMeta("match", fmt.Sprintf("%.2f", mymemResp.ResponseData.Match))
	return result
}
