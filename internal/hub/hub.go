// Package hub talks to a Hugging-Face-compatible model hub: model card
// lookups for load checks and hosted inference for translation.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL       = "https://huggingface.co"
	DefaultInferenceURL = "https://api-inference.huggingface.co"
)

var ErrModelNotFound = errors.New("model not found")

type Config struct {
	APIURL       string        `mapstructure:"api_url"`
	InferenceURL string        `mapstructure:"inference_url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Client struct {
	apiURL       string
	inferenceURL string
	token        string
	client       *http.Client
}

func New(cfg Config) *Client {
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	inferenceURL := strings.TrimRight(strings.TrimSpace(cfg.InferenceURL), "/")
	if inferenceURL == "" {
		inferenceURL = DefaultInferenceURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiURL:       apiURL,
		inferenceURL: inferenceURL,
		token:        cfg.Token,
		client:       &http.Client{Timeout: timeout},
	}
}

// ModelInfo is the subset of the model card the backends care about.
type ModelInfo struct {
	ID          string   `json:"id"`
	PipelineTag string   `json:"pipeline_tag"`
	Tags        []string `json:"tags"`
}

// ModelInfo fetches the model card. A missing model yields ErrModelNotFound.
func (c *Client) ModelInfo(ctx context.Context, model string) (*ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/api/models/%s", c.apiURL, escapeModel(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build model info request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch model info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model info for %s: hub returned status %d", model, resp.StatusCode)
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}
	if info.ID == "" {
		info.ID = model
	}
	return &info, nil
}

// InferenceRequest is the hosted inference payload.
type InferenceRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type inferencePayload struct {
	InferenceRequest
	Options map[string]any `json:"options"`
}

type inferenceOutput struct {
	TranslationText string `json:"translation_text"`
	GeneratedText   string `json:"generated_text"`
}

// Infer runs one generation and returns the first output text.
func (c *Client) Infer(ctx context.Context, model string, req InferenceRequest) (string, error) {
	body, err := json.Marshal(inferencePayload{
		InferenceRequest: req,
		Options:          map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return "", fmt.Errorf("marshal inference request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s", c.inferenceURL, escapeModel(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send inference request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errPayload) == nil && strings.TrimSpace(errPayload.Error) != "" {
			return "", fmt.Errorf("inference status %d: %s", resp.StatusCode, errPayload.Error)
		}
		return "", fmt.Errorf("inference status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var outputs []inferenceOutput
	if err := json.Unmarshal(respBody, &outputs); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("inference response was empty")
	}

	text := outputs[0].TranslationText
	if text == "" {
		text = outputs[0].GeneratedText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("inference response had no text")
	}
	return text, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// escapeModel keeps the org/name separator but escapes each segment.
func escapeModel(model string) string {
	parts := strings.Split(strings.TrimSpace(model), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
