package translator

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// ServiceConfig is the per-backend configuration block.
type ServiceConfig struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled"`
	Preload     bool          `mapstructure:"preload" json:"preload"`
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Email       string        `mapstructure:"email" json:"email"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// InitState tracks a backend's lazy initialization. It moves
// NotLoaded -> Loading -> Ready|Failed once; only Release moves it back.
type InitState int32

const (
	NotLoaded InitState = iota
	Loading
	Ready
	Failed
)

func (s InitState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s InitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor is the static identity of a registered backend.
type Descriptor struct {
	ID          string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Provider    string   `json:"provider"`
	Languages   []string `json:"languages"`
}

// Result is the outcome of one backend call. A successful result always
// carries a translation and a failed one never does.
type Result struct {
	BackendID        string            `json:"-"`
	Translation      *string           `json:"translation"`
	Latency          time.Duration     `json:"-"`
	Model            string            `json:"model"`
	Status           Status            `json:"status"`
	Error            *string           `json:"error"`
	DetectedLanguage string            `json:"detected_language,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// NewResult starts a result for the given backend; callers finish it with
// Succeed or Fail.
func NewResult(desc Descriptor) Result {
	return Result{BackendID: desc.ID, Model: desc.DisplayName}
}

func (r *Result) Succeed(text string) {
	r.Translation = &text
	r.Status = StatusSuccess
	r.Error = nil
}

func (r *Result) Fail(err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Translation = nil
	r.Status = StatusFailed
	r.Error = &msg
}

func (r *Result) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.Translation != nil
}

// Text returns the translation or "" for failed results.
func (r Result) Text() string {
	if r.Translation == nil {
		return ""
	}
	return *r.Translation
}

func (r Result) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// LatencySeconds rounds to milliseconds.
func (r Result) LatencySeconds() float64 {
	return math.Round(r.Latency.Seconds()*1000) / 1000
}

func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		Latency float64 `json:"latency"`
	}{alias: alias(r), Latency: r.LatencySeconds()})
}

// Backend wraps one translation provider. Translate never returns an error:
// every failure is captured in the result.
type Backend interface {
	Descriptor() Descriptor
	Initialize(ctx context.Context) error
	Translate(ctx context.Context, req TranslateRequest) Result
	State() InitState
}

// Releaser is implemented by backends that can drop loaded state.
type Releaser interface {
	Release()
}
