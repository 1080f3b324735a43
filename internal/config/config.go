package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/valpere/transbench/internal/hub"
	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/translator"
)

const EnvPrefix = "TRANSBENCH"

// Preset names used by the compare endpoints and commands.
const (
	PresetCompare       = "compare"
	PresetCompareThree  = "compare_three"
	PresetCompareCustom = "compare_custom"
)

type Config struct {
	Server       ServerConfig                        `mapstructure:"server"`
	Log          LogConfig                           `mapstructure:"log"`
	Orchestrator OrchestratorConfig                  `mapstructure:"orchestrator"`
	Hub          hub.Config                          `mapstructure:"hub"`
	Backends     map[string]translator.ServiceConfig `mapstructure:"backends"`
	Store        StoreConfig                         `mapstructure:"store"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OrchestratorConfig struct {
	orchestrator.OrchestratorConfig `mapstructure:",squash"`
	Presets                         map[string][]string `mapstructure:"presets"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// BackendIDs is the registration order of the built-in backends.
var BackendIDs = []string{
	translator.MarianID,
	translator.M2M100ID,
	translator.MadladID,
	translator.GoogleID,
	translator.ChatGPTID,
	translator.MyMemoryID,
	translator.OllamaID,
}

// secretEnv maps config keys to the conventional provider variables that
// may also set them.
var secretEnv = map[string]string{
	"backends.chatgpt.api_key":    "OPENAI_API_KEY",
	"backends.google.credentials": "GOOGLE_APPLICATION_CREDENTIALS",
	"backends.google.api_key":     "GOOGLE_API_KEY",
	"backends.google.project_id":  "GOOGLE_CLOUD_PROJECT",
	"backends.mymemory.email":     "MYMEMORY_EMAIL",
	"hub.token":                   "HF_TOKEN",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("orchestrator.timeout", orchestrator.DefaultTimeout)
	v.SetDefault("orchestrator.default_language", orchestrator.DefaultLanguage)
	v.SetDefault("orchestrator.presets."+PresetCompare, []string{"marian", "google"})
	v.SetDefault("orchestrator.presets."+PresetCompareThree, []string{"marian", "m2m100", "madlad"})
	v.SetDefault("orchestrator.presets."+PresetCompareCustom, []string{"marian", "m2m100"})

	v.SetDefault("hub.api_url", hub.DefaultAPIURL)
	v.SetDefault("hub.inference_url", hub.DefaultInferenceURL)
	v.SetDefault("hub.token", "")
	v.SetDefault("hub.timeout", 120*time.Second)

	enabled := map[string]bool{
		translator.MarianID:  true,
		translator.M2M100ID:  true,
		translator.MadladID:  true,
		translator.GoogleID:  true,
		translator.ChatGPTID: true,
	}
	for _, id := range BackendIDs {
		prefix := "backends." + id + "."
		v.SetDefault(prefix+"enabled", enabled[id])
		v.SetDefault(prefix+"preload", id == translator.MarianID)
		v.SetDefault(prefix+"credentials", "")
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"model", "")
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"timeout", time.Duration(0))
		v.SetDefault(prefix+"project_id", "")
		v.SetDefault(prefix+"email", "")
	}

	v.SetDefault("store.path", "")
}

// Load reads configuration from path (or ./configs/transbench.yaml when
// path is empty and that file exists), then applies TRANSBENCH_* and
// provider environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range secretEnv {
		own := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, own, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("transbench")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"orchestrator.timeout":    c.Orchestrator.Timeout,
		"hub.timeout":             c.Hub.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	lang := strings.TrimSpace(c.Orchestrator.DefaultLanguage)
	if lang == "" {
		errs = append(errs, errors.New("orchestrator.default_language must not be empty"))
	} else if _, ok := translator.LookupLanguage(lang); !ok {
		errs = append(errs, fmt.Errorf("orchestrator.default_language: unknown language %q", lang))
	}

	for name, models := range c.Orchestrator.Presets {
		if len(models) == 0 {
			errs = append(errs, fmt.Errorf("orchestrator.presets.%s must list at least one model", name))
		}
	}

	for id, b := range c.Backends {
		if b.Timeout < 0 {
			errs = append(errs, fmt.Errorf("backends.%s.timeout must not be negative", id))
		}
	}

	return errors.Join(errs...)
}

// Preset returns the model set of a named preset.
func (c *Config) Preset(name string) []string {
	return append([]string(nil), c.Orchestrator.Presets[name]...)
}

// DispatchConfig merges per-backend timeouts into the orchestrator config.
func (c *Config) DispatchConfig() orchestrator.OrchestratorConfig {
	oc := c.Orchestrator.OrchestratorConfig
	timeouts := make(map[string]time.Duration, len(oc.Timeouts)+len(c.Backends))
	for id, d := range oc.Timeouts {
		timeouts[id] = d
	}
	for id, b := range c.Backends {
		if b.Timeout > 0 {
			timeouts[id] = b.Timeout
		}
	}
	oc.Timeouts = timeouts
	return oc
}

// Enabled lists enabled backends in registration order.
func (c *Config) Enabled() []string {
	var ids []string
	for _, id := range BackendIDs {
		if c.Backends[id].Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// PreloadIDs lists enabled backends configured for startup warm-up.
func (c *Config) PreloadIDs() []string {
	var ids []string
	for _, id := range c.Enabled() {
		if c.Backends[id].Preload {
			ids = append(ids, id)
		}
	}
	return ids
}
