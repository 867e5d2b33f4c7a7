// Package vidya wires the whole calling engine together: configuration,
// provider construction, the call lifecycle, and the dispatch HTTP surface.
package vidya

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Vendors    VendorsConfig    `mapstructure:"vendors"`
	Transports TransportsConfig `mapstructure:"transports"`
	Store      StoreConfig      `mapstructure:"store"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Segmenter  SegmenterConfig  `mapstructure:"segmenter"`
	Turn       TurnConfig       `mapstructure:"turn"`
	Languages  LanguageConfig   `mapstructure:"languages"`
	Privacy    PrivacyConfig    `mapstructure:"privacy"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT         VendorConfig `mapstructure:"stt"`
	TTS         VendorConfig `mapstructure:"tts"`
	LLMPrimary  VendorConfig `mapstructure:"llm_primary"`
	LLMFallback VendorConfig `mapstructure:"llm_fallback"`
}

type TransportsConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // mongo or memory
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type DispatchConfig struct {
	MaxAttempts         int `mapstructure:"max_attempts"`
	RetryPauseMS        int `mapstructure:"retry_pause_ms"`
	CompletionTimeoutMS int `mapstructure:"completion_timeout_ms"`
	AIConcurrency       int `mapstructure:"ai_concurrency"`
}

type SegmenterConfig struct {
	EnergyThreshold float64 `mapstructure:"energy_threshold"`
	SilenceMS       int     `mapstructure:"silence_ms"`
	MinSpeechMS     int     `mapstructure:"min_speech_ms"`
	MaxUtteranceMS  int     `mapstructure:"max_utterance_ms"`
}

type TurnConfig struct {
	MinUtteranceBytes      int     `mapstructure:"min_utterance_bytes"`
	HistoryWindow          int     `mapstructure:"history_window"`
	TranscribeRetryDelayMS int     `mapstructure:"transcribe_retry_delay_ms"`
	ReplyTemperature       float64 `mapstructure:"reply_temperature"`
	ReplyMaxTokens         int     `mapstructure:"reply_max_tokens"`
}

type LanguageConfig struct {
	Default string `mapstructure:"default"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type MetricsConfig struct {
	Path       string  `mapstructure:"path"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database", "vidya")
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.retry_pause_ms", 1000)
	v.SetDefault("dispatch.completion_timeout_ms", 600000)
	v.SetDefault("dispatch.ai_concurrency", 2)
	v.SetDefault("segmenter.energy_threshold", 300)
	v.SetDefault("segmenter.silence_ms", 1200)
	v.SetDefault("segmenter.min_speech_ms", 600)
	v.SetDefault("segmenter.max_utterance_ms", 10000)
	v.SetDefault("turn.min_utterance_bytes", 2000)
	v.SetDefault("turn.history_window", 5)
	v.SetDefault("turn.transcribe_retry_delay_ms", 500)
	v.SetDefault("turn.reply_temperature", 0.7)
	v.SetDefault("turn.reply_max_tokens", 200)
	v.SetDefault("languages.default", "en-IN")
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("metrics.sample_rate", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Transports.Provider) == "" {
		return fmt.Errorf("transports.provider is required")
	}
	if strings.TrimSpace(c.Vendors.STT.Provider) == "" {
		return fmt.Errorf("vendors.stt.provider is required")
	}
	if strings.TrimSpace(c.Vendors.TTS.Provider) == "" {
		return fmt.Errorf("vendors.tts.provider is required")
	}
	if strings.TrimSpace(c.Vendors.LLMPrimary.Provider) == "" {
		return fmt.Errorf("vendors.llm_primary.provider is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "memory":
	case "mongo":
		if strings.TrimSpace(c.Store.URI) == "" {
			return fmt.Errorf("store.uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory or mongo")
	}
	return nil
}

// expandEnvStrings substitutes ${VAR} references so secrets stay out of
// config files.
func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Vendors.LLMPrimary.Settings = expandSettings(cfg.Vendors.LLMPrimary.Settings)
	cfg.Vendors.LLMFallback.Settings = expandSettings(cfg.Vendors.LLMFallback.Settings)
	cfg.Transports.Settings = expandSettings(cfg.Transports.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
