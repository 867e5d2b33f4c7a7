package vidya

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/vidya/pkg/adapters/stt"
	"github.com/harunnryd/vidya/pkg/adapters/tts"
	"github.com/harunnryd/vidya/pkg/configutil"
	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/providers/deepgram"
	"github.com/harunnryd/vidya/pkg/providers/gemini"
	"github.com/harunnryd/vidya/pkg/providers/groq"
	"github.com/harunnryd/vidya/pkg/providers/mock"
	"github.com/harunnryd/vidya/pkg/providers/sarvam"
)

type STTFactory func(settings map[string]any, logger *slog.Logger) (stt.Transcriber, error)
type TTSFactory func(settings map[string]any, logger *slog.Logger) (tts.Synthesizer, error)
type LLMFactory func(settings map[string]any) (llm.Adapter, error)

// ProviderRegistry maps vendor names from config onto constructors. Names
// are case-insensitive.
type ProviderRegistry struct {
	stt map[string]STTFactory
	tts map[string]TTSFactory
	llm map[string]LLMFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt: make(map[string]STTFactory),
		tts: make(map[string]TTSFactory),
		llm: make(map[string]LLMFactory),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, f STTFactory) {
	r.stt[normalizeName(name)] = f
}

func (r *ProviderRegistry) RegisterTTS(name string, f TTSFactory) {
	r.tts[normalizeName(name)] = f
}

func (r *ProviderRegistry) RegisterLLM(name string, f LLMFactory) {
	r.llm[normalizeName(name)] = f
}

func (r *ProviderRegistry) BuildSTT(cfg VendorConfig, logger *slog.Logger) (stt.Transcriber, error) {
	f := r.stt[normalizeName(cfg.Provider)]
	if f == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", cfg.Provider)
	}
	return f(cfg.Settings, logger)
}

func (r *ProviderRegistry) BuildTTS(cfg VendorConfig, logger *slog.Logger) (tts.Synthesizer, error) {
	f := r.tts[normalizeName(cfg.Provider)]
	if f == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", cfg.Provider)
	}
	return f(cfg.Settings, logger)
}

func (r *ProviderRegistry) BuildLLM(cfg VendorConfig) (llm.Adapter, error) {
	f := r.llm[normalizeName(cfg.Provider)]
	if f == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", cfg.Provider)
	}
	return f(cfg.Settings)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type apiVendorSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Speaker string `mapstructure:"speaker"`
	BaseURL string `mapstructure:"base_url"`
}

// DefaultRegistry registers every built-in provider.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterSTT("sarvam", func(settings map[string]any, logger *slog.Logger) (stt.Transcriber, error) {
		var s apiVendorSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return sarvam.NewTranscriber(sarvam.Config{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL}, logger), nil
	})
	r.RegisterSTT("deepgram", func(settings map[string]any, logger *slog.Logger) (stt.Transcriber, error) {
		var s apiVendorSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{APIKey: s.APIKey, Model: s.Model}, logger), nil
	})
	r.RegisterSTT("mock", func(map[string]any, *slog.Logger) (stt.Transcriber, error) {
		return mock.NewTranscriber(), nil
	})

	r.RegisterTTS("sarvam", func(settings map[string]any, logger *slog.Logger) (tts.Synthesizer, error) {
		var s apiVendorSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		return sarvam.NewSynthesizer(sarvam.TTSConfig{APIKey: s.APIKey, Model: s.Model, Speaker: s.Speaker, BaseURL: s.BaseURL}, logger), nil
	})
	r.RegisterTTS("mock", func(map[string]any, *slog.Logger) (tts.Synthesizer, error) {
		return mock.NewSynthesizer(), nil
	})

	r.RegisterLLM("gemini", func(settings map[string]any) (llm.Adapter, error) {
		var s apiVendorSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "vendors.llm.settings.api_key"); err != nil {
			return nil, err
		}
		return gemini.NewAdapter(s.APIKey, s.Model), nil
	})
	r.RegisterLLM("groq", func(settings map[string]any) (llm.Adapter, error) {
		var s apiVendorSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "vendors.llm.settings.api_key"); err != nil {
			return nil, err
		}
		return groq.NewAdapter(s.APIKey, s.Model), nil
	})
	r.RegisterLLM("mock", func(map[string]any) (llm.Adapter, error) {
		return mock.NewResponder(""), nil
	})

	return r
}
