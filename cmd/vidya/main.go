package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/vidya/pkg/analysis"
	"github.com/harunnryd/vidya/pkg/audio"
	"github.com/harunnryd/vidya/pkg/configutil"
	"github.com/harunnryd/vidya/pkg/dispatch"
	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/logging"
	"github.com/harunnryd/vidya/pkg/metrics"
	"github.com/harunnryd/vidya/pkg/redact"
	"github.com/harunnryd/vidya/pkg/resilience"
	"github.com/harunnryd/vidya/pkg/runner"
	"github.com/harunnryd/vidya/pkg/store"
	storemongo "github.com/harunnryd/vidya/pkg/store/mongo"
	"github.com/harunnryd/vidya/pkg/transports"
	"github.com/harunnryd/vidya/pkg/transports/vonage"
	"github.com/harunnryd/vidya/pkg/turn"
	"github.com/harunnryd/vidya/pkg/vidya"
)

func main() {
	configPath := "config.yaml"
	apiAddr := ":8081"
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		case "-api-addr", "--api-addr":
			if i+1 < len(args) {
				i++
				apiAddr = args[i]
			}
		}
	}

	cfg, err := vidya.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	observer, closeMetrics, err := buildObserver(cfg.Metrics)
	if err != nil {
		logger.Error("metrics_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("store_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	registry := vidya.DefaultRegistry()
	transcriber, err := registry.BuildSTT(cfg.Vendors.STT, logger)
	if err != nil {
		logger.Error("stt_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}
	synthesizer, err := registry.BuildTTS(cfg.Vendors.TTS, logger)
	if err != nil {
		logger.Error("tts_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}
	responder, err := buildResponderChain(registry, cfg, logger)
	if err != nil {
		logger.Error("llm_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}

	aiSlots := resilience.NewSemaphore(cfg.Dispatch.AIConcurrency)
	orc := turn.NewOrchestrator(turn.Config{
		MinUtteranceBytes:    cfg.Turn.MinUtteranceBytes,
		HistoryWindow:        cfg.Turn.HistoryWindow,
		TranscribeRetryDelay: time.Duration(cfg.Turn.TranscribeRetryDelayMS) * time.Millisecond,
		ReplyTemperature:     cfg.Turn.ReplyTemperature,
		ReplyMaxTokens:       cfg.Turn.ReplyMaxTokens,
	}, transcriber, synthesizer, responder, aiSlots, observer, logger)

	analyzer := analysis.NewAnalyzer(responder, aiSlots, logger)
	hub := dispatch.NewHub()
	segCfg := audio.SegmenterConfig{
		EnergyThreshold: cfg.Segmenter.EnergyThreshold,
		SilenceWindow:   time.Duration(cfg.Segmenter.SilenceMS) * time.Millisecond,
		MinSpeech:       time.Duration(cfg.Segmenter.MinSpeechMS) * time.Millisecond,
		MaxBuffer:       time.Duration(cfg.Segmenter.MaxUtteranceMS) * time.Millisecond,
	}
	engine := vidya.NewEngine(orc, synthesizer, analyzer, st, hub, segCfg, observer, logger)

	transport, dialer, err := buildTransport(cfg.Transports, engine, logger)
	if err != nil {
		logger.Error("transport_setup_failed", slog.Any("error", err))
		os.Exit(1)
	}

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		MaxAttempts:       cfg.Dispatch.MaxAttempts,
		RetryPause:        time.Duration(cfg.Dispatch.RetryPauseMS) * time.Millisecond,
		CompletionTimeout: time.Duration(cfg.Dispatch.CompletionTimeoutMS) * time.Millisecond,
		DefaultLanguage:   cfg.Languages.Default,
	}, dialer, hub, st, observer, logger)

	api := vidya.NewAPIServer(apiAddr, engine, dispatcher, st, logger)

	lifecycle := runner.NewLifecycleRunner(engine, runner.Hooks{
		OnStart: func() {
			if err := transport.Start(ctx); err != nil {
				logger.Error("transport_start_failed", slog.Any("error", err))
			}
			if err := api.Start(ctx); err != nil {
				logger.Error("api_start_failed", slog.Any("error", err))
			}
			fields := []any{slog.String("transport", transport.Name()), slog.String("api_addr", apiAddr)}
			if rr, ok := transport.(transports.ReadyReporter); ok {
				for k, v := range rr.ReadyFields() {
					fields = append(fields, slog.Any(k, v))
				}
			}
			logger.Info("engine_ready", fields...)
		},
		OnStop: func() {
			_ = transport.Stop()
			_ = api.Stop()
		},
	}, 45*time.Second)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildObserver(cfg vidya.MetricsConfig) (metrics.Observer, func(), error) {
	if cfg.Path == "" {
		return metrics.NoopObserver{}, func() {}, nil
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	sampled := metrics.NewSamplingObserver(metrics.NewJSONLObserver(f), cfg.SampleRate)
	async := metrics.NewAsyncObserver(sampled, 512)
	return async, func() {
		async.Close()
		_ = f.Close()
	}, nil
}

func buildStore(ctx context.Context, cfg vidya.StoreConfig) (store.Store, func(), error) {
	if cfg.Driver == "mongo" {
		s, err := storemongo.New(ctx, storemongo.Config{URI: cfg.URI, Database: cfg.Database})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	}
	return store.NewMemoryStore(), func() {}, nil
}

func buildResponderChain(registry *vidya.ProviderRegistry, cfg vidya.Config, logger *slog.Logger) (llm.Adapter, error) {
	primary, err := registry.BuildLLM(cfg.Vendors.LLMPrimary)
	if err != nil {
		return nil, err
	}
	adapters := []llm.Adapter{primary}
	if cfg.Vendors.LLMFallback.Provider != "" {
		fallback, err := registry.BuildLLM(cfg.Vendors.LLMFallback)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, fallback)
	}
	return llm.NewChain(logger, adapters...), nil
}

func buildTransport(cfg vidya.TransportsConfig, engine *vidya.Engine, logger *slog.Logger) (transports.Transport, transports.OutboundDialer, error) {
	switch cfg.Provider {
	case "vonage":
		if err := configutil.ValidateSettings(cfg.Settings, configutil.Schema{
			Required: []string{"public_url", "application_id"},
			Optional: []string{
				"server_addr", "answer_path", "event_path", "ws_path",
				"from_number", "chunk_bytes", "allow_any_origin", "allowed_origins",
				"private_key", "private_key_path",
			},
		}); err != nil {
			return nil, nil, fmt.Errorf("transports.settings: %w", err)
		}
		var settings vonage.Config
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, nil, err
		}
		transport := vonage.New(settings, engine, logger)
		dialer, err := vonage.NewDialer(settings)
		if err != nil {
			return nil, nil, err
		}
		return transport, dialer, nil
	case "loopback":
		return noopTransport{}, &vidya.LoopbackDialer{Handler: engine, Logger: logger}, nil
	default:
		return nil, nil, fmt.Errorf("transport provider not registered: %s", cfg.Provider)
	}
}

type noopTransport struct{}

func (noopTransport) Name() string                    { return "loopback" }
func (noopTransport) Start(ctx context.Context) error { return nil }
func (noopTransport) Stop() error                     { return nil }
