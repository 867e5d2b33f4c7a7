package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/vidya/pkg/adapters/tts"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/logging"
	"github.com/harunnryd/vidya/pkg/resilience"
)

type TTSConfig struct {
	APIKey     string
	Model      string
	Speaker    string
	BaseURL    string
	SampleRate int
	Loudness   float64
}

func (c TTSConfig) withDefaults() TTSConfig {
	if c.Model == "" {
		c.Model = "bulbul:v2"
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Loudness <= 0 {
		c.Loudness = 1.5
	}
	return c
}

// Synthesizer renders reply text as raw PCM via Sarvam's text-to-speech API.
type Synthesizer struct {
	cfg    TTSConfig
	client *http.Client
	logger *slog.Logger
}

func NewSynthesizer(cfg TTSConfig, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		cfg:    cfg.withDefaults(),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewComponentLogger(logger, "sarvam_tts"),
	}
}

func (s *Synthesizer) Name() string { return "sarvam" }

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	payload := map[string]any{
		"inputs":               []string{text},
		"target_language_code": language,
		"model":                s.cfg.Model,
		"speech_sample_rate":   s.cfg.SampleRate,
		"loudness":             s.cfg.Loudness,
	}
	if s.cfg.Speaker != "" {
		payload["speaker"] = s.cfg.Speaker
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/text-to-speech", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonSynthesize)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return nil, resilience.RateLimitError{Provider: "sarvam", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errorsx.Wrap(errors.New(string(raw)), errorsx.ReasonSynthesize)
	}
	var out struct {
		Audios []string `json:"audios"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonSynthesize)
	}
	if len(out.Audios) == 0 {
		return nil, errorsx.New(errorsx.ReasonSynthesize, "empty synthesis response")
	}
	raw, err := base64.StdEncoding.DecodeString(out.Audios[0])
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonSynthesize)
	}
	s.logger.Debug("synthesis_complete",
		"language", language,
		"chars", len(text),
		"audio_bytes", len(raw),
	)
	return raw, nil
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
