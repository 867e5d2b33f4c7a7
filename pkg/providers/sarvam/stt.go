package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/harunnryd/vidya/pkg/adapters/stt"
	"github.com/harunnryd/vidya/pkg/audio"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/logging"
	"github.com/harunnryd/vidya/pkg/resilience"
)

const defaultBaseURL = "https://api.sarvam.ai"

type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	SampleRate    int
	MinAudioBytes int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "saarika:v2.5"
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.MinAudioBytes <= 0 {
		c.MinAudioBytes = 2000
	}
	return c
}

// Transcriber sends one WAV-wrapped utterance per request to Sarvam's
// speech-to-text endpoint.
type Transcriber struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewTranscriber(cfg Config, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		cfg:    cfg.withDefaults(),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewComponentLogger(logger, "sarvam_stt"),
	}
}

func (t *Transcriber) Name() string { return "sarvam" }

func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, languageHint string) (string, error) {
	if len(pcm) < t.cfg.MinAudioBytes {
		// Too short to carry speech; callers treat empty text as a dropped turn.
		return "", nil
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio.EncodeWAV(pcm, t.cfg.SampleRate)); err != nil {
		return "", err
	}
	_ = w.WriteField("model", t.cfg.Model)
	if languageHint != "" {
		_ = w.WriteField("language_code", languageHint)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/speech-to-text", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("api-subscription-key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTranscribe)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return "", resilience.RateLimitError{Provider: "sarvam", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", errorsx.Wrap(errors.New(string(raw)), errorsx.ReasonTranscribe)
	}
	var payload struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTranscribe)
	}
	t.logger.Debug("transcript_received",
		"language_hint", languageHint,
		"audio_bytes", len(pcm),
		"chars", len(payload.Transcript),
	)
	return payload.Transcript, nil
}

var _ stt.Transcriber = (*Transcriber)(nil)
