package deepgram

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/harunnryd/vidya/pkg/adapters/stt"
	"github.com/harunnryd/vidya/pkg/audio"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/logging"

	listenv1rest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type Config struct {
	APIKey        string
	Model         string
	SampleRate    int
	MinAudioBytes int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "nova-2"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.MinAudioBytes <= 0 {
		c.MinAudioBytes = 2000
	}
	return c
}

// Transcriber runs batch transcription through Deepgram's prerecorded API.
// It is the alternate STT provider for deployments without a Sarvam key;
// Indic language hints map onto Deepgram's two-letter language codes.
type Transcriber struct {
	cfg    Config
	api    *listenv1rest.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Transcriber {
	cfg = cfg.withDefaults()
	c := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Transcriber{
		cfg:    cfg,
		api:    listenv1rest.New(c),
		logger: logging.NewComponentLogger(logger, "deepgram_stt"),
	}
}

func (t *Transcriber) Name() string { return "deepgram" }

func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, languageHint string) (string, error) {
	if len(pcm) < t.cfg.MinAudioBytes {
		return "", nil
	}
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:    t.cfg.Model,
		Language: shortLanguage(languageHint),
	}
	res, err := t.api.FromStream(ctx, bytes.NewReader(audio.EncodeWAV(pcm, t.cfg.SampleRate)), options)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTranscribe)
	}
	if res == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	transcript := res.Results.Channels[0].Alternatives[0].Transcript
	t.logger.Debug("transcript_received",
		"language_hint", languageHint,
		"audio_bytes", len(pcm),
		"chars", len(transcript),
	)
	return transcript, nil
}

func shortLanguage(code string) string {
	if i := strings.Index(code, "-"); i > 0 {
		return code[:i]
	}
	return code
}

var _ stt.Transcriber = (*Transcriber)(nil)
