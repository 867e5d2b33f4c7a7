// Package turn runs the transcribe -> reply -> synthesize pipeline for a
// single user utterance, and owns the per-call worker that keeps those
// pipelines strictly ordered without blocking the audio socket.
package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/vidya/pkg/adapters/stt"
	"github.com/harunnryd/vidya/pkg/adapters/tts"
	"github.com/harunnryd/vidya/pkg/call"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/lang"
	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/metrics"
	"github.com/harunnryd/vidya/pkg/resilience"
)

type Config struct {
	MinUtteranceBytes    int
	HistoryWindow        int
	TranscribeRetryDelay time.Duration
	ReplyTemperature     float64
	ReplyMaxTokens       int
	QueueDepth           int
}

func (c Config) withDefaults() Config {
	if c.MinUtteranceBytes <= 0 {
		c.MinUtteranceBytes = 2000
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 5
	}
	if c.TranscribeRetryDelay <= 0 {
		c.TranscribeRetryDelay = 500 * time.Millisecond
	}
	if c.ReplyTemperature <= 0 {
		c.ReplyTemperature = 0.7
	}
	if c.ReplyMaxTokens <= 0 {
		c.ReplyMaxTokens = 200
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 8
	}
	return c
}

// Orchestrator turns one finished utterance into at most one transcript
// pair and one audio reply. It holds no per-call state; sessions are
// passed in per invocation.
type Orchestrator struct {
	cfg        Config
	transcribe stt.Transcriber
	synthesize tts.Synthesizer
	respond    llm.Adapter
	aiSlots    *resilience.Semaphore
	observer   metrics.Observer
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrchestrator(
	cfg Config,
	transcriber stt.Transcriber,
	synthesizer tts.Synthesizer,
	responder llm.Adapter,
	aiSlots *resilience.Semaphore,
	observer metrics.Observer,
	logger *slog.Logger,
) *Orchestrator {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		transcribe: transcriber,
		synthesize: synthesizer,
		respond:    responder,
		aiSlots:    aiSlots,
		observer:   observer,
		logger:     logging(logger),
		now:        time.Now,
	}
}

func logging(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("component", "turn"))
}

// HandleUtterance runs one complete user turn against the session. Upstream
// failures degrade rather than fail the call: bad transcriptions drop the
// utterance, a dead responder gets the stock phrase, and a synthesis
// failure keeps the transcript but sends no audio. Only transport errors
// propagate.
func (o *Orchestrator) HandleUtterance(ctx context.Context, sess *call.Session, audio []byte, send func([]byte) error) error {
	log := o.logger.With(slog.String("call_id", sess.CallID))

	if len(audio) < o.cfg.MinUtteranceBytes {
		log.Debug("utterance_below_minimum", slog.Int("bytes", len(audio)))
		o.record(metrics.EventUtteranceDroppedShort, sess.CallID, nil)
		return nil
	}

	text, err := o.transcribeWithRetry(ctx, audio, sess.CurrentLanguage())
	if err != nil {
		log.Warn("transcribe_failed", slog.Any("error", err))
		o.record(metrics.EventTranscribeFailed, sess.CallID, nil)
		return nil
	}
	if text == "" {
		log.Debug("empty_transcript_dropped")
		return nil
	}

	if detected := lang.DetectScript(text); sess.SwitchLanguage(detected, o.now()) {
		log.Info("language_switched", slog.String("language", detected))
		o.record(metrics.EventLanguageSwitched, sess.CallID, map[string]string{"language": detected})
	}
	language := sess.CurrentLanguage()
	sess.AppendTurn(call.SpeakerUser, text, language, o.now())

	reply := o.generateReply(ctx, sess, language, log)
	sess.AppendTurn(call.SpeakerAI, reply, language, o.now())
	o.record(metrics.EventTurnCompleted, sess.CallID, map[string]string{"language": language})

	voice, err := o.synthesize.Synthesize(ctx, reply, language)
	if err != nil {
		log.Warn("synthesize_failed", slog.Any("error", err))
		o.record(metrics.EventSynthesizeFailed, sess.CallID, nil)
		return nil
	}
	if err := send(voice); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

func (o *Orchestrator) transcribeWithRetry(ctx context.Context, audio []byte, languageHint string) (string, error) {
	var text string
	policy := resilience.NewRetryPolicy(1, o.cfg.TranscribeRetryDelay)
	err := policy.Do(ctx, func() error {
		var err error
		text, err = o.transcribe.Transcribe(ctx, audio, languageHint)
		return err
	})
	return text, err
}

func (o *Orchestrator) generateReply(ctx context.Context, sess *call.Session, language string, log *slog.Logger) string {
	req := llm.Request{
		System:      lang.Persona(language),
		Messages:    historyMessages(sess.RecentTurns(o.cfg.HistoryWindow)),
		Temperature: o.cfg.ReplyTemperature,
		MaxTokens:   o.cfg.ReplyMaxTokens,
	}

	if o.aiSlots != nil {
		if err := o.aiSlots.Acquire(ctx); err != nil {
			log.Warn("ai_slot_unavailable", slog.Any("error", err))
			return lang.FallbackPhrase(language)
		}
		defer o.aiSlots.Release()
	}

	reply, err := o.respond.Generate(ctx, req)
	if err != nil || reply == "" {
		log.Warn("reply_generation_degraded", slog.Any("error", err))
		o.record(metrics.EventReplyFallbackUsed, sess.CallID, nil)
		return lang.FallbackPhrase(language)
	}
	return reply
}

func historyMessages(turns []call.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Speaker == call.SpeakerAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs
}

func (o *Orchestrator) record(name, callID string, tags map[string]string) {
	if tags == nil {
		tags = map[string]string{}
	}
	tags["call_id"] = callID
	o.observer.RecordEvent(metrics.MetricsEvent{Name: name, Time: o.now(), Tags: tags})
}
