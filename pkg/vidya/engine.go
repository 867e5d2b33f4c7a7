package vidya

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/vidya/pkg/adapters/tts"
	"github.com/harunnryd/vidya/pkg/analysis"
	"github.com/harunnryd/vidya/pkg/audio"
	"github.com/harunnryd/vidya/pkg/call"
	"github.com/harunnryd/vidya/pkg/dispatch"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/lang"
	"github.com/harunnryd/vidya/pkg/metrics"
	"github.com/harunnryd/vidya/pkg/outcome"
	"github.com/harunnryd/vidya/pkg/store"
	"github.com/harunnryd/vidya/pkg/transports"
	"github.com/harunnryd/vidya/pkg/turn"
)

// Engine owns the call lifecycle between the transport and the store. It
// implements transports.CallHandler: answers register sessions and cache a
// greeting, media streams feed the segmenter and turn worker, and the
// provider's terminal status event is the only thing that finalizes a call.
type Engine struct {
	registry *call.Registry
	orc      *turn.Orchestrator
	synth    tts.Synthesizer
	analyzer *analysis.Analyzer
	st       store.Store
	hub      *dispatch.Hub
	observer metrics.Observer
	logger   *slog.Logger

	segCfg audio.SegmenterConfig
	now    func() time.Time
}

func NewEngine(
	orc *turn.Orchestrator,
	synth tts.Synthesizer,
	analyzer *analysis.Analyzer,
	st store.Store,
	hub *dispatch.Hub,
	segCfg audio.SegmenterConfig,
	observer metrics.Observer,
	logger *slog.Logger,
) *Engine {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: call.NewRegistry(),
		orc:      orc,
		synth:    synth,
		analyzer: analyzer,
		st:       st,
		hub:      hub,
		observer: observer,
		logger:   logger.With(slog.String("component", "engine")),
		segCfg:   segCfg,
		now:      time.Now,
	}
}

// Registry exposes active-call state for the HTTP surface and drain logic.
func (e *Engine) Registry() *call.Registry { return e.registry }

// HandleAnswer registers the session and pre-synthesizes the greeting so
// the first thing the borrower hears needs no model round-trip. A greeting
// synthesis failure is not fatal; the call proceeds without one.
func (e *Engine) HandleAnswer(ctx context.Context, req transports.AnswerRequest) error {
	if e.registry.Draining() {
		return errorsx.New(errorsx.ReasonSessionState, "engine is draining, rejecting call %s", req.CallID)
	}
	language := lang.Normalize(req.PreferredLanguage)
	sess := call.NewSession(req.CallID, req.OwnerID, req.BorrowerID, language, e.now())
	if !e.registry.Create(sess) {
		// Duplicate answer webhook; the greeting is already cached.
		return nil
	}
	log := e.logger.With(slog.String("call_id", req.CallID))

	// The greeting opens the transcript so post-call analysis sees the
	// whole conversation, not just the borrower's side.
	greeting := lang.Greeting(language, req.BorrowerName)
	sess.AppendTurn(call.SpeakerAI, greeting, language, e.now())
	pcm, err := e.synth.Synthesize(ctx, greeting, language)
	if err != nil {
		log.Warn("greeting_synthesis_failed", slog.Any("error", err))
	} else if len(pcm) > 0 {
		e.registry.PutGreeting(req.CallID, pcm)
	}

	log.Info("call_session_created",
		slog.String("owner_id", req.OwnerID),
		slog.String("language", language))
	e.record(metrics.EventCallAnswered, req.CallID)
	return nil
}

func (e *Engine) TakeGreeting(callID string) ([]byte, bool) {
	return e.registry.TakeGreeting(callID)
}

// OpenStream attaches the media socket to a registered call: a fresh
// segmenter plus a per-call turn worker keep utterances strictly ordered
// without blocking the socket reader.
func (e *Engine) OpenStream(callID string, send func([]byte) error) (transports.StreamSession, bool) {
	sess, ok := e.registry.Get(callID)
	if !ok || !sess.Active() {
		return nil, false
	}
	if err := sess.Transition(call.StateStreaming); err != nil {
		// A reconnecting socket finds the session already streaming.
		e.logger.Debug("stream_reattached", slog.String("call_id", callID))
	}
	worker := e.orc.NewWorker(context.Background(), sess, send)
	return &engineStream{
		seg:    audio.NewSegmenter(e.segCfg),
		worker: worker,
	}, true
}

// HandleEvent finalizes the call on its terminal status. Unknown and
// repeated call identifiers are acknowledged without effect, so replayed
// webhooks cannot double-finalize.
func (e *Engine) HandleEvent(ctx context.Context, callID, status string) error {
	sess, ok := e.registry.Complete(callID)
	if !ok {
		e.logger.Debug("completion_for_unknown_call",
			slog.String("call_id", callID),
			slog.String("status", status))
		return nil
	}
	log := e.logger.With(slog.String("call_id", callID))
	log.Info("call_completed",
		slog.String("status", status),
		slog.Int("turns", sess.TurnCount()))
	e.record(metrics.EventCallCompleted, callID)

	turns := sess.Transcript()
	result, err := e.analyzer.Analyze(ctx, turns)
	if err != nil {
		log.Warn("transcript_analysis_degraded", slog.Any("error", err))
	}

	borrower, berr := e.st.GetBorrower(ctx, sess.OwnerID, sess.BorrowerRef)
	if berr != nil {
		log.Warn("borrower_lookup_failed", slog.Any("error", berr))
	}

	out := outcome.Resolve(outcome.Input{
		Intent:        result.Intent,
		CommittedDate: result.CommittedDate,
		Category:      outcome.NormalizeCategory(borrower.Category),
		MidCallHangup: result.MidCallHangup,
		BorrowerName:  borrower.Name,
		Summary:       result.Summary,
	}, e.now())

	rec := store.CallRecord{
		CallID:           callID,
		OwnerID:          sess.OwnerID,
		BorrowerID:       sess.BorrowerRef,
		StartedAt:        sess.StartedAt,
		EndedAt:          e.now(),
		Transcript:       turns,
		LanguageSwitches: sess.Switches(),
		Analysis:         result,
		Outcome:          out,
	}
	if err := e.st.SaveCallRecord(ctx, sess.OwnerID, rec); err != nil {
		log.Error("call_record_persist_failed", slog.Any("error", err))
	}

	if berr == nil {
		borrower.FollowUpDates = out.FollowUpDates
		borrower.CallFrequency = out.CallFrequency
		borrower.PaymentConfirmed = borrower.PaymentConfirmed || out.PaymentConfirmed
		borrower.RequiresManualProcess = out.RequiresManualEscalation
		borrower.ManagerNotification = out.Notification
		borrower.AISummary = out.Summary
		borrower.LastCalledAt = e.now()
		if err := e.st.UpdateBorrower(ctx, sess.OwnerID, borrower); err != nil {
			log.Error("borrower_update_failed", slog.Any("error", err))
		}
	}

	e.hub.Publish(dispatch.Completion{
		CallID:        callID,
		BorrowerID:    sess.BorrowerRef,
		Outcome:       out,
		MidCallHangup: result.MidCallHangup,
	})
	return nil
}

// Drain stops accepting new calls and waits for active ones to finish.
func (e *Engine) Drain() error {
	e.registry.SetDraining(true)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if !e.registry.WaitForEmpty(ctx, 250*time.Millisecond) {
		e.logger.Warn("drain_timeout", slog.Int("active_calls", int(e.registry.Count())))
		e.registry.CloseAll()
	}
	return nil
}

func (e *Engine) record(name, callID string) {
	e.observer.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: e.now(),
		Tags: map[string]string{"call_id": callID},
	})
}

// engineStream owns one socket's segmentation state. The socket reader
// goroutine is the only caller, so no locking is needed here.
type engineStream struct {
	seg    *audio.Segmenter
	worker *turn.Worker
}

func (s *engineStream) PushAudio(chunk []byte) {
	if s.seg.Push(chunk) {
		s.worker.Enqueue(s.seg.Drain())
	}
}

// Close flushes a trailing utterance if the caller was still speaking, then
// stops the worker. Finalization is left to the provider's status event.
func (s *engineStream) Close() {
	if s.seg.SpeechDetected() {
		if utt := s.seg.Drain(); len(utt) > 0 {
			s.worker.Enqueue(utt)
		}
	}
	s.worker.Close()
}

var _ transports.CallHandler = (*Engine)(nil)
