package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/vidya/pkg/metrics"
	"github.com/harunnryd/vidya/pkg/outcome"
	"github.com/harunnryd/vidya/pkg/redact"
	"github.com/harunnryd/vidya/pkg/store"
	"github.com/harunnryd/vidya/pkg/transports"
)

type Config struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryPause        time.Duration `mapstructure:"retry_pause"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`

	// DefaultLanguage is used for borrowers with no stated preference.
	DefaultLanguage string `mapstructure:"default_language"`
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryPause <= 0 {
		c.RetryPause = time.Second
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = 10 * time.Minute
	}
	return c
}

// Result is the final word on one borrower's dispatch.
type Result struct {
	BorrowerID       string
	CallID           string
	Attempts         int
	Completed        bool
	ForcedEscalation bool
	Outcome          *outcome.Outcome
	Err              error
}

// Summary aggregates a bulk dispatch run.
type Summary struct {
	Total     int
	Completed int
	Escalated int
	Results   []Result
}

// Dispatcher drives the placement loop: dial, wait for the engine to
// publish the completion, retry on failure, and force an escalation when
// every attempt fails.
type Dispatcher struct {
	cfg      Config
	dialer   transports.OutboundDialer
	hub      *Hub
	st       store.Store
	observer metrics.Observer
	logger   *slog.Logger
}

func NewDispatcher(cfg Config, dialer transports.OutboundDialer, hub *Hub, st store.Store, observer metrics.Observer, logger *slog.Logger) *Dispatcher {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg.withDefaults(),
		dialer:   dialer,
		hub:      hub,
		st:       st,
		observer: observer,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Place runs the full attempt loop for one borrower. A call that connects
// and then drops mid-conversation still counts as completed; only calls
// that never connect burn an attempt.
func (d *Dispatcher) Place(ctx context.Context, ownerID string, b store.Borrower) Result {
	res := Result{BorrowerID: b.ID}
	log := d.logger.With(
		slog.String("owner_id", ownerID),
		slog.String("borrower_id", b.ID),
		slog.String("phone", redact.Phone(b.Phone)),
	)

	language := b.PreferredLanguage
	if language == "" {
		language = d.cfg.DefaultLanguage
	}

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		callID, err := d.dialer.Dial(ctx, transports.DialRequest{
			To:                b.Phone,
			OwnerID:           ownerID,
			BorrowerID:        b.ID,
			BorrowerName:      b.Name,
			PreferredLanguage: language,
		})
		if err != nil {
			res.Err = err
			log.Warn("call_placement_failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			d.record(metrics.EventDispatchAttemptFailed, ownerID, b.ID)
			if !d.pause(ctx, attempt) {
				break
			}
			continue
		}
		res.CallID = callID
		log.Info("call_placed", slog.String("call_id", callID), slog.Int("attempt", attempt))
		d.record(metrics.EventDispatchCallPlaced, ownerID, b.ID)

		if c, ok := d.waitForCompletion(ctx, callID); ok {
			res.Completed = true
			res.Err = nil
			out := c.Outcome
			res.Outcome = &out
			d.record(metrics.EventDispatchCallCompleted, ownerID, b.ID)
			return res
		}
		d.hub.Forget(callID)
		log.Warn("call_never_completed", slog.String("call_id", callID), slog.Int("attempt", attempt))
		if !d.pause(ctx, attempt) {
			break
		}
	}

	res.ForcedEscalation = true
	forced := outcome.ForcedEscalation(b.Name, d.cfg.MaxAttempts)
	res.Outcome = &forced
	d.record(metrics.EventDispatchForcedEscalation, ownerID, b.ID)
	log.Error("all_call_attempts_failed", slog.Int("attempts", d.cfg.MaxAttempts))

	rec := store.CallRecord{
		CallID:     "unplaced-" + uuid.NewString(),
		OwnerID:    ownerID,
		BorrowerID: b.ID,
		StartedAt:  time.Now(),
		EndedAt:    time.Now(),
		Outcome:    forced,
	}
	if err := d.st.SaveCallRecord(ctx, ownerID, rec); err != nil {
		log.Error("forced_escalation_persist_failed", slog.Any("error", err))
	}

	// The borrower record carries the escalation so the account surfaces
	// in manual-process views even though no call ever connected.
	b.RequiresManualProcess = true
	b.ManagerNotification = forced.Notification
	b.AISummary = forced.Summary
	if err := d.st.UpdateBorrower(ctx, ownerID, b); err != nil {
		log.Error("forced_escalation_borrower_update_failed", slog.Any("error", err))
	}
	return res
}

// PlaceBulk dispatches every borrower concurrently and waits for all of
// them. Per-call ordering is untouched; only distinct borrowers overlap.
func (d *Dispatcher) PlaceBulk(ctx context.Context, ownerID string, borrowers []store.Borrower) Summary {
	results := make([]Result, len(borrowers))
	var wg sync.WaitGroup
	for i, b := range borrowers {
		wg.Add(1)
		go func(i int, b store.Borrower) {
			defer wg.Done()
			results[i] = d.Place(ctx, ownerID, b)
		}(i, b)
	}
	wg.Wait()

	sum := Summary{Total: len(borrowers), Results: results}
	for _, r := range results {
		if r.Completed {
			sum.Completed++
		}
		if r.ForcedEscalation {
			sum.Escalated++
		}
	}
	return sum
}

func (d *Dispatcher) waitForCompletion(ctx context.Context, callID string) (Completion, bool) {
	select {
	case c := <-d.hub.Await(callID):
		return c, true
	case <-time.After(d.cfg.CompletionTimeout):
		return Completion{}, false
	case <-ctx.Done():
		return Completion{}, false
	}
}

// pause sleeps between attempts; the last attempt skips it. Returns false
// when the context died.
func (d *Dispatcher) pause(ctx context.Context, attempt int) bool {
	if attempt >= d.cfg.MaxAttempts {
		return true
	}
	select {
	case <-time.After(d.cfg.RetryPause):
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) record(name, ownerID, borrowerID string) {
	d.observer.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"owner_id": ownerID, "borrower_id": borrowerID},
	})
}
