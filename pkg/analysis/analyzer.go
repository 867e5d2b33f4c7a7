// Package analysis classifies a finished call transcript into a structured
// result: summary, sentiment, borrower intent, any committed payment date,
// and whether the caller hung up mid-conversation.
package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/harunnryd/vidya/pkg/call"
	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/logging"
	"github.com/harunnryd/vidya/pkg/resilience"
)

// Result is the analyzed transcript.
type Result struct {
	Summary       string
	Sentiment     string
	Intent        Intent
	CommittedDate string
	MidCallHangup bool
}

const analysisPrompt = `You are an analyst reviewing a loan collection call transcript.
Respond with a single JSON object and nothing else, using exactly these keys:
{
  "summary": "two or three sentence summary of the call",
  "sentiment": "Positive" | "Neutral" | "Negative",
  "intent": "Paid" | "Will Pay" | "Needs Extension" | "Dispute" | "No Response" | "Abusive Language" | "Threatening Language" | "Stop Calling",
  "payment_date": "YYYY-MM-DD or empty string when no date was committed",
  "mid_call": true when the borrower hung up abruptly before a natural close, else false
}`

// Analyzer drives transcript classification through the reply-provider chain
// in JSON mode, throttled by the shared AI concurrency semaphore.
type Analyzer struct {
	chain  llm.Adapter
	sem    *resilience.Semaphore
	logger *slog.Logger
}

func NewAnalyzer(chain llm.Adapter, sem *resilience.Semaphore, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		chain:  chain,
		sem:    sem,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, turns []call.Turn) (Result, error) {
	if len(turns) == 0 {
		return Result{Intent: IntentNoResponse, Summary: "No conversation took place.", Sentiment: "Neutral"}, nil
	}
	if a.sem != nil {
		if err := a.sem.Acquire(ctx); err != nil {
			return Result{}, errorsx.Wrap(err, errorsx.ReasonAnalysis)
		}
		defer a.sem.Release()
	}

	req := llm.Request{
		System: analysisPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Transcript:\n" + RenderTranscript(turns)},
		},
		Temperature: 0.2,
		JSONOnly:    true,
	}
	raw, err := a.chain.Generate(ctx, req)
	if err != nil {
		return Result{}, errorsx.Wrap(err, errorsx.ReasonAnalysis)
	}

	var wire struct {
		Summary     string `json:"summary"`
		Sentiment   string `json:"sentiment"`
		Intent      string `json:"intent"`
		PaymentDate string `json:"payment_date"`
		MidCall     bool   `json:"mid_call"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &wire); err != nil {
		a.logger.Warn("analysis_decode_failed", "error", err.Error())
		return Result{}, errorsx.Wrap(err, errorsx.ReasonAnalysis)
	}
	res := Result{
		Summary:       strings.TrimSpace(wire.Summary),
		Sentiment:     strings.TrimSpace(wire.Sentiment),
		Intent:        NormalizeIntent(wire.Intent),
		CommittedDate: strings.TrimSpace(wire.PaymentDate),
		MidCallHangup: wire.MidCall,
	}
	a.logger.Info("transcript_analyzed",
		"intent", string(res.Intent),
		"mid_call", res.MidCallHangup,
		"turns", len(turns),
	)
	return res, nil
}

// RenderTranscript flattens turns into the "Speaker: text" form the
// analysis prompt expects.
func RenderTranscript(turns []call.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(string(t.Speaker))
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
