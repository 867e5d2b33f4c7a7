package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/vidya/pkg/call"
	"github.com/harunnryd/vidya/pkg/llm"
	"github.com/harunnryd/vidya/pkg/providers/mock"
	"github.com/harunnryd/vidya/pkg/resilience"
)

func turns() []call.Turn {
	now := time.Now()
	return []call.Turn{
		{Speaker: call.SpeakerAI, Text: "Hello, this is about your payment.", Language: "en-IN", At: now},
		{Speaker: call.SpeakerUser, Text: "I will pay on the first of March.", Language: "en-IN", At: now},
	}
}

func TestAnalyzeDecodesModelJSON(t *testing.T) {
	responder := mock.NewResponder(`{"summary":"Borrower promised payment.","sentiment":"Positive","intent":"Will Pay","payment_date":"2024-03-01","mid_call":false}`)
	a := NewAnalyzer(responder, nil, nil)

	res, err := a.Analyze(context.Background(), turns())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Intent != IntentWillPay {
		t.Fatalf("intent = %s", res.Intent)
	}
	if res.CommittedDate != "2024-03-01" {
		t.Fatalf("committed date = %s", res.CommittedDate)
	}
	if res.MidCallHangup {
		t.Fatalf("unexpected mid-call flag")
	}
	reqs := responder.Requests()
	if len(reqs) != 1 || !reqs[0].JSONOnly {
		t.Fatalf("expected a single JSON-mode request")
	}
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	responder := mock.NewResponder("```json\n{\"summary\":\"s\",\"sentiment\":\"Neutral\",\"intent\":\"Dispute\",\"payment_date\":\"\",\"mid_call\":true}\n```")
	a := NewAnalyzer(responder, nil, nil)

	res, err := a.Analyze(context.Background(), turns())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Intent != IntentDispute || !res.MidCallHangup {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	a := NewAnalyzer(mock.NewResponder("ignored"), nil, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Intent != IntentNoResponse {
		t.Fatalf("intent = %s", res.Intent)
	}
}

func TestAnalyzeUnknownIntentDefaults(t *testing.T) {
	responder := mock.NewResponder(`{"summary":"s","sentiment":"Neutral","intent":"Gibberish","payment_date":"","mid_call":false}`)
	a := NewAnalyzer(responder, nil, nil)
	res, err := a.Analyze(context.Background(), turns())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Intent != IntentNoResponse {
		t.Fatalf("intent = %s", res.Intent)
	}
}

func TestAnalyzeHonorsSemaphore(t *testing.T) {
	sem := resilience.NewSemaphore(1)
	release := make(chan struct{})
	blocking := &mock.Responder{Fn: func(req llm.Request) (string, error) {
		<-release
		return `{"summary":"s","sentiment":"Neutral","intent":"No Response","payment_date":"","mid_call":false}`, nil
	}}
	a := NewAnalyzer(blocking, sem, nil)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = a.Analyze(context.Background(), turns())
	}()
	<-started
	// Give the goroutine time to take the only slot.
	deadline := time.Now().Add(time.Second)
	for sem.InUse() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sem.InUse() != 1 {
		t.Fatalf("expected semaphore slot held")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.Analyze(ctx, turns()); err == nil {
		t.Fatalf("expected context error while semaphore is saturated")
	}
	close(release)
}
