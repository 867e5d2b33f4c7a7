package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMultiObserverFansOut(t *testing.T) {
	a := NewMemoryObserver()
	b := NewMemoryObserver()
	m := NewMultiObserver(a, nil, b)

	m.RecordEvent(MetricsEvent{Name: EventCallCompleted, Time: time.Now()})

	if a.Count(EventCallCompleted) != 1 || b.Count(EventCallCompleted) != 1 {
		t.Fatalf("counts = %d, %d", a.Count(EventCallCompleted), b.Count(EventCallCompleted))
	}
}

func TestJSONLObserverWritesTags(t *testing.T) {
	var buf bytes.Buffer
	o := NewJSONLObserver(&buf)
	o.RecordEvent(MetricsEvent{
		Name: EventDispatchCallPlaced,
		Time: time.Now(),
		Tags: map[string]string{"call_id": "CALL-1"},
	})
	line := buf.String()
	if !strings.Contains(line, EventDispatchCallPlaced) || !strings.Contains(line, "CALL-1") {
		t.Fatalf("line = %q", line)
	}
}

func TestAsyncObserverDeliversAndDrops(t *testing.T) {
	inner := NewMemoryObserver()
	a := NewAsyncObserver(inner, 4)
	for i := 0; i < 4; i++ {
		a.RecordEvent(MetricsEvent{Name: EventTurnCompleted})
	}
	a.Close()

	deadline := time.Now().Add(time.Second)
	for inner.Count(EventTurnCompleted) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := inner.Count(EventTurnCompleted); got != 4 {
		t.Fatalf("delivered = %d, want 4", got)
	}

	a.RecordEvent(MetricsEvent{Name: EventTurnCompleted})
	if inner.Count(EventTurnCompleted) != 4 {
		t.Fatal("events must not be delivered after Close")
	}
}

func TestSamplingObserverZeroRateDropsEverything(t *testing.T) {
	inner := NewMemoryObserver()
	s := NewSamplingObserver(inner, 0)
	for i := 0; i < 10; i++ {
		s.RecordEvent(MetricsEvent{Name: EventTurnCompleted})
	}
	if inner.Count(EventTurnCompleted) != 0 {
		t.Fatalf("delivered = %d, want 0", inner.Count(EventTurnCompleted))
	}
}
