package metrics

import "time"

// MetricsEvent is one occurrence in the call pipeline: a turn finishing,
// a dispatch attempt failing, a language switch. Tags carry low-cardinality
// labels (call_id, language), Fields carry anything else.
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Observer receives events. Implementations must tolerate concurrent calls.
type Observer interface {
	RecordEvent(ev MetricsEvent)
}

// Flusher is implemented by observers that buffer output.
type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
