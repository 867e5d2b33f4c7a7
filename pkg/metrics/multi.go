package metrics

// MultiObserver fans every event out to each inner observer in order.
type MultiObserver struct {
	inner []Observer
}

func NewMultiObserver(inner ...Observer) *MultiObserver {
	kept := make([]Observer, 0, len(inner))
	for _, o := range inner {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &MultiObserver{inner: kept}
}

func (m *MultiObserver) RecordEvent(ev MetricsEvent) {
	for _, o := range m.inner {
		o.RecordEvent(ev)
	}
}

func (m *MultiObserver) Flush() error {
	var first error
	for _, o := range m.inner {
		if f, ok := o.(Flusher); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
