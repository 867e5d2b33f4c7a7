package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver decouples event producers from a slow sink. A full
// buffer drops the event rather than blocking the call path.
type AsyncObserver struct {
	inner   Observer
	ch      chan MetricsEvent
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
	done    chan struct{}
}

func NewAsyncObserver(inner Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{
		inner: inner,
		ch:    make(chan MetricsEvent, buffer),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops intake and waits for buffered events to drain.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		<-a.done
	})
}

func (a *AsyncObserver) loop() {
	for ev := range a.ch {
		a.inner.RecordEvent(ev)
	}
	close(a.done)
}
