// Package dispatch places outbound calls, retries failed placements, and
// fans bulk campaigns out concurrently.
package dispatch

import (
	"sync"

	"github.com/harunnryd/vidya/pkg/outcome"
)

// Completion is the engine's signal that a placed call reached its final
// disposition.
type Completion struct {
	CallID        string
	BorrowerID    string
	Outcome       outcome.Outcome
	MidCallHangup bool
}

// Hub hands call completions from the engine to whichever dispatcher is
// waiting on them. Publish before Await is safe: the completion is parked
// until someone asks for it.
type Hub struct {
	mu      sync.Mutex
	waiters map[string]chan Completion
	parked  map[string]Completion
}

func NewHub() *Hub {
	return &Hub{
		waiters: make(map[string]chan Completion),
		parked:  make(map[string]Completion),
	}
}

// Await returns a channel that yields the call's completion exactly once.
func (h *Hub) Await(callID string) <-chan Completion {
	ch := make(chan Completion, 1)
	h.mu.Lock()
	if c, ok := h.parked[callID]; ok {
		delete(h.parked, callID)
		ch <- c
	} else {
		h.waiters[callID] = ch
	}
	h.mu.Unlock()
	return ch
}

// Publish delivers a completion to its waiter, or parks it when nobody is
// waiting yet.
func (h *Hub) Publish(c Completion) {
	h.mu.Lock()
	if ch, ok := h.waiters[c.CallID]; ok {
		delete(h.waiters, c.CallID)
		h.mu.Unlock()
		ch <- c
		return
	}
	h.parked[c.CallID] = c
	h.mu.Unlock()
}

// Forget drops any state for the call, for waiters that gave up.
func (h *Hub) Forget(callID string) {
	h.mu.Lock()
	delete(h.waiters, callID)
	delete(h.parked, callID)
	h.mu.Unlock()
}
