package call

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Registry is the process-wide map from call identifier to live session,
// plus the greeting-audio cache consumed when the audio stream opens.
// Sessions are created on the answer callback and removed exactly once by
// the completion callback; a dropped socket never removes anything.
type Registry struct {
	sessions  sync.Map
	greetings sync.Map
	count     atomic.Int64
	draining  atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create registers a session, returning false when the callID is taken.
func (r *Registry) Create(sess *Session) bool {
	if sess == nil || sess.CallID == "" {
		return false
	}
	if _, loaded := r.sessions.LoadOrStore(sess.CallID, sess); loaded {
		return false
	}
	r.count.Add(1)
	return true
}

// Get returns the live session for a callID.
func (r *Registry) Get(callID string) (*Session, bool) {
	if v, ok := r.sessions.Load(callID); ok {
		return v.(*Session), true
	}
	return nil, false
}

// Complete removes and finalizes the session for callID. It is the only
// removal path during normal operation; an unknown or already-completed
// callID is a no-op so duplicate and late completion events are harmless.
func (r *Registry) Complete(callID string) (*Session, bool) {
	v, ok := r.sessions.LoadAndDelete(callID)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	sess.MarkInactive()
	_ = sess.Transition(StateCompleted)
	r.greetings.Delete(callID)
	r.count.Add(-1)
	return sess, true
}

// PutGreeting caches pre-synthesized greeting audio for a call.
func (r *Registry) PutGreeting(callID string, pcm []byte) {
	if callID == "" || len(pcm) == 0 {
		return
	}
	r.greetings.Store(callID, pcm)
}

// TakeGreeting removes and returns the cached greeting audio, if any.
func (r *Registry) TakeGreeting(callID string) ([]byte, bool) {
	if v, ok := r.greetings.LoadAndDelete(callID); ok {
		return v.([]byte), true
	}
	return nil, false
}

// ActiveCalls snapshots the callIDs currently registered.
func (r *Registry) ActiveCalls() []string {
	var out []string
	r.sessions.Range(func(key, _ any) bool {
		if id, ok := key.(string); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}

func (r *Registry) Count() int64 {
	return r.count.Load()
}

func (r *Registry) SetDraining(v bool) {
	r.draining.Store(v)
}

func (r *Registry) Draining() bool {
	return r.draining.Load()
}

// CloseAll force-finalizes every session, used only at shutdown.
func (r *Registry) CloseAll() {
	r.sessions.Range(func(key, _ any) bool {
		if id, ok := key.(string); ok {
			r.Complete(id)
		}
		return true
	})
}

// WaitForEmpty polls until no sessions remain or ctx is done.
func (r *Registry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
