package call

import (
	"sync"
	"testing"
	"time"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	sess := NewSession("uuid-1", "owner-1", "", "en-IN", time.Now())
	if !r.Create(sess) {
		t.Fatalf("create failed")
	}
	if r.Create(sess) {
		t.Fatalf("duplicate callID must be rejected")
	}
	got, ok := r.Get("uuid-1")
	if !ok || got.CallID != "uuid-1" {
		t.Fatalf("get failed")
	}
	if r.Count() != 1 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestRegistryCompleteUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Complete("missing"); ok {
		t.Fatalf("unknown callID completion should be a no-op")
	}
}

func TestRegistryCompleteIsExactlyOnce(t *testing.T) {
	r := NewRegistry()
	sess := NewSession("uuid-2", "owner-1", "", "en-IN", time.Now())
	r.Create(sess)
	r.PutGreeting("uuid-2", []byte{1, 2})

	done, ok := r.Complete("uuid-2")
	if !ok {
		t.Fatalf("expected completion")
	}
	if done.Active() {
		t.Fatalf("completed session still active")
	}
	if done.State() != StateCompleted {
		t.Fatalf("state = %s", done.State())
	}
	if _, ok := r.Complete("uuid-2"); ok {
		t.Fatalf("second completion should be a no-op")
	}
	if _, ok := r.TakeGreeting("uuid-2"); ok {
		t.Fatalf("greeting cache must be cleared on completion")
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestRegistryConcurrentCompletion(t *testing.T) {
	r := NewRegistry()
	sess := NewSession("uuid-3", "owner-1", "", "en-IN", time.Now())
	r.Create(sess)

	var wg sync.WaitGroup
	completions := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Complete("uuid-3")
			completions <- ok
		}()
	}
	wg.Wait()
	close(completions)
	won := 0
	for ok := range completions {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
}

func TestRegistryGreetingTakenOnce(t *testing.T) {
	r := NewRegistry()
	r.PutGreeting("uuid-4", []byte{9, 9})
	pcm, ok := r.TakeGreeting("uuid-4")
	if !ok || len(pcm) != 2 {
		t.Fatalf("expected greeting")
	}
	if _, ok := r.TakeGreeting("uuid-4"); ok {
		t.Fatalf("greeting should be single-use")
	}
}
