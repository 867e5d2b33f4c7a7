package resilience

import "context"

// Semaphore is a counting semaphore bounding concurrent access to an
// upstream resource. Callers beyond the capacity wait, they are not rejected.
type Semaphore struct {
	slots chan struct{}
}

func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire grabs a slot without blocking.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}

// InUse reports the number of held slots.
func (s *Semaphore) InUse() int {
	return len(s.slots)
}
