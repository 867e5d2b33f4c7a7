package turn

import (
	"context"
	"log/slog"

	"github.com/harunnryd/vidya/pkg/call"
)

// Worker serializes utterance handling for one call. The socket reader
// enqueues finished utterances and returns immediately; a single goroutine
// drains the queue so replies always land in utterance order.
type Worker struct {
	orc   *Orchestrator
	sess  *call.Session
	send  func([]byte) error
	queue chan []byte
	done  chan struct{}
	log   *slog.Logger
}

// NewWorker starts the drain goroutine. The worker stops when Close is
// called or ctx is cancelled, whichever comes first.
func (o *Orchestrator) NewWorker(ctx context.Context, sess *call.Session, send func([]byte) error) *Worker {
	w := &Worker{
		orc:   o,
		sess:  sess,
		send:  send,
		queue: make(chan []byte, o.cfg.QueueDepth),
		done:  make(chan struct{}),
		log:   o.logger.With(slog.String("call_id", sess.CallID)),
	}
	go w.run(ctx)
	return w
}

// Enqueue hands an utterance to the worker without blocking. A full queue
// drops the utterance; the caller keeps reading the socket either way.
func (w *Worker) Enqueue(audio []byte) bool {
	select {
	case w.queue <- audio:
		return true
	default:
		w.log.Warn("utterance_queue_full", slog.Int("bytes", len(audio)))
		return false
	}
}

// Close stops accepting utterances and waits for in-flight work to finish.
func (w *Worker) Close() {
	close(w.queue)
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case audio, ok := <-w.queue:
			if !ok {
				return
			}
			if !w.sess.Active() {
				continue
			}
			if err := w.orc.HandleUtterance(ctx, w.sess, audio, w.send); err != nil {
				w.log.Warn("utterance_handling_failed", slog.Any("error", err))
			}
		}
	}
}
