package vidya

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/vidya/pkg/transports"
)

// LoopbackDialer fakes the telephony provider in-process: every Dial
// answers itself, streams synthetic caller audio through the engine, and
// fires the terminal status event. It powers local runs and end-to-end
// tests without a Vonage account.
type LoopbackDialer struct {
	Handler    transports.CallHandler
	Utterances int
	Logger     *slog.Logger
}

func (d *LoopbackDialer) Dial(ctx context.Context, req transports.DialRequest) (string, error) {
	callID := "sim-" + uuid.NewString()
	go d.runCall(ctx, callID, req)
	return callID, nil
}

func (d *LoopbackDialer) runCall(ctx context.Context, callID string, req transports.DialRequest) {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "loopback"), slog.String("call_id", callID))

	err := d.Handler.HandleAnswer(ctx, transports.AnswerRequest{
		CallID:            callID,
		OwnerID:           req.OwnerID,
		BorrowerID:        req.BorrowerID,
		BorrowerName:      req.BorrowerName,
		PreferredLanguage: req.PreferredLanguage,
		To:                req.To,
	})
	if err != nil {
		log.Warn("simulated_answer_rejected", slog.Any("error", err))
		return
	}
	d.Handler.TakeGreeting(callID)

	stream, ok := d.Handler.OpenStream(callID, func([]byte) error { return nil })
	if ok {
		n := d.Utterances
		if n <= 0 {
			n = 2
		}
		for i := 0; i < n; i++ {
			feedFrames(stream, speechPCM(800*time.Millisecond))
			feedFrames(stream, silencePCM(1500*time.Millisecond))
		}
		stream.Close()
	}

	if err := d.Handler.HandleEvent(ctx, callID, "completed"); err != nil {
		log.Warn("simulated_completion_failed", slog.Any("error", err))
	}
}

// feedFrames pushes PCM in 20 ms chunks, the cadence a real media socket
// delivers.
func feedFrames(stream transports.StreamSession, pcm []byte) {
	const frame = 640 // 20 ms of 16 kHz mono s16le
	for off := 0; off < len(pcm); off += frame {
		end := off + frame
		if end > len(pcm) {
			end = len(pcm)
		}
		stream.PushAudio(pcm[off:end])
	}
}

func speechPCM(d time.Duration) []byte {
	samples := int(16000 * d.Seconds())
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(2000)
		if i%2 == 1 {
			v = -2000
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func silencePCM(d time.Duration) []byte {
	samples := int(16000 * d.Seconds())
	return make([]byte, samples*2)
}

var _ transports.OutboundDialer = (*LoopbackDialer)(nil)
