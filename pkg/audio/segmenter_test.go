package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// chunk builds d worth of 16 kHz mono PCM at a constant absolute amplitude.
func chunk(amplitude int16, d time.Duration) []byte {
	samples := int(float64(16000) * d.Seconds())
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(amplitude))
	}
	return out
}

func newTestSegmenter(clock *fakeClock) *Segmenter {
	s := NewSegmenter(SegmenterConfig{})
	s.now = clock.now
	return s
}

func TestSegmenterIgnoresNoiseFloor(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := newTestSegmenter(clock)
	for i := 0; i < 200; i++ {
		if s.Push(chunk(50, 100*time.Millisecond)) {
			t.Fatalf("unexpected utterance signal from noise floor at chunk %d", i)
		}
		clock.advance(100 * time.Millisecond)
	}
	if s.SpeechDetected() {
		t.Fatalf("speech flagged below threshold")
	}
}

func TestSegmenterSignalsOnceAfterSpeechThenSilence(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := newTestSegmenter(clock)

	for i := 0; i < 6; i++ {
		if s.Push(chunk(1000, 100*time.Millisecond)) {
			t.Fatalf("signal during speech")
		}
		clock.advance(100 * time.Millisecond)
	}

	signals := 0
	for i := 0; i < 15; i++ {
		if s.Push(chunk(10, 100*time.Millisecond)) {
			signals++
			break
		}
		clock.advance(100 * time.Millisecond)
	}
	if signals != 1 {
		t.Fatalf("expected exactly one signal, got %d", signals)
	}

	got := s.Drain()
	if len(got) == 0 {
		t.Fatalf("expected buffered utterance audio")
	}
	if s.Buffered() != 0 {
		t.Fatalf("expected empty buffer after drain")
	}
	if s.Push(chunk(10, 100*time.Millisecond)) {
		t.Fatalf("unexpected signal after drain with no new speech")
	}
}

func TestSegmenterHoldsUtteranceBelowMinSpeech(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := newTestSegmenter(clock)

	// 200ms of speech is under the 600ms floor.
	if s.Push(chunk(1000, 200*time.Millisecond)) {
		t.Fatalf("signal during speech")
	}
	clock.advance(200 * time.Millisecond)
	if s.Push(chunk(10, 100*time.Millisecond)) {
		t.Fatalf("signal before silence window")
	}
	clock.advance(1300 * time.Millisecond)
	if s.Push(chunk(10, 100*time.Millisecond)) {
		t.Fatalf("expected no signal below min speech duration")
	}
}

func TestSegmenterForceEmitsAtBufferCap(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := newTestSegmenter(clock)

	signalled := false
	for i := 0; i < 11; i++ {
		if s.Push(chunk(1000, time.Second)) {
			signalled = true
			break
		}
		clock.advance(time.Second)
	}
	if !signalled {
		t.Fatalf("expected force emit once buffer exceeded cap")
	}
}

func TestSegmenterDropsSilentBufferAtCap(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := newTestSegmenter(clock)

	for i := 0; i < 12; i++ {
		if s.Push(chunk(20, time.Second)) {
			t.Fatalf("signal without any detected speech")
		}
		clock.advance(time.Second)
	}
	if s.Buffered() >= s.cfg.bytesFor(s.cfg.MaxBuffer) {
		t.Fatalf("expected silent buffer discarded at cap, have %d bytes", s.Buffered())
	}
}

func TestMeanAbsAmplitudeOddChunk(t *testing.T) {
	if got := meanAbsAmplitude([]byte{0x01, 0x02, 0x03}); got != 0 {
		t.Fatalf("expected zero energy for malformed chunk, got %f", got)
	}
	if got := meanAbsAmplitude(nil); got != 0 {
		t.Fatalf("expected zero energy for empty chunk, got %f", got)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := chunk(100, 10*time.Millisecond)
	wav := EncodeWAV(pcm, 16000)
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad container magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); int(got) != len(pcm) {
		t.Fatalf("data length = %d, want %d", got, len(pcm))
	}
}
