// Package audio implements endpoint detection over a live 16 kHz mono
// 16-bit PCM stream: it accumulates chunks and signals when silence after
// speech marks the end of one utterance.
package audio

import (
	"bytes"
	"time"
)

const bytesPerSample = 2

// SegmenterConfig tunes endpoint detection for one audio stream.
type SegmenterConfig struct {
	SampleRate      int
	EnergyThreshold float64
	SilenceWindow   time.Duration
	MinSpeech       time.Duration
	MaxBuffer       time.Duration
}

func (c SegmenterConfig) withDefaults() SegmenterConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = 300
	}
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = 1200 * time.Millisecond
	}
	if c.MinSpeech <= 0 {
		c.MinSpeech = 600 * time.Millisecond
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = 10 * time.Second
	}
	return c
}

func (c SegmenterConfig) bytesFor(d time.Duration) int {
	return int(float64(c.SampleRate*bytesPerSample) * d.Seconds())
}

// Segmenter buffers one call's inbound audio and reports utterance boundaries.
// Not safe for concurrent use; each stream owns its own instance.
type Segmenter struct {
	cfg SegmenterConfig
	now func() time.Time

	buf          bytes.Buffer
	speech       bool
	silenceSince time.Time
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	return &Segmenter{cfg: cfg.withDefaults(), now: time.Now}
}

// Push appends one chunk and reports whether a complete utterance is ready.
// The caller drains the buffer with Drain once ready.
func (s *Segmenter) Push(chunk []byte) bool {
	energy := meanAbsAmplitude(chunk)
	s.buf.Write(chunk)

	if energy >= s.cfg.EnergyThreshold {
		s.speech = true
		s.silenceSince = time.Time{}
	} else if s.speech && s.silenceSince.IsZero() {
		s.silenceSince = s.now()
	}

	if s.speech && !s.silenceSince.IsZero() &&
		s.now().Sub(s.silenceSince) >= s.cfg.SilenceWindow &&
		s.buf.Len() >= s.cfg.bytesFor(s.cfg.MinSpeech) {
		return true
	}

	if s.buf.Len() >= s.cfg.bytesFor(s.cfg.MaxBuffer) {
		if s.speech {
			// Force-emit to bound memory and reply latency on long monologues.
			return true
		}
		// Nothing but noise floor accumulated; discard instead of emitting.
		s.reset()
	}
	return false
}

// Drain returns the buffered utterance and resets all detection state.
func (s *Segmenter) Drain() []byte {
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	s.reset()
	return out
}

// Buffered reports the number of bytes accumulated so far.
func (s *Segmenter) Buffered() int {
	return s.buf.Len()
}

// SpeechDetected reports whether any chunk crossed the energy threshold.
func (s *Segmenter) SpeechDetected() bool {
	return s.speech
}

func (s *Segmenter) reset() {
	s.buf.Reset()
	s.speech = false
	s.silenceSince = time.Time{}
}

// meanAbsAmplitude computes the mean absolute sample value of little-endian
// 16-bit PCM. A malformed chunk with an odd byte count scores zero rather
// than corrupting detection state.
func meanAbsAmplitude(chunk []byte) float64 {
	if len(chunk) < bytesPerSample || len(chunk)%bytesPerSample != 0 {
		return 0
	}
	var sum int64
	for i := 0; i+1 < len(chunk); i += bytesPerSample {
		sample := int64(int16(chunk[i]) | int16(chunk[i+1])<<8)
		if sample < 0 {
			sample = -sample
		}
		sum += sample
	}
	return float64(sum) / float64(len(chunk)/bytesPerSample)
}
