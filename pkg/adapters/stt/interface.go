package stt

import "context"

// Transcriber defines the contract for any batch STT vendor implementation.
// One utterance in, one transcript out; a language hint steers decoding.
type Transcriber interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Transcribe converts one utterance of 16 kHz mono PCM to text.
	Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error)
}

// Config contains vendor-agnostic STT configuration.
type Config struct {
	SampleRate    int
	MinAudioBytes int
}
