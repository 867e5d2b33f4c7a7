package tts

import "context"

// Synthesizer defines the contract for any batch TTS vendor implementation.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Synthesize renders text as 16 kHz mono 16-bit PCM in the given language.
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Config contains vendor-agnostic TTS configuration.
type Config struct {
	SampleRate int
	Speaker    string
}
