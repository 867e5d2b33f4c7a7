package mock

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/harunnryd/vidya/pkg/adapters/stt"
	"github.com/harunnryd/vidya/pkg/adapters/tts"
	"github.com/harunnryd/vidya/pkg/llm"
)

// Transcriber returns scripted transcripts in order, then the last one.
type Transcriber struct {
	mu      sync.Mutex
	Script  []string
	Err     error
	calls   int
	MinSize int
}

func NewTranscriber(script ...string) *Transcriber {
	return &Transcriber{Script: script}
}

func (t *Transcriber) Name() string { return "mock_stt" }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	if t.MinSize > 0 && len(audio) < t.MinSize {
		return "", nil
	}
	if len(t.Script) == 0 {
		return "mock transcript", nil
	}
	idx := t.calls
	if idx >= len(t.Script) {
		idx = len(t.Script) - 1
	}
	t.calls++
	return t.Script[idx], nil
}

func (t *Transcriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Synthesizer emits a deterministic tone whose length tracks the text.
type Synthesizer struct {
	Err error
}

func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if text == "" {
		return nil, nil
	}
	samples := 160 * (len(text)%16 + 1)
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(400))
	}
	return out, nil
}

// Responder returns a fixed reply, or delegates to Fn when set.
type Responder struct {
	ReplyText string
	Err       error
	Fn        func(req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

func NewResponder(reply string) *Responder {
	if reply == "" {
		reply = "mock reply"
	}
	return &Responder{ReplyText: reply}
}

func (r *Responder) Name() string { return "mock_llm" }

func (r *Responder) Generate(ctx context.Context, req llm.Request) (string, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.Fn != nil {
		return r.Fn(req)
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.ReplyText, nil
}

func (r *Responder) Requests() []llm.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]llm.Request, len(r.requests))
	copy(out, r.requests)
	return out
}

var (
	_ stt.Transcriber = (*Transcriber)(nil)
	_ tts.Synthesizer = (*Synthesizer)(nil)
	_ llm.Adapter     = (*Responder)(nil)
)
