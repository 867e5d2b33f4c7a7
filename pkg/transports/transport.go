// Package transports defines the vendor-agnostic boundary between telephony
// providers and the call engine. A transport owns its network lifecycle and
// translates provider webhooks and media sockets into CallHandler calls.
package transports

import "context"

// Transport is a telephony provider integration.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// AnswerRequest is what the provider tells us when an outbound call is
// picked up and its media stream is about to open.
type AnswerRequest struct {
	CallID            string
	OwnerID           string
	BorrowerID        string
	BorrowerName      string
	PreferredLanguage string
	From              string
	To                string
}

// StreamSession is one live audio stream as seen by the transport. PushAudio
// receives raw PCM chunks off the socket; Close signals the socket is gone,
// which never finalizes the call by itself.
type StreamSession interface {
	PushAudio(chunk []byte)
	Close()
}

// CallHandler is implemented by the engine. The transport feeds it the call
// lifecycle: answer, media stream, provider status events.
type CallHandler interface {
	// HandleAnswer registers the call and prepares its greeting.
	HandleAnswer(ctx context.Context, req AnswerRequest) error

	// TakeGreeting returns the pre-synthesized greeting audio for the call,
	// at most once.
	TakeGreeting(callID string) ([]byte, bool)

	// OpenStream attaches a media stream to a registered call. send delivers
	// PCM audio back to the caller. Returns false for unknown calls.
	OpenStream(callID string, send func([]byte) error) (StreamSession, bool)

	// HandleEvent processes a provider status callback for the call.
	HandleEvent(ctx context.Context, callID, status string) error
}

// DialRequest describes one outbound call placement.
type DialRequest struct {
	To                string
	From              string
	CallID            string
	OwnerID           string
	BorrowerID        string
	BorrowerName      string
	PreferredLanguage string
}

// OutboundDialer places outbound calls and returns the provider call UUID.
type OutboundDialer interface {
	Dial(ctx context.Context, req DialRequest) (providerCallID string, err error)
}

// ReadyReporter optionally exposes readiness metadata such as webhook URLs.
// Used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
