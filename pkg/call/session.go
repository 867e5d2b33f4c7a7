// Package call holds per-call session state and the process-wide registry
// keyed by provider call identifier.
package call

import (
	"sync"
	"time"
)

// State is a call lifecycle state.
type State int

const (
	StateAnswering State = iota
	StateStreaming
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateAnswering:
		return "ANSWERING"
	case StateStreaming:
		return "STREAMING"
	case StateCompleted:
		return "COMPLETED"
	}
	return "UNKNOWN"
}

// validTransitions encodes the lifecycle: a session answers, streams audio,
// and completes. Completion straight from answering covers calls where the
// provider reports the hangup before the audio stream ever opens.
var validTransitions = map[State][]State{
	StateAnswering: {StateStreaming, StateCompleted},
	StateStreaming: {StateCompleted},
}

// InvalidTransitionError represents an invalid lifecycle transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

// Speaker attributes a transcript turn.
type Speaker string

const (
	SpeakerAI   Speaker = "AI"
	SpeakerUser Speaker = "User"
)

// Turn is one transcript entry in conversation order.
type Turn struct {
	Speaker  Speaker   `json:"speaker" bson:"speaker"`
	Text     string    `json:"text" bson:"text"`
	Language string    `json:"language" bson:"language"`
	At       time.Time `json:"at" bson:"at"`
}

// LanguageSwitch records one mid-call language change.
type LanguageSwitch struct {
	From string    `json:"from" bson:"from"`
	To   string    `json:"to" bson:"to"`
	At   time.Time `json:"at" bson:"at"`
}

// Session is the live state for one in-progress call. All mutation is
// serialized by an internal mutex; distinct calls share nothing.
type Session struct {
	CallID            string
	OwnerID           string
	BorrowerRef       string
	PreferredLanguage string
	StartedAt         time.Time

	mu         sync.Mutex
	state      State
	active     bool
	language   string
	switches   []LanguageSwitch
	transcript []Turn
}

func NewSession(callID, ownerID, borrowerRef, preferredLanguage string, now time.Time) *Session {
	return &Session{
		CallID:            callID,
		OwnerID:           ownerID,
		BorrowerRef:       borrowerRef,
		PreferredLanguage: preferredLanguage,
		StartedAt:         now,
		state:             StateAnswering,
		active:            true,
		language:          preferredLanguage,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to a new lifecycle state with validation.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return &InvalidTransitionError{From: s.state, To: to}
}

// Active reports whether the session has not yet been finalized.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// MarkInactive flags the session as finalized. Idempotent.
func (s *Session) MarkInactive() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// CurrentLanguage returns the session's active reply language.
func (s *Session) CurrentLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SwitchLanguage updates the active language and appends a switch record.
// Returns false when the language is unchanged.
func (s *Session) SwitchLanguage(to string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to == "" || to == s.language {
		return false
	}
	s.switches = append(s.switches, LanguageSwitch{From: s.language, To: to, At: at})
	s.language = to
	return true
}

// Switches returns a copy of the language switch log.
func (s *Session) Switches() []LanguageSwitch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LanguageSwitch, len(s.switches))
	copy(out, s.switches)
	return out
}

// AppendTurn records one transcript entry. Entries are never reordered
// or removed.
func (s *Session) AppendTurn(speaker Speaker, text, language string, at time.Time) {
	s.mu.Lock()
	s.transcript = append(s.transcript, Turn{Speaker: speaker, Text: text, Language: language, At: at})
	s.mu.Unlock()
}

// Transcript returns a copy of the full conversation so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// RecentTurns returns up to n of the latest transcript entries in order.
func (s *Session) RecentTurns(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n >= len(s.transcript) {
		n = len(s.transcript)
	}
	out := make([]Turn, n)
	copy(out, s.transcript[len(s.transcript)-n:])
	return out
}

// TurnCount reports how many transcript entries exist.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript)
}
