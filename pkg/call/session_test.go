package call

import (
	"errors"
	"testing"
	"time"
)

func TestLifecycleTransitions(t *testing.T) {
	sess := NewSession("uuid-1", "owner-1", "", "en-IN", time.Now())
	if sess.State() != StateAnswering {
		t.Fatalf("initial state = %s", sess.State())
	}
	if err := sess.Transition(StateStreaming); err != nil {
		t.Fatalf("answering -> streaming: %v", err)
	}
	if err := sess.Transition(StateCompleted); err != nil {
		t.Fatalf("streaming -> completed: %v", err)
	}
	if err := sess.Transition(StateStreaming); err == nil {
		t.Fatalf("expected invalid transition out of completed")
	} else {
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Fatalf("expected InvalidTransitionError, got %T", err)
		}
	}
}

func TestCompletedStraightFromAnswering(t *testing.T) {
	sess := NewSession("uuid-2", "owner-1", "", "en-IN", time.Now())
	if err := sess.Transition(StateCompleted); err != nil {
		t.Fatalf("answering -> completed: %v", err)
	}
}

func TestTranscriptAppendOnly(t *testing.T) {
	sess := NewSession("uuid-3", "owner-1", "", "en-IN", time.Now())
	now := time.Now()
	sess.AppendTurn(SpeakerAI, "hello", "en-IN", now)
	sess.AppendTurn(SpeakerUser, "hi", "en-IN", now.Add(time.Second))

	got := sess.Transcript()
	if len(got) != 2 {
		t.Fatalf("transcript len = %d", len(got))
	}
	if got[0].Speaker != SpeakerAI || got[1].Speaker != SpeakerUser {
		t.Fatalf("transcript order broken: %+v", got)
	}

	// Mutating the copy must not affect session state.
	got[0].Text = "tampered"
	if sess.Transcript()[0].Text != "hello" {
		t.Fatalf("transcript copy leaked internal state")
	}
}

func TestRecentTurnsWindow(t *testing.T) {
	sess := NewSession("uuid-4", "owner-1", "", "en-IN", time.Now())
	for i := 0; i < 8; i++ {
		sess.AppendTurn(SpeakerUser, "turn", "en-IN", time.Now())
	}
	recent := sess.RecentTurns(5)
	if len(recent) != 5 {
		t.Fatalf("recent len = %d", len(recent))
	}
	if len(sess.RecentTurns(0)) != 8 {
		t.Fatalf("n<=0 should return the full transcript")
	}
}

func TestSwitchLanguageAppendsRecord(t *testing.T) {
	sess := NewSession("uuid-5", "owner-1", "", "en-IN", time.Now())
	at := time.Now()
	if !sess.SwitchLanguage("hi-IN", at) {
		t.Fatalf("expected switch")
	}
	if sess.CurrentLanguage() != "hi-IN" {
		t.Fatalf("current language = %s", sess.CurrentLanguage())
	}
	if sess.SwitchLanguage("hi-IN", at) {
		t.Fatalf("same language must not record a switch")
	}
	switches := sess.Switches()
	if len(switches) != 1 {
		t.Fatalf("switch log len = %d", len(switches))
	}
	if switches[0].From != "en-IN" || switches[0].To != "hi-IN" {
		t.Fatalf("switch record = %+v", switches[0])
	}
}
