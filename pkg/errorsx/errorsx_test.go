package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonReply)
	if Reason(err) != ReasonReply {
		t.Fatalf("expected reason %s, got %s", ReasonReply, Reason(err))
	}
	if !HasReason(err, ReasonReply) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTranscribe)
	second := Wrap(first, ReasonReply)
	if Reason(second) != ReasonTranscribe {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonAnalysis) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
