package metrics

// Event names emitted across the call pipeline. Tags always carry
// "call_id" when the event belongs to one call.
const (
	EventUtteranceDroppedShort = "utterance_dropped_short"
	EventTranscribeFailed      = "transcribe_failed"
	EventLanguageSwitched      = "language_switched"
	EventTurnCompleted         = "turn_completed"
	EventReplyFallbackUsed     = "reply_fallback_used"
	EventSynthesizeFailed      = "synthesize_failed"

	EventCallAnswered  = "call_answered"
	EventCallCompleted = "call_completed"

	EventDispatchCallPlaced       = "dispatch_call_placed"
	EventDispatchCallCompleted    = "dispatch_call_completed"
	EventDispatchAttemptFailed    = "dispatch_attempt_failed"
	EventDispatchForcedEscalation = "dispatch_forced_escalation"
)
