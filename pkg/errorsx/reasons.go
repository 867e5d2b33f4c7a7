package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfigInvalid ReasonCode = "config_invalid"

	ReasonTranscribe          ReasonCode = "transcription_failed"
	ReasonTranscribeShort     ReasonCode = "transcription_audio_short"
	ReasonTranscribeRateLimit ReasonCode = "transcription_rate_limit"

	ReasonSynthesize          ReasonCode = "synthesis_failed"
	ReasonSynthesizeRateLimit ReasonCode = "synthesis_rate_limit"

	ReasonReply          ReasonCode = "reply_failed"
	ReasonReplyRateLimit ReasonCode = "reply_rate_limit"
	ReasonAnalysis       ReasonCode = "analysis_failed"

	ReasonCallPlacement   ReasonCode = "call_placement_failed"
	ReasonSessionNotFound ReasonCode = "session_not_found"
	ReasonSessionState    ReasonCode = "session_invalid_state"

	ReasonStoreUnavailable ReasonCode = "store_unavailable"
	ReasonStoreWrite       ReasonCode = "store_write_failed"
	ReasonStoreNotFound    ReasonCode = "store_not_found"

	ReasonTransportAuth   ReasonCode = "transport_auth_failed"
	ReasonTransportSend   ReasonCode = "transport_send"
	ReasonTransportClosed ReasonCode = "transport_closed"
)
