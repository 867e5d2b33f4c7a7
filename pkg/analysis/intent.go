package analysis

import "strings"

// Intent classifies what the borrower committed to (or refused) on the call.
type Intent string

const (
	IntentPaid           Intent = "Paid"
	IntentWillPay        Intent = "Will Pay"
	IntentNeedsExtension Intent = "Needs Extension"
	IntentDispute        Intent = "Dispute"
	IntentNoResponse     Intent = "No Response"
	IntentAbusive        Intent = "Abusive Language"
	IntentThreatening    Intent = "Threatening Language"
	IntentStopCalling    Intent = "Stop Calling"
)

var knownIntents = map[string]Intent{
	"paid":                 IntentPaid,
	"will pay":             IntentWillPay,
	"willpay":              IntentWillPay,
	"needs extension":      IntentNeedsExtension,
	"extension":            IntentNeedsExtension,
	"dispute":              IntentDispute,
	"no response":          IntentNoResponse,
	"abusive language":     IntentAbusive,
	"abusive":              IntentAbusive,
	"threatening language": IntentThreatening,
	"threatening":          IntentThreatening,
	"stop calling":         IntentStopCalling,
}

// NormalizeIntent maps a free-form model label onto a known intent,
// defaulting to No Response.
func NormalizeIntent(raw string) Intent {
	if intent, ok := knownIntents[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return intent
	}
	return IntentNoResponse
}
