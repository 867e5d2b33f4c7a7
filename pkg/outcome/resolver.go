package outcome

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/vidya/pkg/analysis"
)

const (
	escalationRecipient = "Area Manager"

	freqRetry  = "1 call (Retry)"
	freqVerify = "1 call (Verify)"
	freqSingle = "1 call"
	freqThree  = "3 calls"
	freqSeven  = "7 calls"
)

// Input is everything the resolver is allowed to look at. It carries no
// clock and no session handle on purpose.
type Input struct {
	Intent        analysis.Intent
	CommittedDate string // YYYY-MM-DD, empty when the borrower gave none
	Category      Category
	MidCallHangup bool
	BorrowerName  string
	Summary       string
}

// Notification is a manager alert drafted by the resolver. Delivery is
// someone else's job.
type Notification struct {
	To      string `json:"to" bson:"to"`
	Subject string `json:"subject" bson:"subject"`
	Body    string `json:"body" bson:"body"`
}

// Outcome is the resolved disposition of a completed call.
type Outcome struct {
	PaymentConfirmed         bool          `json:"payment_confirmed" bson:"payment_confirmed"`
	FollowUpDates            []time.Time   `json:"follow_up_dates" bson:"follow_up_dates"`
	CallFrequency            string        `json:"call_frequency" bson:"call_frequency"`
	RequiresManualEscalation bool          `json:"requires_manual_escalation" bson:"requires_manual_escalation"`
	Notification             *Notification `json:"notification,omitempty" bson:"notification,omitempty"`
	Summary                  string        `json:"summary" bson:"summary"`
}

// escalationIntents never get an automated follow-up loop; a human takes
// over. WillPay and NeedsExtension are deliberately absent.
var escalationIntents = map[analysis.Intent]bool{
	analysis.IntentPaid:        true,
	analysis.IntentDispute:     true,
	analysis.IntentNoResponse:  true,
	analysis.IntentAbusive:     true,
	analysis.IntentThreatening: true,
	analysis.IntentStopCalling: true,
}

// Resolve maps an analyzed call onto its follow-up plan. The schedule is
// computed first and survives every intent branch: a mid-call hangup wins
// the dates, a committed payment date beats the category schedule, and an
// escalated call still carries its follow-up plan for the record.
func Resolve(in Input, now time.Time) Outcome {
	out := Outcome{Summary: in.Summary}
	nextStep := ""

	if in.MidCallHangup {
		out.FollowUpDates = []time.Time{NextBusinessDay(now)}
		out.CallFrequency = freqRetry
		nextStep = "The borrower hung up mid-sentence. A retry is scheduled for the next business day."
	} else if d, ok := parseCommittedDate(in.CommittedDate); ok {
		out.FollowUpDates = []time.Time{d}
		out.CallFrequency = freqVerify
	} else {
		out.FollowUpDates = FollowUpSchedule(in.Category, now)
		switch in.Category {
		case CategoryInconsistent:
			out.CallFrequency = freqThree
		case CategoryOverdue:
			out.CallFrequency = freqSeven
		default:
			out.CallFrequency = freqSingle
		}
	}

	out.PaymentConfirmed = in.Intent == analysis.IntentPaid

	switch {
	case escalationIntents[in.Intent]:
		out.RequiresManualEscalation = true
		out.Notification = escalationNotice(in)
		nextStep = escalationSummary(in.Intent, in.BorrowerName)
	case in.Intent == analysis.IntentWillPay || in.Intent == analysis.IntentNeedsExtension:
		if d := strings.TrimSpace(in.CommittedDate); d != "" {
			nextStep = fmt.Sprintf("Borrower committed to pay or extend until %s.", d)
		} else {
			nextStep = fmt.Sprintf("Borrower committed to %s. Follow-up scheduled.", in.Intent)
		}
	}

	if nextStep != "" {
		out.Summary = nextStep
	}
	return out
}

func escalationSummary(intent analysis.Intent, borrowerName string) string {
	switch intent {
	case analysis.IntentPaid:
		return fmt.Sprintf("Borrower %s claims payment was made. Verification required.", borrowerName)
	case analysis.IntentDispute:
		return "Borrower is disputing the loan. Escalated for manual investigation."
	case analysis.IntentNoResponse:
		return "No clear response from the borrower. Escalated for manual follow-up."
	case analysis.IntentAbusive:
		return "Borrower used abusive language. Escalated for manual handling."
	case analysis.IntentThreatening:
		return "Borrower used threatening language. Escalated for manual handling."
	case analysis.IntentStopCalling:
		return "Borrower requested no further calls. Escalated for manual handling."
	}
	return "Call escalated for manual handling."
}

// ForcedEscalation is the disposition for a borrower who could not be
// reached after every placement attempt failed. It bypasses Resolve.
func ForcedEscalation(borrowerName string, attempts int) Outcome {
	body := fmt.Sprintf(
		"All %d call attempts to %s failed to connect. Manual follow-up is required.",
		attempts, borrowerName,
	)
	return Outcome{
		RequiresManualEscalation: true,
		Notification: &Notification{
			To:      escalationRecipient,
			Subject: "Action Required: Multiple Call Failures",
			Body:    body,
		},
		Summary: "Borrower unreachable after repeated call attempts.",
	}
}

func escalationNotice(in Input) *Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Call with %s requires manual attention.\n", in.BorrowerName)
	fmt.Fprintf(&b, "Reason: %s\n", in.Intent)
	if in.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", in.Summary)
	}
	return &Notification{
		To:      escalationRecipient,
		Subject: fmt.Sprintf("Escalation: %s (%s)", in.BorrowerName, in.Intent),
		Body:    b.String(),
	}
}

func parseCommittedDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
