// Package store persists borrowers and completed call records. Each agency
// owner gets its own namespace so tenants never see each other's data.
package store

import (
	"context"
	"time"

	"github.com/harunnryd/vidya/pkg/analysis"
	"github.com/harunnryd/vidya/pkg/call"
	"github.com/harunnryd/vidya/pkg/outcome"
)

// Borrower is one account to collect on.
type Borrower struct {
	ID                string      `json:"id" bson:"_id"`
	Name              string      `json:"name" bson:"name"`
	Phone             string      `json:"phone" bson:"phone"`
	PreferredLanguage string      `json:"preferred_language" bson:"preferred_language"`
	Category          string      `json:"category" bson:"category"`
	AmountDue         float64     `json:"amount_due" bson:"amount_due"`
	FollowUpDates     []time.Time `json:"follow_up_dates,omitempty" bson:"follow_up_dates,omitempty"`
	CallFrequency     string      `json:"call_frequency,omitempty" bson:"call_frequency,omitempty"`
	PaymentConfirmed  bool        `json:"payment_confirmed" bson:"payment_confirmed"`
	LastCalledAt      time.Time   `json:"last_called_at,omitempty" bson:"last_called_at,omitempty"`

	// Escalation state written after each call so the account list shows
	// which borrowers a human has to pick up.
	RequiresManualProcess bool                  `json:"requires_manual_process" bson:"require_manual_process"`
	ManagerNotification   *outcome.Notification `json:"manager_notification,omitempty" bson:"email_to_manager_preview,omitempty"`
	AISummary             string                `json:"ai_summary,omitempty" bson:"ai_summary,omitempty"`
}

// CallRecord is the durable result of one completed call.
type CallRecord struct {
	CallID           string                `json:"call_id" bson:"call_id"`
	OwnerID          string                `json:"owner_id" bson:"owner_id"`
	BorrowerID       string                `json:"borrower_id" bson:"borrower_id"`
	StartedAt        time.Time             `json:"started_at" bson:"started_at"`
	EndedAt          time.Time             `json:"ended_at" bson:"ended_at"`
	Transcript       []call.Turn           `json:"transcript" bson:"transcript"`
	LanguageSwitches []call.LanguageSwitch `json:"language_switches,omitempty" bson:"language_switches,omitempty"`
	Analysis         analysis.Result       `json:"analysis" bson:"analysis"`
	Outcome          outcome.Outcome       `json:"outcome" bson:"outcome"`
}

// Store is the persistence surface the engine talks to.
type Store interface {
	SaveCallRecord(ctx context.Context, ownerID string, rec CallRecord) error
	GetBorrower(ctx context.Context, ownerID, borrowerID string) (Borrower, error)
	UpdateBorrower(ctx context.Context, ownerID string, b Borrower) error
	ListBorrowers(ctx context.Context, ownerID string) ([]Borrower, error)
}
