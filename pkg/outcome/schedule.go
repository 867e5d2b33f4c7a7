// Package outcome turns an analyzed transcript into a follow-up schedule,
// an escalation decision and, when needed, a manager notification draft.
// Everything here is a pure function of its inputs; "now" is always an
// explicit parameter so date math stays deterministic.
package outcome

import "time"

// Category is a borrower's payment-behavior bucket.
type Category string

const (
	CategoryConsistent   Category = "Consistent"
	CategoryInconsistent Category = "Inconsistent"
	CategoryOverdue      Category = "Overdue"
)

// NormalizeCategory maps free-form store values onto known buckets,
// defaulting to Consistent.
func NormalizeCategory(raw string) Category {
	switch Category(raw) {
	case CategoryInconsistent:
		return CategoryInconsistent
	case CategoryOverdue:
		return CategoryOverdue
	}
	return CategoryConsistent
}

// FollowUpSchedule computes the category-driven follow-up dates:
// Inconsistent gets the next 3 business days, Overdue the next 7, and
// Consistent a single business day at least 6 calendar days out.
// Saturdays and Sundays are always skipped.
func FollowUpSchedule(category Category, now time.Time) []time.Time {
	switch category {
	case CategoryInconsistent:
		return businessDays(now, 3)
	case CategoryOverdue:
		return businessDays(now, 7)
	}
	d := toBusinessDay(now.AddDate(0, 0, 6))
	return []time.Time{d}
}

// NextBusinessDay returns the first weekday strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	return toBusinessDay(t.AddDate(0, 0, 1))
}

func businessDays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := from
	for len(out) < n {
		d = NextBusinessDay(d)
		out = append(out, d)
	}
	return out
}

func toBusinessDay(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
