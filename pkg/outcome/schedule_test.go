package outcome

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFollowUpScheduleOverdueSkipsWeekends(t *testing.T) {
	// Monday.
	now := date(2024, time.January, 1)
	got := FollowUpSchedule(CategoryOverdue, now)
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	want := []time.Time{
		date(2024, time.January, 2),
		date(2024, time.January, 3),
		date(2024, time.January, 4),
		date(2024, time.January, 5),
		date(2024, time.January, 8),
		date(2024, time.January, 9),
		date(2024, time.January, 10),
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date[%d] = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
		if wd := got[i].Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("date[%d] falls on %s", i, wd)
		}
	}
}

func TestFollowUpScheduleInconsistentThreeDays(t *testing.T) {
	// Friday; the next three business days straddle a weekend.
	now := date(2024, time.January, 5)
	got := FollowUpSchedule(CategoryInconsistent, now)
	want := []time.Time{
		date(2024, time.January, 8),
		date(2024, time.January, 9),
		date(2024, time.January, 10),
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date[%d] = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
	}
}

func TestFollowUpScheduleConsistentSingleDistantDate(t *testing.T) {
	now := date(2024, time.January, 1)
	got := FollowUpSchedule(CategoryConsistent, now)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	min := date(2024, time.January, 7)
	if got[0].Before(min) {
		t.Errorf("date = %s, want on or after %s", got[0].Format("2006-01-02"), min.Format("2006-01-02"))
	}
	if wd := got[0].Weekday(); wd == time.Saturday || wd == time.Sunday {
		t.Errorf("date falls on %s", wd)
	}
}

func TestNextBusinessDayFromFriday(t *testing.T) {
	// Friday 2024-01-05 -> Monday 2024-01-08.
	got := NextBusinessDay(date(2024, time.January, 5))
	if want := date(2024, time.January, 8); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNormalizeCategory(t *testing.T) {
	if NormalizeCategory("Overdue") != CategoryOverdue {
		t.Error("Overdue not recognized")
	}
	if NormalizeCategory("eccentric") != CategoryConsistent {
		t.Error("unknown category should default to Consistent")
	}
}
