package store

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/vidya/pkg/errorsx"
)

func TestMemoryStoreBorrowerRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	b := Borrower{ID: "b1", Name: "Asha", Phone: "+919800000011", Category: "Overdue"}
	if err := s.UpdateBorrower(ctx, "owner-1", b); err != nil {
		t.Fatalf("UpdateBorrower: %v", err)
	}

	got, err := s.GetBorrower(ctx, "owner-1", "b1")
	if err != nil {
		t.Fatalf("GetBorrower: %v", err)
	}
	if got.Name != "Asha" || got.Category != "Overdue" {
		t.Errorf("borrower = %+v", got)
	}
}

func TestMemoryStoreMissingBorrower(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetBorrower(context.Background(), "owner-1", "nope")
	if err == nil {
		t.Fatal("expected an error for a missing borrower")
	}
	if !errorsx.HasReason(err, errorsx.ReasonStoreNotFound) {
		t.Errorf("reason = %v", errorsx.Reason(err))
	}
}

func TestMemoryStoreOwnersAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.UpdateBorrower(ctx, "owner-1", Borrower{ID: "b1", Name: "Asha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetBorrower(ctx, "owner-2", "b1"); err == nil {
		t.Fatal("owner-2 must not see owner-1's borrowers")
	}
}

func TestMemoryStoreSaveCallRecordOverwritesByCallID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := CallRecord{CallID: "c1", OwnerID: "owner-1", BorrowerID: "b1", StartedAt: time.Now()}
	if err := s.SaveCallRecord(ctx, "owner-1", rec); err != nil {
		t.Fatal(err)
	}
	rec.BorrowerID = "b2"
	if err := s.SaveCallRecord(ctx, "owner-1", rec); err != nil {
		t.Fatal(err)
	}

	got, ok := s.GetCallRecord("owner-1", "c1")
	if !ok {
		t.Fatal("record missing")
	}
	if got.BorrowerID != "b2" {
		t.Errorf("BorrowerID = %q, want the rewritten record", got.BorrowerID)
	}
}

func TestMemoryStoreListBorrowersSorted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"b3", "b1", "b2"} {
		if err := s.UpdateBorrower(ctx, "owner-1", Borrower{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListBorrowers(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "b1" || list[2].ID != "b3" {
		t.Errorf("list = %+v", list)
	}
}
