package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/posko-sync/internal/model"
)

func strPtr(s string) *string { return &s }

func TestReconcileLinksByName(t *testing.T) {
	recID := uuid.New()
	locations := []model.LocationRecord{
		{ID: recID, Nama: "Posko Blang"},
	}
	entities := []model.ExternalEntity{
		{ID: "A1", Label: "Posko Blang", Version: 3},
	}

	result := Reconcile(locations, entities)

	if len(result.Unmatched) != 0 {
		t.Errorf("unexpected unmatched: %v", result.Unmatched)
	}
	if len(result.Updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(result.Updates))
	}
	if result.Updates[0] != (Update{RecordID: recID, EntityID: "A1"}) {
		t.Errorf("unexpected update: %+v", result.Updates[0])
	}
}

func TestReconcileCorrectsDivergedIdentifier(t *testing.T) {
	recID := uuid.New()
	locations := []model.LocationRecord{
		{ID: recID, Nama: "Posko Blang", EntityID: strPtr("stale-id")},
	}
	entities := []model.ExternalEntity{
		{ID: "A1", Label: "Posko Blang"},
	}

	result := Reconcile(locations, entities)
	if len(result.Updates) != 1 || result.Updates[0].EntityID != "A1" {
		t.Fatalf("expected correction to A1, got %+v", result.Updates)
	}
}

func TestReconcileNoOpWhenAlreadyLinked(t *testing.T) {
	locations := []model.LocationRecord{
		{ID: uuid.New(), Nama: "Posko Blang", EntityID: strPtr("A1")},
	}
	entities := []model.ExternalEntity{
		{ID: "A1", Label: "Posko Blang"},
	}

	result := Reconcile(locations, entities)
	if len(result.Updates) != 0 || len(result.Unmatched) != 0 {
		t.Errorf("expected no-op, got %+v", result)
	}
}

func TestReconcileReportsUnmatched(t *testing.T) {
	recID := uuid.New()
	locations := []model.LocationRecord{
		{ID: recID, Nama: "Posko Hilang"},
	}

	result := Reconcile(locations, []model.ExternalEntity{
		{ID: "A1", Label: "Posko Lain"},
	})

	if len(result.Updates) != 0 {
		t.Errorf("unexpected updates: %+v", result.Updates)
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0] != recID {
		t.Errorf("unmatched = %v, want [%s]", result.Unmatched, recID)
	}
}

func TestReconcileSkipsSoftDeleted(t *testing.T) {
	now := time.Now()
	locations := []model.LocationRecord{
		{ID: uuid.New(), Nama: "Posko Tutup", DeletedAt: &now},
	}

	result := Reconcile(locations, []model.ExternalEntity{
		{ID: "A1", Label: "Posko Tutup"},
	})

	if len(result.Updates) != 0 || len(result.Unmatched) != 0 {
		t.Errorf("soft-deleted record should be ignored, got %+v", result)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	recID := uuid.New()
	locations := []model.LocationRecord{
		{ID: recID, Nama: "Posko Blang"},
	}
	entities := []model.ExternalEntity{
		{ID: "A1", Label: "Posko Blang"},
	}

	first := Reconcile(locations, entities)
	if len(first.Updates) != 1 {
		t.Fatalf("first pass: got %d updates, want 1", len(first.Updates))
	}

	// Apply the update the way the runner would, then run again.
	id := first.Updates[0].EntityID
	locations[0].EntityID = &id

	second := Reconcile(locations, entities)
	if len(second.Updates) != 0 {
		t.Errorf("second pass should be empty, got %+v", second.Updates)
	}
}

func TestReconcileDuplicateNamesShareEntity(t *testing.T) {
	// Data-entry duplicate: two records with the same display name both
	// map to the same entity rather than failing.
	a, b := uuid.New(), uuid.New()
	locations := []model.LocationRecord{
		{ID: a, Nama: "Posko Utama"},
		{ID: b, Nama: "Posko Utama"},
	}
	entities := []model.ExternalEntity{
		{ID: "E9", Label: "Posko Utama"},
	}

	result := Reconcile(locations, entities)
	if len(result.Updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(result.Updates))
	}
	for _, u := range result.Updates {
		if u.EntityID != "E9" {
			t.Errorf("update %+v should target E9", u)
		}
	}
}

func TestReconcileDuplicateLabelsLastWins(t *testing.T) {
	recID := uuid.New()
	locations := []model.LocationRecord{
		{ID: recID, Nama: "Posko Utama"},
	}
	entities := []model.ExternalEntity{
		{ID: "E1", Label: "Posko Utama"},
		{ID: "E2", Label: "Posko Utama"},
	}

	result := Reconcile(locations, entities)
	if len(result.Updates) != 1 || result.Updates[0].EntityID != "E2" {
		t.Errorf("expected last entity to win, got %+v", result.Updates)
	}
}
