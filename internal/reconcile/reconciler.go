package reconcile

import (
	"github.com/google/uuid"

	"github.com/posko-sync/internal/model"
)

// Update pairs a relational record with the external identifier it should
// carry. Applied to the relational store only; the platform's identifiers
// are immutable.
type Update struct {
	RecordID uuid.UUID
	EntityID string
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Updates   []Update
	Unmatched []uuid.UUID
}

// Reconcile aligns relational records with external entities by display
// name, the only key both systems share once identifiers have diverged.
// Duplicate labels keep the last entity seen, and duplicate record names
// all map to the same entity; neither case is an error here, both are
// surfaced by counts elsewhere.
//
// The pass is idempotent: records already carrying the right identifier
// produce no update.
func Reconcile(locations []model.LocationRecord, entities []model.ExternalEntity) Result {
	byLabel := make(map[string]string, len(entities))
	for _, e := range entities {
		if e.Label == "" {
			continue
		}
		byLabel[e.Label] = e.ID
	}

	var result Result
	for _, loc := range locations {
		if loc.Deleted() {
			continue
		}

		entityID, ok := byLabel[loc.Nama]
		if !ok {
			result.Unmatched = append(result.Unmatched, loc.ID)
			continue
		}

		if loc.EntityID != nil && *loc.EntityID == entityID {
			continue
		}

		result.Updates = append(result.Updates, Update{RecordID: loc.ID, EntityID: entityID})
	}

	return result
}
