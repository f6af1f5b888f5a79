package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/posko-sync/internal/audit"
	"github.com/posko-sync/internal/model"
	"github.com/posko-sync/internal/wilayah"
)

// RunHistory lists persisted batch runs. *audit.Tracker satisfies it.
type RunHistory interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Run, error)
}

// Locations is the read side of the relational store the handlers need.
type Locations interface {
	ListActive(ctx context.Context) ([]model.LocationRecord, error)
	CountUnresolved(ctx context.Context) (int, error)
	CountUnmatched(ctx context.Context) (int, error)
}

// Pipeline is the batch runner surface exposed over HTTP.
type Pipeline interface {
	Run(ctx context.Context) (*audit.RunResult, error)
	ResolveAll(ctx context.Context, backbone *wilayah.Backbone) (*audit.RunResult, error)
}

// BackboneLoader fetches the region backbone for resolve runs.
type BackboneLoader interface {
	Load(ctx context.Context) ([]wilayah.Unit, error)
}

// APIHandler serves the operational endpoints.
type APIHandler struct {
	History   RunHistory
	Locations Locations
	Pipeline  Pipeline
	Backbone  BackboneLoader
}

// StatusResponse summarizes backlog counts and recent runs.
type StatusResponse struct {
	Unresolved int         `json:"unresolved"`
	Unmatched  int         `json:"unmatched"`
	RecentRuns []audit.Run `json:"recent_runs"`
}

// GetStatus returns backlog counts and the most recent runs.
func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unresolved, err := h.Locations.CountUnresolved(ctx)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	unmatched, err := h.Locations.CountUnmatched(ctx)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := h.History.ListRecent(ctx, limit)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, StatusResponse{
		Unresolved: unresolved,
		Unmatched:  unmatched,
		RecentRuns: runs,
	})
}

// UnmatchedRecord is one record with no external entity link.
type UnmatchedRecord struct {
	ID     string `json:"id"`
	Nama   string `json:"nama"`
	Status string `json:"status"`
}

// ListUnmatched returns active records that are not linked to an entity.
func (h *APIHandler) ListUnmatched(w http.ResponseWriter, r *http.Request) {
	records, err := h.Locations.ListActive(r.Context())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	unmatched := []UnmatchedRecord{}
	for _, rec := range records {
		if rec.EntityID != nil && *rec.EntityID != "" {
			continue
		}
		unmatched = append(unmatched, UnmatchedRecord{
			ID:     rec.ID.String(),
			Nama:   rec.Nama,
			Status: rec.Status,
		})
	}
	writeJSON(w, unmatched)
}

// TriggerSync runs the reconcile+sync pipeline and returns its counters.
// The run executes synchronously under the request context; operators call
// this from cron or by hand, not from a UI.
func (h *APIHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Pipeline.Run(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, result)
}

// TriggerResolve reloads the region backbone and runs the resolution
// repair pass.
func (h *APIHandler) TriggerResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	units, err := h.Backbone.Load(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := h.Pipeline.ResolveAll(ctx, wilayah.NewBackbone(units))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}
