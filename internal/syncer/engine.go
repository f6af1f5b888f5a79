package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/posko-sync/internal/model"
	"github.com/posko-sync/internal/odk"
)

// Outcome classifies one record/entity sync attempt.
type Outcome int

const (
	NoChangeNeeded Outcome = iota
	Updated
	VersionConflict
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoChangeNeeded:
		return "no_change"
	case Updated:
		return "updated"
	case VersionConflict:
		return "version_conflict"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of one sync attempt with the failure reason when
// applicable.
type Result struct {
	Outcome Outcome
	Reason  string
}

// Platform is the external entity collection as the engine needs it.
// *odk.Dataset satisfies it.
type Platform interface {
	ListEntities(ctx context.Context) ([]model.ExternalEntity, error)
	GetEntity(ctx context.Context, id string) (*model.ExternalEntity, error)
	UpdateEntity(ctx context.Context, id, label string, data map[string]string, baseVersion int) error
}

// Plan is the computed write for one pair: the merged property map and the
// version token it is conditioned on. Changed is false when the entity
// already carries everything the record has.
type Plan struct {
	Label       string
	Data        map[string]string
	BaseVersion int
	Changed     bool
}

// BuildPlan computes the minimal update for one record/entity pair. The
// record only fills gaps: a property that is non-empty on the entity is
// never overwritten, whatever the record says. A label difference alone
// forces an update.
func BuildPlan(loc *model.LocationRecord, entity *model.ExternalEntity) Plan {
	plan := Plan{
		Label:       loc.Nama,
		BaseVersion: entity.Version,
		Data:        make(map[string]string, len(entity.Data)),
	}

	for k, v := range entity.Data {
		plan.Data[k] = v
	}

	for key := range loc.Fields {
		value := loc.Fields.String(key)
		if value == "" {
			continue
		}
		if plan.Data[key] != "" {
			continue
		}
		plan.Data[key] = value
		plan.Changed = true
	}

	if plan.Label != "" && plan.Label != entity.Label {
		plan.Changed = true
	}

	return plan
}

// Engine pushes record field values to the external platform under the
// platform's optimistic concurrency check.
type Engine struct {
	platform Platform
}

// NewEngine creates a sync engine
func NewEngine(platform Platform) *Engine {
	return &Engine{platform: platform}
}

// Sync applies one record's plan against one entity. Nothing is written
// when the plan carries no change; each write costs a version increment on
// the platform, so the guard is load-bearing, not cosmetic.
//
// A stale version token surfaces as VersionConflict; the caller decides
// whether to re-fetch and retry. Any other rejection is Failed and is not
// retried here.
func (e *Engine) Sync(ctx context.Context, loc *model.LocationRecord, entity *model.ExternalEntity) Result {
	plan := BuildPlan(loc, entity)
	if !plan.Changed {
		return Result{Outcome: NoChangeNeeded}
	}

	err := e.platform.UpdateEntity(ctx, entity.ID, plan.Label, plan.Data, plan.BaseVersion)
	switch {
	case err == nil:
		return Result{Outcome: Updated}
	case errors.Is(err, odk.ErrVersionConflict):
		return Result{Outcome: VersionConflict}
	default:
		return Result{Outcome: Failed, Reason: err.Error()}
	}
}

// SyncWithRetry runs Sync and, on a version conflict, re-fetches the
// entity once and tries again against the fresh version. A second
// conflict stays a conflict for the operator to look at.
func (e *Engine) SyncWithRetry(ctx context.Context, loc *model.LocationRecord, entity *model.ExternalEntity) Result {
	result := e.Sync(ctx, loc, entity)
	if result.Outcome != VersionConflict {
		return result
	}

	fresh, err := e.platform.GetEntity(ctx, entity.ID)
	if err != nil {
		return Result{Outcome: Failed, Reason: fmt.Sprintf("re-fetch after conflict: %v", err)}
	}

	return e.Sync(ctx, loc, fresh)
}
