package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/posko-sync/internal/audit"
	"github.com/posko-sync/internal/metrics"
	"github.com/posko-sync/internal/model"
	"github.com/posko-sync/internal/reconcile"
	"github.com/posko-sync/internal/wilayah"
)

// LocationRepo is the slice of the relational store the runner writes to.
// Every write targets a single record.
type LocationRepo interface {
	ListActive(ctx context.Context) ([]model.LocationRecord, error)
	UpdateCodes(ctx context.Context, id uuid.UUID, codes model.RegionCodes) error
	UpdateEntityID(ctx context.Context, id uuid.UUID, entityID string) error
}

// RunTracker persists batch run results. *audit.Tracker satisfies it; a
// nil tracker disables persistence for ad-hoc runs.
type RunTracker interface {
	Start(ctx context.Context, kind string) (int64, error)
	Finish(ctx context.Context, runID int64, result *audit.RunResult) error
}

// Runner drives the batch passes: resolution repair, reconciliation, and
// property sync. Each pass works on a snapshot fetched at its start and
// converts per-record failures into counters instead of aborting.
type Runner struct {
	locations LocationRepo
	platform  Platform
	engine    *Engine
	tracker   RunTracker
	workers   int
}

// NewRunner creates a batch runner
func NewRunner(locations LocationRepo, platform Platform, tracker RunTracker, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		locations: locations,
		platform:  platform,
		engine:    NewEngine(platform),
		tracker:   tracker,
		workers:   workers,
	}
}

// ResolveAll re-resolves region codes for every active record that is
// missing any level and persists improvements. Records that already carry
// a code at a level keep it; resolution only ever fills gaps.
func (r *Runner) ResolveAll(ctx context.Context, backbone *wilayah.Backbone) (*audit.RunResult, error) {
	result := &audit.RunResult{Kind: "resolve", StartTime: time.Now()}
	runID, err := r.startRun(ctx, result.Kind)
	if err != nil {
		return nil, err
	}

	records, err := r.locations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	result.Fetched = len(records)

	for i := range records {
		rec := &records[i]

		codes := rec.Codes
		if codes.Provinsi != "" && codes.KotaKab != "" && codes.Kecamatan != "" && codes.Desa != "" {
			result.Skipped++
			continue
		}

		resolved := backbone.Resolve(wilayah.Names{
			Province:    rec.Region.Provinsi,
			Regency:     rec.Region.KotaKab,
			Subdistrict: rec.Region.Kecamatan,
			Village:     rec.Region.Desa,
		})
		merged := mergeCodes(codes, resolved)

		countGaps(merged)

		if merged == codes {
			result.Skipped++
			continue
		}

		if err := r.locations.UpdateCodes(ctx, rec.ID, merged); err != nil {
			result.Failures++
			result.ErrorDetails = append(result.ErrorDetails, fmt.Sprintf("%s: %v", rec.Nama, err))
			continue
		}
		result.Resolved++
	}

	r.finishRun(ctx, runID, result)
	log.Printf("Resolve pass completed: %d fetched, %d resolved, %d skipped, %d failures",
		result.Fetched, result.Resolved, result.Skipped, result.Failures)
	return result, nil
}

// Reconcile aligns record external identifiers with the platform's entity
// list and writes corrections back to the relational store.
func (r *Runner) Reconcile(ctx context.Context) (*audit.RunResult, error) {
	result := &audit.RunResult{Kind: "reconcile", StartTime: time.Now()}
	runID, err := r.startRun(ctx, result.Kind)
	if err != nil {
		return nil, err
	}

	records, err := r.locations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	entities, err := r.platform.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}
	result.Fetched = len(records)

	outcome := reconcile.Reconcile(records, entities)
	result.Skipped = len(outcome.Unmatched)
	metrics.ReconcileMissesTotal.Add(float64(len(outcome.Unmatched)))

	for _, update := range outcome.Updates {
		if err := r.locations.UpdateEntityID(ctx, update.RecordID, update.EntityID); err != nil {
			result.Failures++
			result.ErrorDetails = append(result.ErrorDetails, fmt.Sprintf("%s: %v", update.RecordID, err))
			continue
		}
		result.Matched++
	}

	r.finishRun(ctx, runID, result)
	log.Printf("Reconcile completed: %d records, %d entities, %d linked, %d unmatched, %d failures",
		len(records), len(entities), result.Matched, result.Skipped, result.Failures)
	return result, nil
}

// syncJob pairs one record with its entity for the worker pool.
type syncJob struct {
	record *model.LocationRecord
	entity *model.ExternalEntity
}

// SyncProperties pushes record fields to each record's linked entity
// across a fixed worker pool. Records appear at most once in the job
// stream, so there is a single writer per record; the platform's version
// check is the only concurrency arbiter on the entity side.
func (r *Runner) SyncProperties(ctx context.Context) (*audit.RunResult, error) {
	result := &audit.RunResult{Kind: "sync", StartTime: time.Now()}
	runID, err := r.startRun(ctx, result.Kind)
	if err != nil {
		return nil, err
	}

	records, err := r.locations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	entities, err := r.platform.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}
	result.Fetched = len(records)

	byID := make(map[string]model.ExternalEntity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	jobs := make(chan syncJob)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := r.engine.SyncWithRetry(ctx, job.record, job.entity)
				metrics.SyncOutcomesTotal.WithLabelValues(res.Outcome.String()).Inc()

				mu.Lock()
				switch res.Outcome {
				case Updated:
					result.Updated++
				case NoChangeNeeded:
					result.Unchanged++
				case VersionConflict:
					result.Conflicts++
					result.ErrorDetails = append(result.ErrorDetails,
						fmt.Sprintf("%s: version conflict persisted after retry", job.record.Nama))
				case Failed:
					result.Failures++
					result.ErrorDetails = append(result.ErrorDetails,
						fmt.Sprintf("%s: %s", job.record.Nama, res.Reason))
					metrics.PlatformRequestFailures.Inc()
				}
				mu.Unlock()
			}
		}()
	}

	for i := range records {
		rec := &records[i]
		if rec.EntityID == nil {
			result.Skipped++
			continue
		}
		entity, ok := byID[*rec.EntityID]
		if !ok {
			result.Skipped++
			continue
		}
		jobs <- syncJob{record: rec, entity: &entity}
	}
	close(jobs)
	wg.Wait()

	r.finishRun(ctx, runID, result)
	log.Printf("Property sync completed: %d fetched, %d updated, %d unchanged, %d conflicts, %d failures, %d skipped",
		result.Fetched, result.Updated, result.Unchanged, result.Conflicts, result.Failures, result.Skipped)
	return result, nil
}

// Run executes the full outward pipeline: reconcile identifiers first so
// property sync targets the right entities, then push properties.
func (r *Runner) Run(ctx context.Context) (*audit.RunResult, error) {
	if _, err := r.Reconcile(ctx); err != nil {
		return nil, err
	}
	return r.SyncProperties(ctx)
}

func (r *Runner) startRun(ctx context.Context, kind string) (int64, error) {
	metrics.RunsTotal.WithLabelValues(kind).Inc()
	if r.tracker == nil {
		return 0, nil
	}
	return r.tracker.Start(ctx, kind)
}

func (r *Runner) finishRun(ctx context.Context, runID int64, result *audit.RunResult) {
	result.EndTime = time.Now()
	metrics.RunDurationSeconds.WithLabelValues(result.Kind).
		Observe(result.EndTime.Sub(result.StartTime).Seconds())

	if r.tracker == nil {
		return
	}
	if err := r.tracker.Finish(ctx, runID, result); err != nil {
		log.Printf("Warning: failed to record %s run: %v", result.Kind, err)
	}
}

// mergeCodes keeps existing codes and fills gaps from a fresh resolution.
// A code is only meaningful under its parent, so a level is filled only
// when the kept ancestor is the one the fresh resolution descended
// through; diverging chains stop the fill there.
func mergeCodes(current model.RegionCodes, resolved wilayah.Codes) model.RegionCodes {
	merged := current
	if merged.Provinsi == "" {
		merged.Provinsi = resolved.Province
	}
	if merged.Provinsi == "" || merged.Provinsi != resolved.Province {
		return merged
	}
	if merged.KotaKab == "" {
		merged.KotaKab = resolved.Regency
	}
	if merged.KotaKab == "" || merged.KotaKab != resolved.Regency {
		return merged
	}
	if merged.Kecamatan == "" {
		merged.Kecamatan = resolved.Subdistrict
	}
	if merged.Kecamatan == "" || merged.Kecamatan != resolved.Subdistrict {
		return merged
	}
	if merged.Desa == "" {
		merged.Desa = resolved.Village
	}
	return merged
}

func countGaps(codes model.RegionCodes) {
	if codes.Provinsi == "" {
		metrics.ResolutionGapsTotal.WithLabelValues(wilayah.LevelProvince.String()).Inc()
	}
	if codes.KotaKab == "" {
		metrics.ResolutionGapsTotal.WithLabelValues(wilayah.LevelRegency.String()).Inc()
	}
	if codes.Kecamatan == "" {
		metrics.ResolutionGapsTotal.WithLabelValues(wilayah.LevelSubdistrict.String()).Inc()
	}
	if codes.Desa == "" {
		metrics.ResolutionGapsTotal.WithLabelValues(wilayah.LevelVillage.String()).Inc()
	}
}
