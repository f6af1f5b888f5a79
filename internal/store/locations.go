package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/posko-sync/internal/model"
)

// ErrNotFound is returned when a single-record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// LocationStore is the typed repository for shelter/facility records.
// Every write is scoped to a single record by id.
type LocationStore struct {
	db *sql.DB
}

// NewLocationStore creates a location store
func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationColumns = `id, nama, type, status, alamat, data, entity_id, baseline_sumber,
	created_at, updated_at, synced_at, deleted_at`

// ListActive fetches all non-soft-deleted records.
func (s *LocationStore) ListActive(ctx context.Context) ([]model.LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM locations
		WHERE deleted_at IS NULL
		ORDER BY nama`, locationColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var records []model.LocationRecord
	for rows.Next() {
		rec, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByName fetches one active record by display name, ErrNotFound when
// absent. Duplicate names return the oldest record, matching the upsert
// behavior of the importer.
func (s *LocationStore) FindByName(ctx context.Context, nama string) (*model.LocationRecord, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM locations
		WHERE nama = $1 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1`, locationColumns), nama)

	rec, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert creates a new record. The id is assigned here when zero.
func (s *LocationStore) Insert(ctx context.Context, rec *model.LocationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, nama, type, status, alamat, data, entity_id,
			baseline_sumber, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Nama, rec.Type, rec.Status, alamatJSON(rec), rec.Fields,
		rec.EntityID, rec.BaselineSumber, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert location %s: %w", rec.Nama, err)
	}
	return nil
}

// UpdateCodes persists resolved region codes for one record without
// touching the free-text names or any other column.
func (s *LocationStore) UpdateCodes(ctx context.Context, id uuid.UUID, codes model.RegionCodes) error {
	patch := model.JSONB{
		"id_provinsi":  codes.Provinsi,
		"id_kota_kab":  codes.KotaKab,
		"id_kecamatan": codes.Kecamatan,
		"id_desa":      codes.Desa,
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE locations
		SET alamat = COALESCE(alamat, '{}'::jsonb) || $2::jsonb, updated_at = $3
		WHERE id = $1`,
		id, patch, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update codes for %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// UpdateEntityID writes the reconciled external identifier back onto one
// record.
func (s *LocationStore) UpdateEntityID(ctx context.Context, id uuid.UUID, entityID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE locations SET entity_id = $2, updated_at = $3 WHERE id = $1`,
		id, entityID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update entity id for %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// UpdateFields replaces one record's descriptive field map and stamps
// synced_at.
func (s *LocationStore) UpdateFields(ctx context.Context, id uuid.UUID, fields model.JSONB) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE locations SET data = $2, updated_at = $3, synced_at = $3 WHERE id = $1`,
		id, fields, now)
	if err != nil {
		return fmt.Errorf("failed to update fields for %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// SoftDelete marks one record deleted without removing the row.
func (s *LocationStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE locations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// CountUnresolved returns how many active records are missing any region
// code.
func (s *LocationStore) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM locations
		WHERE deleted_at IS NULL
		  AND (alamat IS NULL
		       OR COALESCE(alamat->>'id_provinsi', '') = ''
		       OR COALESCE(alamat->>'id_kota_kab', '') = ''
		       OR COALESCE(alamat->>'id_kecamatan', '') = ''
		       OR COALESCE(alamat->>'id_desa', '') = '')`).Scan(&count)
	return count, err
}

// CountUnmatched returns how many active records have no external entity
// identifier.
func (s *LocationStore) CountUnmatched(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM locations
		WHERE deleted_at IS NULL AND COALESCE(entity_id, '') = ''`).Scan(&count)
	return count, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row rowScanner) (model.LocationRecord, error) {
	var (
		rec      model.LocationRecord
		alamat   model.JSONB
		fields   model.JSONB
		entityID sql.NullString
		baseline sql.NullString
		syncedAt sql.NullTime
		deleted  sql.NullTime
	)

	err := row.Scan(&rec.ID, &rec.Nama, &rec.Type, &rec.Status, &alamat, &fields,
		&entityID, &baseline, &rec.CreatedAt, &rec.UpdatedAt, &syncedAt, &deleted)
	if err != nil {
		return rec, err
	}

	rec.Fields = fields
	if entityID.Valid && entityID.String != "" {
		id := entityID.String
		rec.EntityID = &id
	}
	if baseline.Valid {
		rec.BaselineSumber = baseline.String
	}
	if syncedAt.Valid {
		t := syncedAt.Time
		rec.SyncedAt = &t
	}
	if deleted.Valid {
		t := deleted.Time
		rec.DeletedAt = &t
	}

	rec.Region = model.RegionNames{
		Provinsi:  alamat.String("nama_provinsi"),
		KotaKab:   alamat.String("nama_kota_kab"),
		Kecamatan: alamat.String("nama_kecamatan"),
		Desa:      alamat.String("nama_desa"),
	}
	rec.Codes = model.RegionCodes{
		Provinsi:  alamat.String("id_provinsi"),
		KotaKab:   alamat.String("id_kota_kab"),
		Kecamatan: alamat.String("id_kecamatan"),
		Desa:      alamat.String("id_desa"),
	}

	return rec, nil
}

func alamatJSON(rec *model.LocationRecord) model.JSONB {
	return model.JSONB{
		"nama_provinsi":  rec.Region.Provinsi,
		"nama_kota_kab":  rec.Region.KotaKab,
		"nama_kecamatan": rec.Region.Kecamatan,
		"nama_desa":      rec.Region.Desa,
		"id_provinsi":    rec.Codes.Provinsi,
		"id_kota_kab":    rec.Codes.KotaKab,
		"id_kecamatan":   rec.Codes.Kecamatan,
		"id_desa":        rec.Codes.Desa,
	}
}

func requireOneRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support; trust the exec
	}
	if n == 0 {
		return fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return nil
}
