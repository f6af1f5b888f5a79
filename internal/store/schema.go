package store

import (
	"database/sql"
	"fmt"
)

// Setup creates the tables this system owns. Backbone tables are created
// empty; they are loaded from the official region code extract by the
// operator.
func Setup(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS wilayah_provinsi (
			kode TEXT PRIMARY KEY,
			nama TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wilayah_kota_kab (
			kode TEXT PRIMARY KEY,
			nama TEXT NOT NULL,
			parent_kode TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wilayah_kecamatan (
			kode TEXT PRIMARY KEY,
			nama TEXT NOT NULL,
			parent_kode TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wilayah_desa (
			kode TEXT PRIMARY KEY,
			nama TEXT NOT NULL,
			parent_kode TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS locations (
			id UUID PRIMARY KEY,
			nama TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'posko',
			status TEXT NOT NULL DEFAULT 'operational',
			alamat JSONB,
			data JSONB,
			entity_id TEXT,
			baseline_sumber TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			synced_at TIMESTAMPTZ,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_locations_nama ON locations (nama) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_locations_entity ON locations (entity_id)`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			fetched INTEGER NOT NULL DEFAULT 0,
			resolved INTEGER NOT NULL DEFAULT 0,
			matched INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			unchanged INTEGER NOT NULL DEFAULT 0,
			conflicts INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			error_details JSONB
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}
