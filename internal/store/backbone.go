package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/posko-sync/internal/wilayah"
)

// BackboneStore reads the four authoritative region tables.
type BackboneStore struct {
	db *sql.DB
}

// NewBackboneStore creates a backbone store
func NewBackboneStore(db *sql.DB) *BackboneStore {
	return &BackboneStore{db: db}
}

// Load fetches every backbone row. The result is fed to wilayah.NewBackbone
// once per run; a completely empty backbone is a setup error because
// nothing could ever resolve against it.
func (s *BackboneStore) Load(ctx context.Context) ([]wilayah.Unit, error) {
	var units []wilayah.Unit

	rows, err := s.db.QueryContext(ctx, `SELECT kode, nama FROM wilayah_provinsi`)
	if err != nil {
		return nil, fmt.Errorf("failed to load wilayah_provinsi: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u := wilayah.Unit{Level: wilayah.LevelProvince}
		if err := rows.Scan(&u.Code, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan wilayah_provinsi row: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scoped := []struct {
		level wilayah.Level
		table string
	}{
		{wilayah.LevelRegency, "wilayah_kota_kab"},
		{wilayah.LevelSubdistrict, "wilayah_kecamatan"},
		{wilayah.LevelVillage, "wilayah_desa"},
	}

	for _, tbl := range scoped {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT kode, nama, parent_kode FROM %s`, tbl.table))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", tbl.table, err)
		}

		for rows.Next() {
			u := wilayah.Unit{Level: tbl.level}
			if err := rows.Scan(&u.Code, &u.Name, &u.ParentCode); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s row: %w", tbl.table, err)
			}
			units = append(units, u)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("backbone tables are empty; load the region extract first")
	}

	return units, nil
}
