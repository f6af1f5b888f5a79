package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/posko-sync/internal/audit"
	"github.com/posko-sync/internal/model"
	"github.com/posko-sync/internal/normalize"
	"github.com/posko-sync/internal/store"
	"github.com/posko-sync/internal/wilayah"
)

// RawRecord is one incoming baseline record before resolution. The region
// names are free text as entered in the field.
type RawRecord struct {
	Nama      string                 `json:"nama"`
	Type      string                 `json:"type"`
	Status    string                 `json:"status"`
	Provinsi  string                 `json:"nama_provinsi"`
	KotaKab   string                 `json:"nama_kota_kab"`
	Kecamatan string                 `json:"nama_kecamatan"`
	Desa      string                 `json:"nama_desa"`
	Sumber    string                 `json:"sumber"`
	Fields    map[string]interface{} `json:"data"`
}

// Store is the slice of the relational store the importer needs.
// *store.LocationStore satisfies it.
type Store interface {
	FindByName(ctx context.Context, nama string) (*model.LocationRecord, error)
	Insert(ctx context.Context, rec *model.LocationRecord) error
	UpdateCodes(ctx context.Context, id uuid.UUID, codes model.RegionCodes) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields model.JSONB) error
}

// Importer loads baseline records into the relational store, resolving
// region codes on the way in. Records are keyed by display name: a name
// seen before updates the existing row instead of creating a duplicate.
type Importer struct {
	store    Store
	backbone *wilayah.Backbone
}

// NewImporter creates an importer
func NewImporter(store Store, backbone *wilayah.Backbone) *Importer {
	return &Importer{store: store, backbone: backbone}
}

// ImportJSON reads a JSON array of raw records from r and imports them.
func (im *Importer) ImportJSON(ctx context.Context, r io.Reader) (*audit.RunResult, error) {
	var raw []RawRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode import payload: %w", err)
	}
	return im.Import(ctx, raw)
}

// Import resolves and upserts a batch of raw records. Blank names are
// skipped; per-record store failures are counted, not fatal.
func (im *Importer) Import(ctx context.Context, raw []RawRecord) (*audit.RunResult, error) {
	result := &audit.RunResult{Kind: "import", StartTime: time.Now()}
	result.Fetched = len(raw)

	for _, rr := range raw {
		if normalize.IsBlank(rr.Nama) {
			result.Skipped++
			continue
		}

		codes := im.backbone.Resolve(wilayah.Names{
			Province:    rr.Provinsi,
			Regency:     rr.KotaKab,
			Subdistrict: rr.Kecamatan,
			Village:     rr.Desa,
		})
		if codes.Complete() {
			result.Resolved++
		}

		if err := im.upsert(ctx, rr, codes); err != nil {
			result.Failures++
			result.ErrorDetails = append(result.ErrorDetails, fmt.Sprintf("%s: %v", rr.Nama, err))
			continue
		}
		result.Updated++
	}

	result.EndTime = time.Now()
	log.Printf("Import completed: %d records, %d upserted, %d fully resolved, %d skipped, %d failures",
		result.Fetched, result.Updated, result.Resolved, result.Skipped, result.Failures)
	return result, nil
}

func (im *Importer) upsert(ctx context.Context, rr RawRecord, codes wilayah.Codes) error {
	regionCodes := model.RegionCodes{
		Provinsi:  codes.Province,
		KotaKab:   codes.Regency,
		Kecamatan: codes.Subdistrict,
		Desa:      codes.Village,
	}

	existing, err := im.store.FindByName(ctx, rr.Nama)
	if errors.Is(err, store.ErrNotFound) {
		rec := &model.LocationRecord{
			Nama:   rr.Nama,
			Type:   defaultString(rr.Type, "posko"),
			Status: defaultString(rr.Status, "operational"),
			Region: model.RegionNames{
				Provinsi:  rr.Provinsi,
				KotaKab:   rr.KotaKab,
				Kecamatan: rr.Kecamatan,
				Desa:      rr.Desa,
			},
			Codes:          regionCodes,
			Fields:         model.JSONB(rr.Fields),
			BaselineSumber: rr.Sumber,
		}
		return im.store.Insert(ctx, rec)
	}
	if err != nil {
		return err
	}

	// Existing record: merge incoming fields into its map, incoming values
	// win, then refresh the codes for any level that improved.
	merged := model.JSONB{}
	for k, v := range existing.Fields {
		merged[k] = v
	}
	for k, v := range rr.Fields {
		merged[k] = v
	}
	if err := im.store.UpdateFields(ctx, existing.ID, merged); err != nil {
		return err
	}

	// Codes only ever improve: existing non-empty levels are kept even
	// when this batch resolves worse than a previous one.
	improved := existing.Codes
	if improved.Provinsi == "" {
		improved.Provinsi = regionCodes.Provinsi
	}
	if improved.KotaKab == "" {
		improved.KotaKab = regionCodes.KotaKab
	}
	if improved.Kecamatan == "" {
		improved.Kecamatan = regionCodes.Kecamatan
	}
	if improved.Desa == "" {
		improved.Desa = regionCodes.Desa
	}
	if improved != existing.Codes {
		if err := im.store.UpdateCodes(ctx, existing.ID, improved); err != nil {
			return err
		}
	}
	return nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
