package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/posko-sync/internal/model"
	"github.com/posko-sync/internal/store"
	"github.com/posko-sync/internal/wilayah"
)

type fakeStore struct {
	records map[string]*model.LocationRecord
	inserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*model.LocationRecord)}
}

func (f *fakeStore) FindByName(ctx context.Context, nama string) (*model.LocationRecord, error) {
	rec, ok := f.records[nama]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeStore) Insert(ctx context.Context, rec *model.LocationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	copied := *rec
	f.records[rec.Nama] = &copied
	f.inserts++
	return nil
}

func (f *fakeStore) UpdateCodes(ctx context.Context, id uuid.UUID, codes model.RegionCodes) error {
	for _, rec := range f.records {
		if rec.ID == id {
			rec.Codes = codes
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpdateFields(ctx context.Context, id uuid.UUID, fields model.JSONB) error {
	for _, rec := range f.records {
		if rec.ID == id {
			rec.Fields = fields
			return nil
		}
	}
	return store.ErrNotFound
}

func testBackbone() *wilayah.Backbone {
	return wilayah.NewBackbone([]wilayah.Unit{
		{Level: wilayah.LevelProvince, Code: "11", Name: "ACEH"},
		{Level: wilayah.LevelRegency, Code: "11.06", Name: "KAB. ACEH BESAR", ParentCode: "11"},
		{Level: wilayah.LevelSubdistrict, Code: "11.06.15", Name: "KUTA BARO", ParentCode: "11.06"},
		{Level: wilayah.LevelVillage, Code: "11.06.15.2001", Name: "LAM UJONG", ParentCode: "11.06.15"},
	})
}

func TestImportInsertsAndResolves(t *testing.T) {
	st := newFakeStore()
	im := NewImporter(st, testBackbone())

	result, err := im.Import(context.Background(), []RawRecord{
		{
			Nama:      "Posko Blang",
			Provinsi:  "Aceh",
			KotaKab:   "Kab. Aceh Besar",
			Kecamatan: "Kuta Baro",
			Desa:      "Lam Udjong",
			Sumber:    "bnpb-2026-01",
			Fields:    map[string]interface{}{"jumlah_kk": 40},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.Resolved != 1 {
		t.Fatalf("result = %+v", result)
	}

	rec := st.records["Posko Blang"]
	if rec == nil {
		t.Fatal("record not inserted")
	}
	if rec.Codes.Desa != "11.06.15.2001" {
		t.Errorf("codes = %+v", rec.Codes)
	}
	if rec.Type != "posko" || rec.Status != "operational" {
		t.Errorf("defaults not applied: type=%q status=%q", rec.Type, rec.Status)
	}
	if rec.BaselineSumber != "bnpb-2026-01" {
		t.Errorf("sumber = %q", rec.BaselineSumber)
	}
}

func TestImportUpsertsByName(t *testing.T) {
	st := newFakeStore()
	im := NewImporter(st, testBackbone())

	first := []RawRecord{{
		Nama:     "Posko Blang",
		Provinsi: "Aceh",
		Fields:   map[string]interface{}{"jumlah_kk": 40},
	}}
	second := []RawRecord{{
		Nama:      "Posko Blang",
		Provinsi:  "Aceh",
		KotaKab:   "Aceh Besar",
		Kecamatan: "Kuta Baro",
		Desa:      "Lam Ujong",
		Fields:    map[string]interface{}{"kk_anak": 5},
	}}

	if _, err := im.Import(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if _, err := im.Import(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	if st.inserts != 1 {
		t.Errorf("inserts = %d, want 1 upsert", st.inserts)
	}
	rec := st.records["Posko Blang"]
	if rec.Fields["jumlah_kk"] != 40 || rec.Fields["kk_anak"] != 5 {
		t.Errorf("fields not merged: %+v", rec.Fields)
	}
	if rec.Codes.Desa != "11.06.15.2001" {
		t.Errorf("second batch should improve codes, got %+v", rec.Codes)
	}
}

func TestImportNeverDowngradesCodes(t *testing.T) {
	st := newFakeStore()
	im := NewImporter(st, testBackbone())

	full := []RawRecord{{
		Nama:      "Posko Blang",
		Provinsi:  "Aceh",
		KotaKab:   "Aceh Besar",
		Kecamatan: "Kuta Baro",
		Desa:      "Lam Ujong",
	}}
	partial := []RawRecord{{
		Nama:     "Posko Blang",
		Provinsi: "Aceh",
	}}

	if _, err := im.Import(context.Background(), full); err != nil {
		t.Fatal(err)
	}
	if _, err := im.Import(context.Background(), partial); err != nil {
		t.Fatal(err)
	}

	rec := st.records["Posko Blang"]
	if rec.Codes.Desa != "11.06.15.2001" {
		t.Errorf("partial batch downgraded codes: %+v", rec.Codes)
	}
}

func TestImportSkipsBlankNames(t *testing.T) {
	st := newFakeStore()
	im := NewImporter(st, testBackbone())

	result, err := im.Import(context.Background(), []RawRecord{
		{Nama: "   "},
		{Nama: ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 2 || result.Updated != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestImportJSON(t *testing.T) {
	st := newFakeStore()
	im := NewImporter(st, testBackbone())

	payload := `[
		{"nama": "Posko Blang", "nama_provinsi": "Aceh", "data": {"jumlah_kk": 40}},
		{"nama": "Posko Dua", "nama_provinsi": "Aceh"}
	]`
	result, err := im.ImportJSON(context.Background(), strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 2 {
		t.Errorf("updated = %d, want 2", result.Updated)
	}
	if _, err := im.ImportJSON(context.Background(), strings.NewReader("{not json")); err == nil {
		t.Error("malformed payload should error")
	}
}
