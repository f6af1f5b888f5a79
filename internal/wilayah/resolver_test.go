package wilayah

import (
	"testing"
)

func acehBackbone() *Backbone {
	return NewBackbone([]Unit{
		{Level: LevelProvince, Code: "11", Name: "ACEH"},
		{Level: LevelProvince, Code: "12", Name: "SUMATERA UTARA"},
		{Level: LevelRegency, Code: "11.06", Name: "KAB. ACEH BESAR", ParentCode: "11"},
		{Level: LevelRegency, Code: "11.71", Name: "KOTA BANDA ACEH", ParentCode: "11"},
		{Level: LevelSubdistrict, Code: "11.06.15", Name: "KUTA BARO", ParentCode: "11.06"},
		{Level: LevelSubdistrict, Code: "11.06.16", Name: "COT GLIE", ParentCode: "11.06"},
		{Level: LevelVillage, Code: "11.06.15.2001", Name: "LAM UJONG", ParentCode: "11.06.15"},
		{Level: LevelVillage, Code: "11.06.16.2001", Name: "LAM UJONG", ParentCode: "11.06.16"},
	})
}

func TestResolveFullChain(t *testing.T) {
	b := acehBackbone()

	got := b.Resolve(Names{
		Province:    "Aceh",
		Regency:     "Kab. Aceh Besar",
		Subdistrict: "kuta baro",
		Village:     "Desa Lam Ujong",
	})

	want := Codes{Province: "11", Regency: "11.06", Subdistrict: "11.06.15", Village: "11.06.15.2001"}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
	if !got.Complete() {
		t.Error("expected complete resolution")
	}
}

func TestResolveShortCircuitsOnMiss(t *testing.T) {
	b := acehBackbone()

	// Regency name that matches nothing: province still resolves, regency
	// and everything below stay empty even though the subdistrict name
	// exists elsewhere in the backbone.
	got := b.Resolve(Names{
		Province:    "Aceh",
		Regency:     "Aceh Besar Tengah",
		Subdistrict: "Kuta Baro",
		Village:     "Lam Ujong",
	})

	want := Codes{Province: "11"}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolveUnknownProvinceLeavesAllEmpty(t *testing.T) {
	b := acehBackbone()

	got := b.Resolve(Names{Province: "Atlantis", Regency: "Kab. Aceh Besar"})
	if got != (Codes{}) {
		t.Errorf("Resolve() = %+v, want all empty", got)
	}
}

func TestResolveEmptyNameStopsDescent(t *testing.T) {
	b := acehBackbone()

	got := b.Resolve(Names{
		Province:    "Aceh",
		Regency:     "Kota Banda Aceh",
		Subdistrict: "",
		Village:     "Lam Ujong",
	})

	want := Codes{Province: "11", Regency: "11.71"}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolveFuzzyFallback(t *testing.T) {
	b := acehBackbone()

	// Old orthography and joined whitespace miss the exact pass but hit
	// the fuzzy key ("tjot glie" -> "cotglie").
	got := b.Resolve(Names{
		Province:    "ACEH",
		Regency:     "Kabupaten Aceh Besar",
		Subdistrict: "Tjot  Glie",
	})

	want := Codes{Province: "11", Regency: "11.06", Subdistrict: "11.06.16"}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolveScopedByParent(t *testing.T) {
	b := acehBackbone()

	// "Lam Ujong" exists under two subdistricts; the resolved parent picks
	// the right one.
	got := b.Resolve(Names{
		Province:    "Aceh",
		Regency:     "Aceh Besar",
		Subdistrict: "Cot Glie",
		Village:     "Lam Ujong",
	})

	if got.Village != "11.06.16.2001" {
		t.Errorf("Village = %q, want 11.06.16.2001", got.Village)
	}
}

func TestResolveDeterministic(t *testing.T) {
	b := acehBackbone()
	n := Names{Province: "Aceh", Regency: "Kab. Aceh Besar", Subdistrict: "Kuta Baro", Village: "Lam Ujong"}

	first := b.Resolve(n)
	for i := 0; i < 10; i++ {
		if again := b.Resolve(n); again != first {
			t.Fatalf("Resolve not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestResolveNeverSkipsAncestors(t *testing.T) {
	b := acehBackbone()

	cases := []Names{
		{},
		{Village: "Lam Ujong"},
		{Subdistrict: "Kuta Baro", Village: "Lam Ujong"},
		{Province: "Aceh", Subdistrict: "Kuta Baro"},
		{Province: "Aceh", Regency: "nope", Subdistrict: "Kuta Baro", Village: "Lam Ujong"},
	}

	for _, n := range cases {
		c := b.Resolve(n)
		if c.Regency != "" && c.Province == "" {
			t.Errorf("regency resolved without province: %+v", c)
		}
		if c.Subdistrict != "" && c.Regency == "" {
			t.Errorf("subdistrict resolved without regency: %+v", c)
		}
		if c.Village != "" && c.Subdistrict == "" {
			t.Errorf("village resolved without subdistrict: %+v", c)
		}
	}
}

func TestAmbiguousFuzzyKeysCountedFirstWins(t *testing.T) {
	b := NewBackbone([]Unit{
		{Level: LevelProvince, Code: "11", Name: "ACEH"},
		// Two regencies whose names collapse to the same fuzzy key under
		// the same province.
		{Level: LevelRegency, Code: "11.01", Name: "TJOT RAJA", ParentCode: "11"},
		{Level: LevelRegency, Code: "11.02", Name: "COT RAJA", ParentCode: "11"},
	})

	if got := b.AmbiguousCount(LevelRegency); got != 1 {
		t.Errorf("AmbiguousCount = %d, want 1", got)
	}

	// The colliding fuzzy key resolves to the first row loaded.
	c := b.Resolve(Names{Province: "Aceh", Regency: "Tjot Radja"})
	if c.Regency != "11.01" {
		t.Errorf("Regency = %q, want 11.01", c.Regency)
	}
}

func bekasiBackbone() *Backbone {
	return NewBackbone([]Unit{
		{Level: LevelProvince, Code: "32", Name: "JAWA BARAT"},
		{Level: LevelRegency, Code: "32.16", Name: "KAB. BEKASI", ParentCode: "32"},
		{Level: LevelRegency, Code: "32.75", Name: "KOTA BEKASI", ParentCode: "32"},
	})
}

func TestResolveKeepsKabKotaDistinct(t *testing.T) {
	// Same-name regency/city pairs under one province are common; the
	// marker in the input decides, never load order.
	b := bekasiBackbone()

	if got := b.AmbiguousCount(LevelRegency); got != 0 {
		t.Errorf("AmbiguousCount = %d, want 0 for distinct kab/kota keys", got)
	}

	tests := []struct {
		name    string
		regency string
		want    string
	}{
		{"explicit kota", "Kota Bekasi", "32.75"},
		{"explicit kab dotted", "Kab. Bekasi", "32.16"},
		{"explicit kab full", "Kabupaten Bekasi", "32.16"},
		{"kotamadya folds to kota", "Kotamadya Bekasi", "32.75"},
		{"marker with stray punctuation", "KOTA,  BEKASI", "32.75"},
		{"unknown regency stays empty", "Kota Bandung", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Resolve(Names{Province: "Jawa Barat", Regency: tt.regency})
			if got.Regency != tt.want {
				t.Errorf("Regency = %q, want %q", got.Regency, tt.want)
			}
		})
	}
}

func TestResolveBareRegencyDefaultsToKab(t *testing.T) {
	b := bekasiBackbone()

	// No marker in the input: kabupaten is tried before kota, matching the
	// naming convention of the official extract.
	got := b.Resolve(Names{Province: "Jawa Barat", Regency: "Bekasi"})
	if got.Regency != "32.16" {
		t.Errorf("Regency = %q, want 32.16", got.Regency)
	}

	// Bare name with only a kota candidate still resolves.
	cityOnly := NewBackbone([]Unit{
		{Level: LevelProvince, Code: "31", Name: "DKI JAKARTA"},
		{Level: LevelRegency, Code: "31.74", Name: "KOTA JAKARTA SELATAN", ParentCode: "31"},
	})
	got = cityOnly.Resolve(Names{Province: "DKI Jakarta", Regency: "Jakarta Selatan"})
	if got.Regency != "31.74" {
		t.Errorf("Regency = %q, want 31.74", got.Regency)
	}
}

func TestExactKeyCollisionsCounted(t *testing.T) {
	b := NewBackbone([]Unit{
		{Level: LevelProvince, Code: "11", Name: "ACEH"},
		// Duplicate extract rows under the same parent collide on the
		// exact key, not just the fuzzy one.
		{Level: LevelVillage, Code: "11.06.15.2001", Name: "LAM UJONG", ParentCode: "11.06.15"},
		{Level: LevelVillage, Code: "11.06.15.2099", Name: "LAM UJONG", ParentCode: "11.06.15"},
	})

	if got := b.AmbiguousCount(LevelVillage); got != 1 {
		t.Errorf("AmbiguousCount = %d, want 1", got)
	}
}

func TestCanonicalName(t *testing.T) {
	b := acehBackbone()
	if got := b.CanonicalName(LevelRegency, "11.06"); got != "KAB. ACEH BESAR" {
		t.Errorf("CanonicalName = %q", got)
	}
	if got := b.CanonicalName(LevelVillage, "nope"); got != "" {
		t.Errorf("CanonicalName for unknown code = %q, want empty", got)
	}
}
