package wilayah

import (
	"github.com/posko-sync/internal/normalize"
)

// Names carries the free-text region names of one record, possibly partial.
type Names struct {
	Province    string
	Regency     string
	Subdistrict string
	Village     string
}

// Codes carries resolved canonical codes. An empty string means the level
// could not be resolved.
type Codes struct {
	Province    string
	Regency     string
	Subdistrict string
	Village     string
}

// Complete reports whether every level down to village resolved.
func (c Codes) Complete() bool {
	return c.Province != "" && c.Regency != "" && c.Subdistrict != "" && c.Village != ""
}

// Resolve maps free-text names to canonical codes, level by level. Each
// level is scoped to its parent's resolved code; a miss at any level leaves
// that level and everything below unresolved. Resolution never fails, it
// just stops filling in codes.
func (b *Backbone) Resolve(n Names) Codes {
	var c Codes

	name := normalize.Normalize(n.Province)
	if name == "" {
		return c
	}
	c.Province = b.lookupExact(LevelProvince, "", name)
	if c.Province == "" {
		return c
	}

	c.Regency = b.resolveScoped(LevelRegency, c.Province, n.Regency)
	if c.Regency == "" {
		return c
	}

	c.Subdistrict = b.resolveScoped(LevelSubdistrict, c.Regency, n.Subdistrict)
	if c.Subdistrict == "" {
		return c
	}

	c.Village = b.resolveScoped(LevelVillage, c.Subdistrict, n.Village)
	return c
}

// resolveScoped looks up one sub-province level under an already-resolved
// parent: exact pass first, fuzzy fallback second.
func (b *Backbone) resolveScoped(lvl Level, parent, raw string) string {
	name := normalize.Normalize(raw)
	if name == "" {
		return ""
	}

	key := normalize.FuzzyKey(raw)
	if code := b.lookupExact(lvl, parent, name); code != "" {
		return code
	}
	if code := b.lookupFuzzy(lvl, parent, key); code != "" {
		return code
	}

	// Backbone regency names always carry their kab/kota marker; field
	// input often does not. A bare name tries kabupaten first, then kota.
	if lvl == LevelRegency && !normalize.HasRegencyMarker(name) {
		for _, marker := range []string{"kab", "kota"} {
			if code := b.lookupExact(lvl, parent, marker+" "+name); code != "" {
				return code
			}
			if code := b.lookupFuzzy(lvl, parent, marker+key); code != "" {
				return code
			}
		}
	}
	return ""
}
