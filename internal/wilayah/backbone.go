package wilayah

import (
	"github.com/posko-sync/internal/normalize"
)

// Level identifies one of the four administrative levels.
type Level int

const (
	LevelProvince Level = iota + 1
	LevelRegency
	LevelSubdistrict
	LevelVillage
)

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "provinsi"
	case LevelRegency:
		return "kota_kab"
	case LevelSubdistrict:
		return "kecamatan"
	case LevelVillage:
		return "desa"
	}
	return "unknown"
}

// Unit is one row of the authoritative backbone: a canonical code and name
// at a level, scoped to a parent code (empty for provinces).
type Unit struct {
	Level      Level
	Code       string
	Name       string
	ParentCode string
}

// lookupKey scopes a normalized name to a parent code. Provinces use the
// empty parent.
type lookupKey struct {
	parent string
	name   string
}

// Backbone holds the immutable lookup tables built once per run. Safe for
// concurrent readers.
type Backbone struct {
	exact map[Level]map[lookupKey]string
	fuzzy map[Level]map[lookupKey]string
	names map[Level]map[string]string

	// lookup keys (exact or fuzzy) that collided under the same parent;
	// first insert wins, the rest are only counted for the build report
	ambiguous map[Level]int
}

// NewBackbone builds lookup tables from backbone rows. Duplicate keys under
// the same parent keep the first row encountered.
func NewBackbone(units []Unit) *Backbone {
	b := &Backbone{
		exact:     make(map[Level]map[lookupKey]string),
		fuzzy:     make(map[Level]map[lookupKey]string),
		names:     make(map[Level]map[string]string),
		ambiguous: make(map[Level]int),
	}

	for _, lvl := range []Level{LevelProvince, LevelRegency, LevelSubdistrict, LevelVillage} {
		b.exact[lvl] = make(map[lookupKey]string)
		b.fuzzy[lvl] = make(map[lookupKey]string)
		b.names[lvl] = make(map[string]string)
	}

	for _, u := range units {
		if u.Code == "" || u.Name == "" {
			continue
		}

		b.names[u.Level][u.Code] = u.Name

		collided := false

		ek := lookupKey{parent: u.ParentCode, name: normalize.Normalize(u.Name)}
		if _, exists := b.exact[u.Level][ek]; exists {
			collided = true
		} else {
			b.exact[u.Level][ek] = u.Code
		}

		fk := lookupKey{parent: u.ParentCode, name: normalize.FuzzyKey(u.Name)}
		if _, exists := b.fuzzy[u.Level][fk]; exists {
			collided = true
		} else {
			b.fuzzy[u.Level][fk] = u.Code
		}

		if collided {
			b.ambiguous[u.Level]++
		}
	}

	return b
}

// Size returns the number of units loaded at a level.
func (b *Backbone) Size(lvl Level) int {
	return len(b.names[lvl])
}

// AmbiguousCount returns how many units collided with an already-loaded
// exact or fuzzy key at a level while building. Collisions resolve to the
// first row loaded.
func (b *Backbone) AmbiguousCount(lvl Level) int {
	return b.ambiguous[lvl]
}

// CanonicalName returns the backbone name for a code at a level, or "".
func (b *Backbone) CanonicalName(lvl Level, code string) string {
	return b.names[lvl][code]
}

func (b *Backbone) lookupExact(lvl Level, parent, name string) string {
	return b.exact[lvl][lookupKey{parent: parent, name: name}]
}

func (b *Backbone) lookupFuzzy(lvl Level, parent, key string) string {
	return b.fuzzy[lvl][lookupKey{parent: parent, name: key}]
}
