package normalize

import (
	"strings"
	"unicode"
)

// Administrative unit prefixes that appear in free-text region names but
// never in lookup keys. Matched against whole leading tokens after
// punctuation removal, so "Kec." and "Kec" both reduce to "kec".
//
// Regency markers (kab/kota) are deliberately NOT in this set: a province
// can hold both "KAB. X" and "KOTA X", so the marker is the only thing
// that tells them apart and must survive into the key.
var unitPrefixes = map[string]bool{
	"provinsi":  true,
	"prov":      true,
	"kecamatan": true,
	"kec":       true,
	"kelurahan": true,
	"kel":       true,
	"desa":      true,
	"dusun":     true,
	"gampong":   true,
	"nagari":    true,
}

// Regency marker spellings folded to their canonical short form.
var regencyMarkers = map[string]string{
	"kab":       "kab",
	"kabupaten": "kab",
	"kota":      "kota",
	"kotamadya": "kota",
}

// Old Indonesian orthography digraphs mapped to their modern single forms.
// Order matters: dj must be rewritten before tj/sj so that a consonant
// exposed by one rule is still consumed by the next.
var spellingRules = []struct {
	old string
	new string
}{
	{"dj", "j"},
	{"tj", "c"},
	{"sj", "sy"},
	{"oe", "u"},
	{"ch", "kh"},
}

// Normalize canonicalizes a free-text administrative region name into the
// key used for exact backbone lookups. It is total (empty in, empty out)
// and idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(strings.TrimSpace(raw))

	// Replace punctuation with spaces, keep letters and digits.
	b := strings.Builder{}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())

	// Strip leading unit prefixes ("Kec. Kuta Baro" -> "kuta baro").
	// Never strip down to nothing: a name that is only a prefix word is
	// kept as-is rather than guessed empty.
	for len(tokens) > 1 && unitPrefixes[tokens[0]] {
		tokens = tokens[1:]
	}

	// Fold regency marker spellings: "Kabupaten Bekasi" and "Kab. Bekasi"
	// share a key, "Kota Bekasi" keeps its own.
	if len(tokens) > 1 {
		if marker, ok := regencyMarkers[tokens[0]]; ok {
			tokens[0] = marker
		}
	}

	return strings.Join(tokens, " ")
}

// HasRegencyMarker reports whether a normalized name carries a kab/kota
// marker. Bare regency names need marker-prefixed fallback lookups.
func HasRegencyMarker(name string) bool {
	return strings.HasPrefix(name, "kab ") || strings.HasPrefix(name, "kota ")
}

// FuzzyKey produces the aggressive comparison key used for fallback
// lookups: the normalized name with all whitespace removed and historical
// spellings rewritten. Idempotent and total like Normalize.
func FuzzyKey(raw string) string {
	s := Normalize(raw)
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, " ", "")

	for _, rule := range spellingRules {
		// Loop until the pattern is gone: a single ReplaceAll can leave a
		// fresh occurrence behind when the pattern overlaps itself.
		for strings.Contains(s, rule.old) {
			s = strings.ReplaceAll(s, rule.old, rule.new)
		}
	}

	return s
}

// IsBlank reports whether a raw name normalizes to nothing usable.
func IsBlank(raw string) bool {
	return Normalize(raw) == ""
}
