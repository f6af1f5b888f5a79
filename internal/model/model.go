package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB represents a JSONB column in PostgreSQL.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// String returns the scalar value under key rendered as a string, or ""
// when the key is absent, nil, empty, or not a scalar. JSON numbers render
// without a trailing ".000000" so "12" and 12 compare equal across
// systems. Nested objects and arrays are not entity property material and
// render as "".
func (j JSONB) String(key string) string {
	v, ok := j[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// RegionNames holds the free-text administrative names attached to a record.
type RegionNames struct {
	Provinsi  string `json:"nama_provinsi"`
	KotaKab   string `json:"nama_kota_kab"`
	Kecamatan string `json:"nama_kecamatan"`
	Desa      string `json:"nama_desa"`
}

// RegionCodes holds resolved canonical codes; empty string means unresolved.
type RegionCodes struct {
	Provinsi  string `json:"id_provinsi"`
	KotaKab   string `json:"id_kota_kab"`
	Kecamatan string `json:"id_kecamatan"`
	Desa      string `json:"id_desa"`
}

// LocationRecord is a posko/shelter entry in the relational store.
type LocationRecord struct {
	ID     uuid.UUID
	Nama   string
	Type   string
	Status string

	Region RegionNames
	Codes  RegionCodes

	// EntityID is the external platform's identifier for this record's
	// counterpart entity. Nil until reconciliation links it.
	EntityID *string

	// Fields is the open descriptive map (demographics, facilities)
	// mirrored toward the external entity's properties.
	Fields JSONB

	BaselineSumber string

	CreatedAt time.Time
	UpdatedAt time.Time
	SyncedAt  *time.Time
	DeletedAt *time.Time
}

// Deleted reports the soft-delete flag. Soft-deleted records are excluded
// from resolution and reconciliation passes.
func (l *LocationRecord) Deleted() bool {
	return l.DeletedAt != nil
}

// ExternalEntity is the external platform's view of the same logical
// location: immutable identifier, display label, version counter used as
// the optimistic concurrency token, and string-valued properties.
type ExternalEntity struct {
	ID      string
	Label   string
	Version int
	Data    map[string]string
}
