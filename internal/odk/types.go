package odk

import "time"

// Config holds ODK Central connection settings
type Config struct {
	BaseURL   string
	Email     string
	Password  string
	ProjectID int

	// RequestDelay is the minimum gap between consecutive requests to the
	// platform, observed sequentially per caller.
	RequestDelay time.Duration
}

// entity is the wire shape of one dataset entity.
type entity struct {
	UUID           string        `json:"uuid"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time    `json:"updatedAt"`
	CurrentVersion entityVersion `json:"currentVersion"`
}

// entityVersion carries the label, the version counter used as the
// optimistic concurrency token, and the string-valued property map.
type entityVersion struct {
	Label   string            `json:"label"`
	Version int               `json:"version"`
	Data    map[string]string `json:"data"`
}

// entityPatch is the update request body. Data only carries the properties
// being written.
type entityPatch struct {
	Label string            `json:"label,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}
