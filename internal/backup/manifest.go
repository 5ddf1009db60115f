package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// Server version that wrote the archive
	ServerVersion string `json:"server_version"`

	// Content summary
	Counts EntityCounts `json:"counts"`

	// What's included
	IncludesCovers bool `json:"includes_covers"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	Users      int `json:"users"`
	Categories int `json:"categories"`
	Books      int `json:"books"`
	Reviews    int `json:"reviews"`
	Covers     int `json:"covers,omitempty"`
}
