// Package domain contains the core business entities for the Shelfmark catalog.
package domain

import "time"

// Stamped provides the identity and timestamp fields shared by all entities.
// CreatedAt is set once on create; UpdatedAt is refreshed on every mutation.
type Stamped struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Stamped) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (s *Stamped) Touch() {
	s.UpdatedAt = time.Now()
}
