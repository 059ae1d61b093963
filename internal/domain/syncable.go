package domain

import "time"

// Syncable provides the identity and timestamp fields shared by boards, lists, cards and users.
type Syncable struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch sets UpdatedAt. Call this whenever the entity changes.
func (s *Syncable) Touch(now time.Time) {
	s.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Syncable) InitTimestamps(now time.Time) {
	s.CreatedAt = now
	s.UpdatedAt = now
}
