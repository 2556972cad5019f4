package models

import "time"

// ShareLink is a capability granting read access to one element without a
// session. A link is valid iff it exists, is active, and now < ExpiresAt;
// expiry at exactly ExpiresAt counts as expired.
type ShareLink struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	ElementType string    `json:"element_type"`
	ElementID   string    `json:"element_id"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsActive    bool      `json:"is_active"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsValidAt reports whether the link grants access at the given instant.
// The check is pure; recording the access is a separate operation.
func (s *ShareLink) IsValidAt(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
