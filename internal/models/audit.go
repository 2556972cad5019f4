package models

import (
	"encoding/json"
	"time"
)

// AuditRecord is one row of the server-side mutation log.
type AuditRecord struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	ElementType string          `json:"element_type"`
	ElementID   string          `json:"element_id"`
	Action      string          `json:"action"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
