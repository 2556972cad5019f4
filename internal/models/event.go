package models

import "time"

// Change actions as they appear in audit rows and realtime notifications.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// ChangeEvent describes one element mutation. Events are ephemeral: they
// are produced and consumed synchronously through the change bus and never
// persisted by the client (the server-side audit log keeps a superset).
type ChangeEvent struct {
	ElementType string    `json:"element_type"`
	ElementID   string    `json:"element_id"`
	Action      string    `json:"action"`
	OldValue    any       `json:"old_value,omitempty"`
	NewValue    any       `json:"new_value,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChangeNotification is the wire form pushed over the realtime channel
// whenever a watched element changes.
type ChangeNotification struct {
	ElementType string    `json:"element_type"`
	ElementID   string    `json:"element_id"`
	Action      string    `json:"action"`
	Data        any       `json:"data,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
