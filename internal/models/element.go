// Package models holds the data types shared by the sync client and the
// element-store server.
package models

import (
	"encoding/json"
	"time"
)

// Element is a generically-typed, owner-scoped named value. Identity is the
// pair (ElementType, ElementID) within one owner; at most one active element
// exists per identity.
type Element struct {
	OwnerID     string          `json:"owner_id,omitempty"`
	ElementType string          `json:"element_type"`
	ElementID   string          `json:"element_id"`
	Value       json.RawMessage `json:"value"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Version     int64           `json:"version"`
	IsActive    bool            `json:"is_active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Key returns the canonical "type:id" identity string.
func (e *Element) Key() string {
	return e.ElementType + ":" + e.ElementID
}

// DecodeValue unmarshals the stored value into v.
func (e *Element) DecodeValue(v any) error {
	return json.Unmarshal(e.Value, v)
}

// ElementUpdate is one item of a bulk upsert.
type ElementUpdate struct {
	ElementType string          `json:"element_type"`
	ElementID   string          `json:"element_id"`
	Value       json.RawMessage `json:"value"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}
