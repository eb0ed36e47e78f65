// Package uuid generates run identifiers.
// UUID v7 is sortable by timestamp, so run history lists in creation order.
package uuid

import (
	guuid "github.com/google/uuid"
)

// UUID is a v7 identifier.
type UUID = guuid.UUID

// NewV7 returns a new UUID v7. If the random source fails it falls back
// to a v4 identifier rather than returning an error.
func NewV7() UUID {
	u, err := guuid.NewV7()
	if err != nil {
		return guuid.New()
	}
	return u
}

// NewString returns NewV7 in canonical text form.
func NewString() string {
	return NewV7().String()
}

// Parse validates and decodes a canonical UUID string.
func Parse(s string) (UUID, error) {
	return guuid.Parse(s)
}
