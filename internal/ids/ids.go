package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a random UUID string, the primary key format of every table.
func New() string {
	return uuid.NewString()
}

// Sortable returns a K-sortable id for object keys and queue message ids.
func Sortable() string {
	return ksuid.New().String()
}

// Valid reports whether s is a well-formed UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
