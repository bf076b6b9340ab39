package utils

import "github.com/google/uuid"

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first eight hex digits of a random UUID, for
// human-facing identifiers where collisions are tolerable.
func ShortID() string {
	return uuid.NewString()[:8]
}
