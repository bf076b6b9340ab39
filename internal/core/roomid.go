package core

import (
	"regexp"
	"strings"
)

var roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{6,8}$`)

// NormalizeRoomID trims surrounding whitespace and upper-cases the id.
func NormalizeRoomID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateRoomID normalizes raw and checks it against the room id alphabet.
func ValidateRoomID(raw string) (string, error) {
	id := NormalizeRoomID(raw)
	if !roomIDPattern.MatchString(id) {
		return "", coreError(ErrCodeInvalidRoom, "room id must be 6-8 letters or digits")
	}
	return id, nil
}
