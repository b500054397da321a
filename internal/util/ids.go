package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewTurnID returns a short random identifier for a dialogue turn.
func NewTurnID() string {
	return "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// IsValidSessionID reports whether id parses as a UUID.
func IsValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
