package services

import (
	"time"

	"github.com/google/uuid"
)

// newID returns a new UUID string.
var newID = func() string {
	return uuid.New().String()
}

// timeNow returns the current time in UTC (can be replaced in tests).
var timeNow = func() time.Time {
	return time.Now().UTC()
}

// optionalString returns nil for an empty string.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
