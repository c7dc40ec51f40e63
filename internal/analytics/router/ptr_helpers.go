package router

import (
	"strings"

	"github.com/google/uuid"
)

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// uuidPtr returns the string form of id, or nil for the zero UUID.
func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func int64Ptr(value int64) *int64 {
	return &value
}
