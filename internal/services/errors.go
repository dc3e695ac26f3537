package services

import (
	"fmt"
	"strings"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/postlimit"
)

// PostingLimitError is returned when a user attempts to create a listing while
// both posting slots are occupied. It carries the full slot status so handlers
// can tell the user when the next slot frees.
type PostingLimitError struct {
	Status postlimit.Status
}

func (e *PostingLimitError) Error() string {
	return fmt.Sprintf("posting limit reached: %d of %d slots in use, next slot frees in %d day(s)",
		e.Status.PostsUsed, e.Status.PostsUsed+e.Status.PostsAvailable, e.Status.DaysUntilSlot1Unlock)
}

// ValidationError aggregates per-field validation failures for a listing
// submission. Handlers render Fields as-is in a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
