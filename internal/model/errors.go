package model

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrDuplicateID   = errors.New("duplicate event id")
	ErrDuplicateSlug = errors.New("duplicate event slug")
)

// ValidationError describes one invalid field of one record in the events
// collection. Index is the record's position, or -1 for a standalone event.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error on event[%d].%s: %s", e.Index, e.Field, e.Message)
}
