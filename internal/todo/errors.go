package todo

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("item not found")
	ErrUnknownStudent = errors.New("unknown student")
	ErrNotPersisted   = errors.New("item not persisted")
)

// ValidationError reports client supplied data that cannot form an item.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
