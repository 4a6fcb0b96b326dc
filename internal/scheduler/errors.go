package scheduler

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoDateSelected is returned by Save when no day is active.
	ErrNoDateSelected = errors.New("no date selected")

	// ErrNotFound is returned when an edit targets an id that is not in the
	// day's list.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidRecord wraps every validation failure.
	ErrInvalidRecord = errors.New("invalid appointment")
)

// ValidationError lists the offending fields by their JSON names.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return ErrInvalidRecord.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }
