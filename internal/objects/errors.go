package objects

import (
	"errors"
	"fmt"

	"github.com/praatgo/shell/internal/core/ident"
)

var (
	// ErrCapacityExceeded: the object table or an object's editor slots are full.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrEditorCapacityExceeded is the editor-slot flavour of ErrCapacityExceeded.
	ErrEditorCapacityExceeded = fmt.Errorf("editor %w", ErrCapacityExceeded)
	ErrNotFound               = errors.New("object not found")
	ErrNoSuchSelection        = errors.New("no such selection")
	ErrEditorTeardown         = errors.New("editor teardown failed")
)

// NotFoundError reports a stale or unknown object ID.
type NotFoundError struct {
	ID ident.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object #%d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SelectionError reports a selection query that matched too few objects.
// N is the requested 1-based index, 0 when the caller asked for "the" object.
type SelectionError struct {
	Class string
	N     int
}

func (e *SelectionError) Error() string {
	if e.N == 0 {
		return fmt.Sprintf("no %s selected", e.Class)
	}
	return fmt.Sprintf("no %s #%d selected", e.Class, e.N)
}

func (e *SelectionError) Is(target error) bool { return target == ErrNoSuchSelection }

// TeardownError wraps a failure raised by an editor's destroy hook.
type TeardownError struct {
	ID  ident.ID
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("destroy editor of object #%d: %v", e.ID, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

func (e *TeardownError) Is(target error) bool { return target == ErrEditorTeardown }
