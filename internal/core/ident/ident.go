package ident

import "strconv"

// ID is the stable identity of one registry object. IDs start at 1 and are
// never reused within a process, so an ID held after its object was removed
// is simply stale: every lookup fails instead of reaching another object.
type ID uint64

// IsZero reports whether the ID is the "no object" value.
func (id ID) IsZero() bool { return id == 0 }

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Allocator hands out strictly increasing IDs.
// Accessed only from the control goroutine; not safe for concurrent use.
type Allocator struct {
	last ID
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next issues the next ID.
func (a *Allocator) Next() ID {
	a.last++
	return a.last
}

// Last returns the most recently issued ID, or 0 if none was issued yet.
func (a *Allocator) Last() ID {
	return a.last
}
