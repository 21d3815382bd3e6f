package event

import "github.com/praatgo/shell/internal/core/ident"

// Registry events. Observers use them to refresh dependent views.

type ObjectInserted struct {
	ID       ident.ID
	FullName string
	Position int
}

type ObjectRemoved struct {
	ID      ident.ID
	Visibly bool
}

type ObjectRenamed struct {
	ID       ident.ID
	FullName string
}

// SelectionChanged reports the new grand total after a selection mutation.
type SelectionChanged struct {
	Total int
}
