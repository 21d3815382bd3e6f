package objects

import (
	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/core/ident"
)

// Editor is an independently owned view attached to one or more objects.
// The registry only references editors; it calls the hooks, editors call back
// through registry operations only.
type Editor interface {
	// DataChanged tells the editor another party modified an object it shows.
	DataChanged()
	// Destroy closes the editor. Errors and panics are logged, not propagated.
	Destroy() error
}

// Named is implemented by data objects that carry their own name.
type Named interface {
	Name() string
}

// State tracks a slot through the removal protocol.
type State int

const (
	StateLive State = iota
	StateEditorsDetaching
	StateFileFlushing
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "Live"
	case StateEditorsDetaching:
		return "EditorsDetaching"
	case StateFileFlushing:
		return "FileFlushing"
	case StateEvicted:
		return "Evicted"
	default:
		return "Unknown"
	}
}

// Slot is one live data object in the registry. The registry is its only
// owner; all mutation goes through Registry methods.
type Slot struct {
	id       ident.ID
	class    *classes.Class
	name     string
	data     any
	file     string
	selected bool
	pending  bool // inserted by a command that has not committed yet
	editors  []Editor
	state    State
}

func (s *Slot) ID() ident.ID          { return s.id }
func (s *Slot) Class() *classes.Class { return s.class }
func (s *Slot) Name() string          { return s.name }
func (s *Slot) Data() any             { return s.data }
func (s *Slot) File() string          { return s.file }
func (s *Slot) HasFile() bool         { return s.file != "" }
func (s *Slot) Selected() bool        { return s.selected }
func (s *Slot) CreationPending() bool { return s.pending }
func (s *Slot) State() State          { return s.state }

// FullName is the user-facing "<Class> <name>" form.
func (s *Slot) FullName() string {
	return s.class.Name + " " + s.name
}

func (s *Slot) editorIndex(e Editor) int {
	for i, have := range s.editors {
		if have != nil && have == e {
			return i
		}
	}
	return -1
}

func (s *Slot) editorSnapshot() []Editor {
	out := make([]Editor, 0, len(s.editors))
	for _, e := range s.editors {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (s *Slot) clear() {
	s.name = ""
	s.data = nil
	s.file = ""
	s.selected = false
	s.pending = false
	for i := range s.editors {
		s.editors[i] = nil
	}
	s.state = StateEvicted
}
