package objects

import (
	"fmt"
	"iter"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"go.uber.org/zap"
)

// Direction picks which end of the table a selection query counts from.
type Direction int

const (
	Forward  Direction = iota // from the top of the table
	Backward                  // from the bottom of the table
)

// Select marks an object as selected. Selecting a selected object is a no-op.
// An object that is being removed cannot be selected.
func (r *Registry) Select(id ident.ID) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	if s.state != StateLive {
		return &NotFoundError{ID: id}
	}
	if r.selectSlot(s) {
		r.selectionChanged()
	}
	return nil
}

// Deselect clears an object's selection. Deselecting an unselected object is
// a no-op.
func (r *Registry) Deselect(id ident.ID) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	if r.deselectSlot(s) {
		r.selectionChanged()
	}
	return nil
}

// SelectAll selects every object. Observers see one change.
func (r *Registry) SelectAll() {
	changed := false
	for _, s := range r.slots {
		changed = r.selectSlot(s) || changed
	}
	if changed {
		r.selectionChanged()
	}
}

// DeselectAll clears the whole selection. Observers see one change.
func (r *Registry) DeselectAll() {
	if r.deselectAll() {
		r.selectionChanged()
	}
}

func (r *Registry) deselectAll() bool {
	changed := false
	for _, s := range r.slots {
		changed = r.deselectSlot(s) || changed
	}
	return changed
}

// CountSelected returns the number of selected objects of class c, or of
// all classes when c is nil.
func (r *Registry) CountSelected(c *classes.Class) int {
	if c == nil {
		return r.total
	}
	r.mustBeReadable(c)
	return r.perClass[c.ID]
}

// NthSelected returns the n-th (1-based) selected object of class c, counted
// in dir. A nil class matches every class. n == 0 asks for "the" object and
// behaves like 1 except for the wording of the error. A negative n is an
// argument error, not a missing selection.
func (r *Registry) NthSelected(c *classes.Class, n int, dir Direction) (ident.ID, error) {
	s, err := r.nthSelected(c, n, dir)
	if err != nil {
		return 0, err
	}
	return s.id, nil
}

// NameOfSelected is NthSelected returning a name: the plain name when a class
// is given, the full "<Class> <name>" form otherwise.
func (r *Registry) NameOfSelected(c *classes.Class, n int, dir Direction) (string, error) {
	s, err := r.nthSelected(c, n, dir)
	if err != nil {
		return "", err
	}
	if c != nil {
		return s.name, nil
	}
	return s.FullName(), nil
}

func (r *Registry) nthSelected(c *classes.Class, n int, dir Direction) (*Slot, error) {
	if n < 0 {
		return nil, fmt.Errorf("selection position must not be negative, got %d", n)
	}
	place := n
	if place == 0 {
		place = 1
	}
	seq := r.Filter(r.selectedOf(c))
	if dir == Backward {
		seq = r.Backward(r.selectedOf(c))
	}
	for s := range seq {
		place--
		if place == 0 {
			return s, nil
		}
	}
	return nil, &SelectionError{Class: c.String(), N: n}
}

// Selected iterates the selected objects of class c (nil: all) in table order.
func (r *Registry) Selected(c *classes.Class) iter.Seq[*Slot] {
	return r.Filter(r.selectedOf(c))
}

// IDsOfSelected returns the IDs of the selected objects of class c in table
// order.
func (r *Registry) IDsOfSelected(c *classes.Class) []ident.ID {
	ids := make([]ident.ID, 0, r.CountSelected(c))
	for s := range r.Selected(c) {
		ids = append(ids, s.id)
	}
	return ids
}

// SelectedData returns the data of the selected objects of class c: the
// operands of the next command.
func (r *Registry) SelectedData(c *classes.Class) []any {
	out := make([]any, 0, r.CountSelected(c))
	for s := range r.Selected(c) {
		out = append(out, s.data)
	}
	return out
}

// UpdateSelection commits the objects created by the last command: if there
// are any, they become exactly the selection.
func (r *Registry) UpdateSelection() {
	if r.pending == 0 {
		return
	}
	r.deselectAll()
	for _, s := range r.slots {
		if s.pending {
			r.selectSlot(s)
			s.pending = false
		}
	}
	r.pending = 0
	r.selectionChanged()
}

func (r *Registry) selectedOf(c *classes.Class) func(*Slot) bool {
	return func(s *Slot) bool { return s.selected && (c == nil || s.class == c) }
}

// selectSlot ignores slots that are being torn down: their counts were
// already released by remove.
func (r *Registry) selectSlot(s *Slot) bool {
	if s.selected || s.state != StateLive {
		return false
	}
	r.mustBeReadable(s.class)
	s.selected = true
	r.total++
	r.perClass[s.class.ID]++
	return true
}

func (r *Registry) deselectSlot(s *Slot) bool {
	if !s.selected {
		return false
	}
	s.selected = false
	r.total--
	r.perClass[s.class.ID]--
	if r.total < 0 || r.perClass[s.class.ID] < 0 {
		r.log.Fatal("selection count went negative",
			zap.Uint64("id", uint64(s.id)),
			zap.String("class", s.class.Name),
		)
	}
	return true
}

func (r *Registry) selectionChanged() {
	event.Publish(r.bus, event.SelectionChanged{Total: r.total})
}
