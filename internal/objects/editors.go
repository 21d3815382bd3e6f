package objects

import (
	"fmt"

	"github.com/praatgo/shell/internal/core/ident"
	"go.uber.org/zap"
)

// AttachEditor associates editor e with object id and returns the editor slot
// index used. Attaching an editor that is already attached returns its
// existing index. One editor may be attached to several objects.
func (r *Registry) AttachEditor(id ident.ID, e Editor) (int, error) {
	s, err := r.Find(id)
	if err != nil {
		return 0, err
	}
	if s.state != StateLive {
		return 0, &NotFoundError{ID: id}
	}
	if i := s.editorIndex(e); i >= 0 {
		return i, nil
	}
	for i, have := range s.editors {
		if have == nil {
			s.editors[i] = e
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: object #%d already has %d editors", ErrEditorCapacityExceeded, id, len(s.editors))
}

// DetachEditor removes one association. Detaching an editor that is not
// attached is a no-op.
func (r *Registry) DetachEditor(id ident.ID, e Editor) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	if i := s.editorIndex(e); i >= 0 {
		s.editors[i] = nil
	}
	return nil
}

// DetachAll removes every association with e, whichever objects it edits.
func (r *Registry) DetachAll(e Editor) {
	for _, s := range r.slots {
		for i, have := range s.editors {
			if have != nil && have == e {
				s.editors[i] = nil
			}
		}
	}
}

// EditorDestroyed is called when an editor closes on its own (the user
// closed its window): the registry forgets it everywhere.
func (r *Registry) EditorDestroyed(e Editor) {
	r.DetachAll(e)
}

// EditorsOf returns a snapshot of the editors attached to id.
func (r *Registry) EditorsOf(id ident.ID) ([]Editor, error) {
	s, err := r.Find(id)
	if err != nil {
		return nil, err
	}
	return s.editorSnapshot(), nil
}

// NotifyDataChanged is called by source after it modified object id: every
// other editor of that object is told, synchronously, before this returns.
// Editors detached by an earlier notification in the same broadcast are
// skipped.
func (r *Registry) NotifyDataChanged(id ident.ID, source Editor) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	r.broadcast(s, source)
	return nil
}

// EditorChanged is NotifyDataChanged for every object source edits. An editor
// sharing several of those objects with source is told once.
func (r *Registry) EditorChanged(source Editor) {
	var targets []*Slot
	for _, s := range r.slots {
		if s.editorIndex(source) >= 0 {
			targets = append(targets, s)
		}
	}
	told := make(map[Editor]bool)
	for _, s := range targets {
		for _, e := range s.editorSnapshot() {
			if e == source || told[e] || s.editorIndex(e) < 0 {
				continue
			}
			told[e] = true
			r.notify(s, e)
		}
	}
}

// DataChanged is called when object id was modified outside any editor:
// all of its editors are told.
func (r *Registry) DataChanged(id ident.ID) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	r.broadcast(s, nil)
	return nil
}

func (r *Registry) broadcast(s *Slot, source Editor) {
	for _, e := range s.editorSnapshot() {
		if e == source || s.editorIndex(e) < 0 {
			continue
		}
		r.notify(s, e)
	}
}

func (r *Registry) notify(s *Slot, e Editor) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("editor panic during data-changed notification recovered",
				zap.Uint64("id", uint64(s.id)),
				zap.Any("panic", rec),
			)
		}
	}()
	e.DataChanged()
}

// destroyEditor runs e's destroy hook, turning errors and panics into a
// TeardownError.
func (r *Registry) destroyEditor(id ident.ID, e Editor) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &TeardownError{ID: id, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if derr := e.Destroy(); derr != nil {
		return &TeardownError{ID: id, Err: derr}
	}
	return nil
}
