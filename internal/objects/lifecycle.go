package objects

import (
	"slices"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"go.uber.org/zap"
)

// Remove takes an object out of the table: deselect, destroy its editors,
// flush its file binding, evict. Afterwards id is permanently invalid.
func (r *Registry) Remove(id ident.ID) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	r.remove(s, true)
	return nil
}

// RemoveQuietly is Remove without publishing selection or removal events,
// for exit-time cleanup where no view needs refreshing.
func (r *Registry) RemoveQuietly(id ident.ID) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	r.remove(s, false)
	return nil
}

// RemoveFileBound removes every file-bound object, back to front, quietly.
// It returns the number of objects removed.
func (r *Registry) RemoveFileBound() int {
	// Collected first: destroy hooks may remove objects and shift positions.
	victims := slices.Collect(r.Backward((*Slot).HasFile))
	n := 0
	for _, s := range victims {
		if s.state != StateLive {
			continue
		}
		r.log.Debug("removing object based on file",
			zap.Uint64("id", uint64(s.id)),
			zap.String("file", s.file),
		)
		r.remove(s, false)
		n++
	}
	return n
}

func (r *Registry) remove(s *Slot, visibly bool) {
	if s.state != StateLive {
		// already being torn down further up the stack
		return
	}
	if s.pending {
		s.pending = false
		r.pending--
	}
	// Counts stay exact either way; only the notification is visible.
	if r.deselectSlot(s) && visibly {
		r.selectionChanged()
	}

	// Editors go before the data so none of them sees a half-removed object.
	s.state = StateEditorsDetaching
	for _, e := range s.editorSnapshot() {
		r.DetachAll(e)
		if err := r.destroyEditor(s.id, e); err != nil {
			r.log.Warn("editor teardown failed, continuing removal",
				zap.Uint64("id", uint64(s.id)),
				zap.Error(err),
			)
		}
	}

	s.state = StateFileFlushing
	if s.HasFile() && r.flusher != nil {
		if err := r.flusher.Flush(s); err != nil {
			r.log.Warn("file flush on removal failed",
				zap.Uint64("id", uint64(s.id)),
				zap.String("file", s.file),
				zap.Error(err),
			)
		}
	}

	r.evict(s)
	r.log.Debug("object removed", zap.Uint64("id", uint64(s.id)))
	if visibly {
		event.Publish(r.bus, event.ObjectRemoved{ID: s.id, Visibly: true})
	}
}

func (r *Registry) evict(s *Slot) {
	if i := slices.Index(r.slots, s); i >= 0 {
		r.slots = slices.Delete(r.slots, i, i+1)
	}
	delete(r.byID, s.id)
	s.clear()
}

// Publish inserts an object produced by an editor and commits it as the new
// selection. A full table is logged and the object dropped; 0 is returned.
func (r *Registry) Publish(class *classes.Class, name string, data any) ident.ID {
	id, err := r.Insert(class, name, data)
	if err != nil {
		r.log.Warn("publication not accepted", zap.Stringer("class", class), zap.Error(err))
	}
	r.UpdateSelection()
	return id
}
