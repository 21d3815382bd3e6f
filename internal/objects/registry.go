package objects

import (
	"fmt"
	"iter"
	"slices"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/config"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"go.uber.org/zap"
)

// FileFlusher decides what happens to a file-bound object's backing store
// when the object is removed ("save on forget"). It sees the slot while the
// slot is still in the table.
type FileFlusher interface {
	Flush(s *Slot) error
}

// FlushFunc adapts a function to FileFlusher.
type FlushFunc func(s *Slot) error

func (f FlushFunc) Flush(s *Slot) error { return f(s) }

// Registry owns every live data object of the session: the ordered object
// table, the selection counts, and the editor associations.
// Accessed only from the control goroutine; not safe for concurrent use.
type Registry struct {
	cfg      config.ObjectsConfig
	ids      *ident.Allocator
	slots    []*Slot
	byID     map[ident.ID]*Slot
	total    int         // selected slots
	perClass map[int]int // class ID → selected slots of that class
	pending  int         // slots with creation pending
	flusher  FileFlusher
	bus      *event.Bus
	log      *zap.Logger
}

// New creates an empty registry. bus may be nil when nobody observes it.
func New(cfg config.ObjectsConfig, bus *event.Bus, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		ids:      ident.NewAllocator(),
		slots:    make([]*Slot, 0, 64),
		byID:     make(map[ident.ID]*Slot, 64),
		perClass: make(map[int]int),
		bus:      bus,
		log:      log,
	}
}

// SetFileFlusher installs the save-on-forget policy for file-bound objects.
func (r *Registry) SetFileFlusher(f FileFlusher) {
	r.flusher = f
}

// Len returns the number of objects in the table.
func (r *Registry) Len() int {
	return len(r.slots)
}

// LastID returns the most recently issued object ID.
func (r *Registry) LastID() ident.ID {
	return r.ids.Last()
}

// Find returns the live slot for id.
func (r *Registry) Find(id ident.ID) (*Slot, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// Position returns the 1-based table position of id.
func (r *Registry) Position(id ident.ID) (int, error) {
	for i, s := range r.slots {
		if s.id == id {
			return i + 1, nil
		}
	}
	return 0, &NotFoundError{ID: id}
}

// All iterates the table front to back. The sequence is lazy and can be
// restarted; inserting or removing objects while iterating is not allowed.
func (r *Registry) All() iter.Seq[*Slot] {
	return r.Filter(nil)
}

// Filter iterates the slots matching pred front to back; nil matches all.
func (r *Registry) Filter(pred func(*Slot) bool) iter.Seq[*Slot] {
	return func(yield func(*Slot) bool) {
		for _, s := range r.slots {
			if pred != nil && !pred(s) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Backward iterates the slots matching pred back to front; nil matches all.
func (r *Registry) Backward(pred func(*Slot) bool) iter.Seq[*Slot] {
	return func(yield func(*Slot) bool) {
		for i := len(r.slots) - 1; i >= 0; i-- {
			s := r.slots[i]
			if pred != nil && !pred(s) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// OfClass matches slots of class c; a nil class matches every slot.
func OfClass(c *classes.Class) func(*Slot) bool {
	return func(s *Slot) bool { return c == nil || s.class == c }
}

// Insert adds a new object at the bottom of the table. It stays unselected
// and creation-pending until UpdateSelection commits it. The identity
// allocator does not advance when the table is full.
func (r *Registry) Insert(class *classes.Class, name string, data any) (ident.ID, error) {
	return r.InsertWithFile(class, "", name, data)
}

// InsertWithFile is Insert for an object read from (or bound to) file.
func (r *Registry) InsertWithFile(class *classes.Class, file, name string, data any) (ident.ID, error) {
	if err := r.checkCapacity(1); err != nil {
		return 0, err
	}
	return r.insert(class, file, givenName(name, data), data), nil
}

// Item is one element of a collection being unpacked into the table.
type Item struct {
	Class *classes.Class
	Name  string
	Data  any
}

// InsertCollection inserts every item as its own object. Items without a
// name of their own are named after the collection. Either all items are
// inserted or, when they do not fit, none.
func (r *Registry) InsertCollection(items []Item, name string) ([]ident.ID, error) {
	if err := r.checkCapacity(len(items)); err != nil {
		return nil, err
	}
	ids := make([]ident.ID, 0, len(items))
	for _, it := range items {
		n := it.Name
		if n == "" {
			if named, ok := it.Data.(Named); ok && named.Name() != "" {
				n = named.Name()
			} else {
				n = name
			}
		}
		ids = append(ids, r.insert(it.Class, "", givenName(n, it.Data), it.Data))
	}
	return ids, nil
}

func (r *Registry) checkCapacity(n int) error {
	if len(r.slots)+n > r.cfg.MaxObjects {
		return fmt.Errorf("%w: the object list cannot contain more than %d objects; remove some objects",
			ErrCapacityExceeded, r.cfg.MaxObjects)
	}
	return nil
}

func (r *Registry) insert(class *classes.Class, file, name string, data any) ident.ID {
	r.mustBeReadable(class)
	s := &Slot{
		id:      r.ids.Next(),
		class:   class,
		name:    name,
		data:    data,
		file:    file,
		pending: true,
		editors: make([]Editor, r.cfg.MaxEditors),
	}
	r.slots = append(r.slots, s)
	r.byID[s.id] = s
	r.pending++
	r.log.Debug("object inserted",
		zap.Uint64("id", uint64(s.id)),
		zap.String("name", s.FullName()),
		zap.Bool("file", s.HasFile()),
	)
	event.Publish(r.bus, event.ObjectInserted{ID: s.id, FullName: s.FullName(), Position: len(r.slots)})
	return s.id
}

// Rename changes the display name of an object. Names are not unique.
func (r *Registry) Rename(id ident.ID, name string) error {
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	cleaned := CleanName(name)
	if cleaned == "" {
		cleaned = "untitled"
	}
	s.name = cleaned
	event.Publish(r.bus, event.ObjectRenamed{ID: id, FullName: s.FullName()})
	return nil
}

// PendingCount returns the number of objects inserted by a command that has
// not committed yet.
func (r *Registry) PendingCount() int {
	return r.pending
}

// Close removes every object, back to front, without selection side effects.
func (r *Registry) Close() {
	for _, s := range slices.Collect(r.Backward(nil)) {
		r.remove(s, false)
	}
}

// mustBeReadable aborts on a class without a registered identity: the
// per-class counts would be corrupted otherwise.
func (r *Registry) mustBeReadable(class *classes.Class) {
	if class == nil || class.ID <= 0 {
		r.log.Fatal("no sequential unique ID for class", zap.Stringer("class", class))
	}
}

func givenName(name string, data any) string {
	if name != "" {
		name = stripExtension(name)
	} else if named, ok := data.(Named); ok {
		name = named.Name()
	}
	name = CleanName(name)
	if name == "" {
		return "untitled"
	}
	return name
}
