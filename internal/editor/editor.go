// Package editor provides text-mode editors that view registry objects and
// the callbacks through which they report changes back to the registry.
package editor

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/core/ident"
	"github.com/praatgo/shell/internal/objects"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("editor closed")

// Console is an editor that reports what happens to its objects as lines
// on a writer. One console may edit several objects at once.
type Console struct {
	title  string
	ids    []ident.ID
	w      io.Writer
	closed bool
}

func (c *Console) Title() string   { return c.title }
func (c *Console) Closed() bool    { return c.closed }
func (c *Console) IDs() []ident.ID { return append([]ident.ID(nil), c.ids...) }

func (c *Console) DataChanged() {
	if c.closed {
		return
	}
	fmt.Fprintf(c.w, "%s: data changed\n", c.title)
}

func (c *Console) Destroy() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	fmt.Fprintf(c.w, "%s: closed\n", c.title)
	return nil
}

// Manager opens consoles on registry objects and routes their callbacks.
type Manager struct {
	reg *objects.Registry
	w   io.Writer
	log *zap.Logger
}

func NewManager(reg *objects.Registry, w io.Writer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{reg: reg, w: w, log: log}
}

// Open attaches a new console to every listed object. Either all
// attachments succeed or none remain.
func (m *Manager) Open(ids ...ident.ID) (*Console, error) {
	if len(ids) == 0 {
		return nil, errors.New("open editor: no objects")
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		s, err := m.reg.Find(id)
		if err != nil {
			return nil, fmt.Errorf("open editor: %w", err)
		}
		names = append(names, s.FullName())
	}

	c := &Console{title: strings.Join(names, " & "), ids: slices.Clone(ids), w: m.w}
	for _, id := range ids {
		if _, err := m.reg.AttachEditor(id, c); err != nil {
			m.reg.DetachAll(c)
			return nil, fmt.Errorf("open editor: %w", err)
		}
	}
	m.log.Debug("editor opened", zap.String("title", c.title))
	return c, nil
}

// Close is the user closing the console window: the registry forgets it
// first, then it is torn down.
func (m *Manager) Close(c *Console) error {
	m.reg.EditorDestroyed(c)
	if err := c.Destroy(); err != nil {
		return fmt.Errorf("close editor %q: %w", c.title, err)
	}
	return nil
}

// Changed reports that c modified the data of its objects. Every other
// editor of those objects is told to refresh.
func (m *Manager) Changed(c *Console) {
	m.reg.EditorChanged(c)
}

// Publish hands a new object produced by c to the registry and makes it the
// selection. Failures are logged and dropped.
func (m *Manager) Publish(c *Console, class *classes.Class, name string, data any) ident.ID {
	id := m.reg.Publish(class, name, data)
	if id != 0 {
		m.log.Debug("editor published object",
			zap.String("editor", c.title), zap.Stringer("id", id))
	}
	return id
}
