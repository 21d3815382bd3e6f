package editor

import (
	"bytes"
	"testing"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/config"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"github.com/praatgo/shell/internal/objects"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	table = classes.Default()
	sound = table.MustLookup("Sound")
	pitch = table.MustLookup("Pitch")
)

func setup(t *testing.T, maxEditors int) (*objects.Registry, *Manager, *bytes.Buffer) {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := objects.New(config.ObjectsConfig{MaxObjects: 10, MaxEditors: maxEditors}, event.NewBus(), log)
	var out bytes.Buffer
	return reg, NewManager(reg, &out, log), &out
}

func insert(t *testing.T, reg *objects.Registry, c *classes.Class, name string) ident.ID {
	t.Helper()
	id, err := reg.Insert(c, name, nil)
	require.NoError(t, err)
	return id
}

func TestOpenAttachesToEveryObject(t *testing.T) {
	reg, m, _ := setup(t, 2)
	a := insert(t, reg, sound, "a")
	b := insert(t, reg, pitch, "b")

	c, err := m.Open(a, b)
	require.NoError(t, err)
	require.Equal(t, "Sound a & Pitch b", c.Title())
	require.Equal(t, []ident.ID{a, b}, c.IDs())
	for _, id := range []ident.ID{a, b} {
		eds, err := reg.EditorsOf(id)
		require.NoError(t, err)
		require.Equal(t, []objects.Editor{c}, eds)
	}

	_, err = m.Open()
	require.Error(t, err)
	_, err = m.Open(a, 99)
	require.ErrorIs(t, err, objects.ErrNotFound)
}

func TestConsoleKeepsItsOwnIDs(t *testing.T) {
	reg, m, _ := setup(t, 2)
	a := insert(t, reg, sound, "a")
	b := insert(t, reg, pitch, "b")

	ids := []ident.ID{a, b}
	c, err := m.Open(ids...)
	require.NoError(t, err)
	ids[0] = 99
	require.Equal(t, []ident.ID{a, b}, c.IDs())
}

func TestOpenRollsBackOnCapacity(t *testing.T) {
	reg, m, _ := setup(t, 1)
	a := insert(t, reg, sound, "a")
	b := insert(t, reg, sound, "b")
	_, err := m.Open(b)
	require.NoError(t, err)

	_, err = m.Open(a, b)
	require.ErrorIs(t, err, objects.ErrEditorCapacityExceeded)
	eds, _ := reg.EditorsOf(a)
	require.Empty(t, eds, "partial attachment is undone")
}

func TestChangedNotifiesOtherEditors(t *testing.T) {
	reg, m, out := setup(t, 3)
	a := insert(t, reg, sound, "a")
	src, err := m.Open(a)
	require.NoError(t, err)
	_, err = m.Open(a)
	require.NoError(t, err)
	out.Reset()

	m.Changed(src)
	require.Equal(t, "Sound a: data changed\n", out.String())

	require.NoError(t, reg.DataChanged(a))
	require.Equal(t, "Sound a: data changed\nSound a: data changed\nSound a: data changed\n", out.String())
}

func TestCloseForgetsThenDestroys(t *testing.T) {
	reg, m, out := setup(t, 2)
	a := insert(t, reg, sound, "a")
	c, err := m.Open(a)
	require.NoError(t, err)

	require.NoError(t, m.Close(c))
	require.True(t, c.Closed())
	require.Equal(t, "Sound a: closed\n", out.String())
	eds, _ := reg.EditorsOf(a)
	require.Empty(t, eds)

	require.ErrorIs(t, m.Close(c), ErrClosed)
}

func TestRemovingObjectClosesConsole(t *testing.T) {
	reg, m, out := setup(t, 2)
	a := insert(t, reg, sound, "a")
	c, err := m.Open(a)
	require.NoError(t, err)

	require.NoError(t, reg.Remove(a))
	require.True(t, c.Closed())
	require.Equal(t, "Sound a: closed\n", out.String())
	c.DataChanged()
	require.Equal(t, "Sound a: closed\n", out.String(), "a closed console stays silent")
}

func TestPublishSelectsNewObject(t *testing.T) {
	reg, m, _ := setup(t, 2)
	a := insert(t, reg, sound, "a")
	c, err := m.Open(a)
	require.NoError(t, err)

	id := m.Publish(c, pitch, "extracted", nil)
	require.NotZero(t, id)
	require.Equal(t, []ident.ID{id}, reg.IDsOfSelected(nil))
}
