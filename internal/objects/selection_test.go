package objects

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"github.com/stretchr/testify/require"
)

func TestNthSelectedScenario(t *testing.T) {
	r, _ := newRegistry(t, 10, 2)
	s1 := mustInsert(t, r, classSound, "one")
	mustInsert(t, r, classSound, "two")
	s3 := mustInsert(t, r, classSound, "three")

	require.NoError(t, r.Select(s1))
	require.NoError(t, r.Select(s3))

	id, err := r.NthSelected(classSound, 2, Forward)
	require.NoError(t, err)
	require.Equal(t, s3, id)

	_, err = r.NthSelected(classSound, 3, Forward)
	require.ErrorIs(t, err, ErrNoSuchSelection)
	var se *SelectionError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "Sound", se.Class)
	require.Equal(t, 3, se.N)
	require.Equal(t, "no Sound #3 selected", err.Error())

	id, err = r.NthSelected(classSound, 1, Backward)
	require.NoError(t, err)
	require.Equal(t, s3, id)

	id, err = r.NthSelected(nil, 0, Forward)
	require.NoError(t, err)
	require.Equal(t, s1, id)

	_, err = r.NthSelected(classPitch, 0, Forward)
	require.EqualError(t, err, "no Pitch selected")
	_, err = r.NthSelected(nil, 5, Backward)
	require.EqualError(t, err, "no object #5 selected")

	_, err = r.NthSelected(classSound, -3, Forward)
	require.EqualError(t, err, "selection position must not be negative, got -3")
	require.NotErrorIs(t, err, ErrNoSuchSelection)
}

func TestSelectIsIdempotent(t *testing.T) {
	r, bus := newRegistry(t, 10, 2)
	var changes []int
	event.Subscribe(bus, func(e event.SelectionChanged) { changes = append(changes, e.Total) })

	id := mustInsert(t, r, classSound, "a")
	require.NoError(t, r.Select(id))
	require.NoError(t, r.Select(id))
	require.Equal(t, 1, r.CountSelected(nil))
	require.Equal(t, 1, r.CountSelected(classSound))
	require.Zero(t, r.CountSelected(classPitch))

	require.NoError(t, r.Deselect(id))
	require.NoError(t, r.Deselect(id))
	require.Zero(t, r.CountSelected(nil))
	require.Equal(t, []int{1, 0}, changes)
}

func TestSelectAllDeselectAllPublishOnce(t *testing.T) {
	r, bus := newRegistry(t, 10, 2)
	var changes []int
	event.Subscribe(bus, func(e event.SelectionChanged) { changes = append(changes, e.Total) })

	mustInsert(t, r, classSound, "a")
	mustInsert(t, r, classPitch, "b")
	mustInsert(t, r, classSound, "c")

	r.SelectAll()
	require.Equal(t, 3, r.CountSelected(nil))
	require.Equal(t, 2, r.CountSelected(classSound))
	require.Equal(t, 1, r.CountSelected(classPitch))

	r.DeselectAll()
	r.DeselectAll()
	require.Zero(t, r.CountSelected(nil))
	require.Equal(t, []int{3, 0}, changes)
	requireCountsConsistent(t, r)
}

func TestSelectedQueries(t *testing.T) {
	r, _ := newRegistry(t, 10, 2)
	a, err := r.Insert(classSound, "a", "data-a")
	require.NoError(t, err)
	b, err := r.Insert(classPitch, "b", "data-b")
	require.NoError(t, err)
	c, err := r.Insert(classSound, "c", "data-c")
	require.NoError(t, err)
	r.SelectAll()
	require.NoError(t, r.Deselect(a))

	require.Equal(t, []ident.ID{b, c}, r.IDsOfSelected(nil))
	require.Equal(t, []ident.ID{c}, r.IDsOfSelected(classSound))
	require.Equal(t, []any{"data-b", "data-c"}, r.SelectedData(nil))

	name, err := r.NameOfSelected(classSound, 1, Forward)
	require.NoError(t, err)
	require.Equal(t, "c", name)
	name, err = r.NameOfSelected(nil, 1, Forward)
	require.NoError(t, err)
	require.Equal(t, "Pitch b", name)
	_, err = r.NameOfSelected(classSound, 2, Forward)
	require.ErrorIs(t, err, ErrNoSuchSelection)
}

func TestUpdateSelectionCommitsPendingObjects(t *testing.T) {
	r, bus := newRegistry(t, 10, 2)
	old := mustInsert(t, r, classSound, "old")
	r.UpdateSelection()
	require.Equal(t, []ident.ID{old}, r.IDsOfSelected(nil))
	require.Zero(t, r.PendingCount())

	var changes int
	event.Subscribe(bus, func(event.SelectionChanged) { changes++ })

	n1 := mustInsert(t, r, classPitch, "n1")
	n2 := mustInsert(t, r, classSound, "n2")
	require.Equal(t, 2, r.PendingCount())
	r.UpdateSelection()

	require.Equal(t, []ident.ID{n1, n2}, r.IDsOfSelected(nil))
	require.Zero(t, r.PendingCount())
	require.Equal(t, 1, changes)
	requireCountsConsistent(t, r)

	// nothing pending: the selection is left alone
	r.UpdateSelection()
	require.Equal(t, []ident.ID{n1, n2}, r.IDsOfSelected(nil))
	require.Equal(t, 1, changes)
}

func TestRemovingPendingObjectKeepsPendingCount(t *testing.T) {
	r, _ := newRegistry(t, 10, 2)
	a := mustInsert(t, r, classSound, "a")
	mustInsert(t, r, classSound, "b")
	require.NoError(t, r.Remove(a))
	require.Equal(t, 1, r.PendingCount())
	requireCountsConsistent(t, r)
}

func TestSelectionCountsUnderRandomOperations(t *testing.T) {
	r, _ := newRegistry(t, 50, 2)
	rng := rand.New(rand.NewSource(42))
	cls := testClasses.All()[:4]

	pick := func() (ident.ID, bool) {
		if r.Len() == 0 {
			return 0, false
		}
		n := rng.Intn(r.Len())
		for s := range r.All() {
			if n == 0 {
				return s.ID(), true
			}
			n--
		}
		return 0, false
	}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(8) {
		case 0, 1:
			_, err := r.Insert(cls[rng.Intn(len(cls))], "x", nil)
			if err != nil {
				require.ErrorIs(t, err, ErrCapacityExceeded)
			}
		case 2:
			if id, ok := pick(); ok {
				require.NoError(t, r.Remove(id))
			}
		case 3:
			if id, ok := pick(); ok {
				require.NoError(t, r.Select(id))
			}
		case 4:
			if id, ok := pick(); ok {
				require.NoError(t, r.Deselect(id))
			}
		case 5:
			r.UpdateSelection()
		case 6:
			if rng.Intn(4) == 0 {
				r.DeselectAll()
			} else {
				r.SelectAll()
			}
		case 7:
			if id, ok := pick(); ok {
				require.NoError(t, r.RemoveQuietly(id))
			}
		}
		requireCountsConsistent(t, r)
	}
}
