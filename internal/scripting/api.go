package scripting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/core/ident"
	"github.com/praatgo/shell/internal/editor"
	"github.com/praatgo/shell/internal/objects"
	"github.com/praatgo/shell/internal/prefs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// command is a praat module function. A returned error is raised in Lua.
type command func(L *lua.LState) (int, error)

func (e *Engine) register() {
	cmds := map[string]command{
		"new":                e.cmdNew,
		"new_collection":     e.cmdNewCollection,
		"select":             e.cmdSelect,
		"plus":               e.cmdPlus,
		"minus":              e.cmdMinus,
		"select_all":         e.cmdSelectAll,
		"deselect_all":       e.cmdDeselectAll,
		"selected":           e.cmdSelected,
		"selected_ids":       e.cmdSelectedIDs,
		"selected_name":      e.cmdSelectedName,
		"number_of_selected": e.cmdNumberOfSelected,
		"objects":            e.cmdObjects,
		"remove":             e.cmdRemove,
		"rename":             e.cmdRename,
		"data":               e.cmdData,
		"data_changed":       e.cmdDataChanged,
		"update_selection":   e.cmdUpdateSelection,
		"edit":               e.cmdEdit,
		"close_editor":       e.cmdCloseEditor,
		"editor_changed":     e.cmdEditorChanged,
		"editor_publish":     e.cmdEditorPublish,
		"combined_name":      e.cmdCombinedName,
		"default_file_name":  e.cmdDefaultFileName,
		"pref":               e.cmdPref,
		"set_pref":           e.cmdSetPref,
	}
	for kind := prefs.AddMenu; kind <= prefs.ShowAction; kind++ {
		cmds[buttonCommandName(kind)] = e.buttonCommand(kind)
	}

	mod := e.vm.NewTable()
	for name, fn := range cmds {
		mod.RawSetString(name, e.vm.NewFunction(e.wrap(name, fn)))
	}
	e.vm.SetGlobal("praat", mod)
	e.vm.SetGlobal("print", e.vm.NewFunction(e.print))
}

// wrap turns a command into a Lua function. Errors and Go panics become
// Lua errors so a protected call reports them.
func (e *Engine) wrap(name string, fn command) lua.LGFunction {
	return func(L *lua.LState) (n int) {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*lua.ApiError); ok {
						panic(r)
					}
					e.log.Error("panic in lua command",
						zap.String("command", name), zap.Any("panic", r), zap.Stack("stack"))
					err = fmt.Errorf("internal error: %v", r)
				}
			}()
			n, err = fn(L)
		}()
		if err != nil {
			L.RaiseError("%s: %v", name, err)
		}
		return n
	}
}

func (e *Engine) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(e.env.Out, strings.Join(parts, "\t"))
	return 0
}

// new(class, name [, data [, file]]) -> id
func (e *Engine) cmdNew(L *lua.LState) (int, error) {
	c, err := e.argClass(L, 1)
	if err != nil {
		return 0, err
	}
	name := L.OptString(2, "")
	data := L.Get(3)
	file := L.OptString(4, "")
	var id ident.ID
	if file != "" {
		id, err = e.env.Registry.InsertWithFile(c, file, name, dataOf(data))
	} else {
		id, err = e.env.Registry.Insert(c, name, dataOf(data))
	}
	if err != nil {
		return 0, err
	}
	e.env.Registry.UpdateSelection()
	L.Push(lID(id))
	return 1, nil
}

// new_collection(name, {class, name}...) -> {ids}
func (e *Engine) cmdNewCollection(L *lua.LState) (int, error) {
	name := L.CheckString(1)
	var items []objects.Item
	for i := 2; i <= L.GetTop(); i++ {
		t := L.CheckTable(i)
		c, err := e.lookupClass(lStr(t, 1))
		if err != nil {
			return 0, err
		}
		items = append(items, objects.Item{Class: c, Name: lStr(t, 2), Data: dataOf(t.RawGetInt(3))})
	}
	ids, err := e.env.Registry.InsertCollection(items, name)
	if err != nil {
		return 0, err
	}
	e.env.Registry.UpdateSelection()
	L.Push(e.idTable(ids))
	return 1, nil
}

// select(id...) replaces the selection.
func (e *Engine) cmdSelect(L *lua.LState) (int, error) {
	ids, err := argIDs(L, 1)
	if err != nil {
		return 0, err
	}
	if err := e.checkIDs(ids); err != nil {
		return 0, err
	}
	e.env.Registry.DeselectAll()
	for _, id := range ids {
		if err := e.env.Registry.Select(id); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// plus(id...) adds to the selection.
func (e *Engine) cmdPlus(L *lua.LState) (int, error) {
	return e.eachID(L, e.env.Registry.Select)
}

// minus(id...) removes from the selection.
func (e *Engine) cmdMinus(L *lua.LState) (int, error) {
	return e.eachID(L, e.env.Registry.Deselect)
}

func (e *Engine) cmdSelectAll(*lua.LState) (int, error) {
	e.env.Registry.SelectAll()
	return 0, nil
}

func (e *Engine) cmdDeselectAll(*lua.LState) (int, error) {
	e.env.Registry.DeselectAll()
	return 0, nil
}

// selected([class [, n]]) -> id. A negative n counts from the last one.
func (e *Engine) cmdSelected(L *lua.LState) (int, error) {
	c, n, dir, err := e.argNth(L)
	if err != nil {
		return 0, err
	}
	id, err := e.env.Registry.NthSelected(c, n, dir)
	if err != nil {
		return 0, err
	}
	L.Push(lID(id))
	return 1, nil
}

// selected_ids([class]) -> {ids}
func (e *Engine) cmdSelectedIDs(L *lua.LState) (int, error) {
	c, err := e.optClass(L, 1)
	if err != nil {
		return 0, err
	}
	L.Push(e.idTable(e.env.Registry.IDsOfSelected(c)))
	return 1, nil
}

// selected_name([class [, n]]) -> name
func (e *Engine) cmdSelectedName(L *lua.LState) (int, error) {
	c, n, dir, err := e.argNth(L)
	if err != nil {
		return 0, err
	}
	name, err := e.env.Registry.NameOfSelected(c, n, dir)
	if err != nil {
		return 0, err
	}
	L.Push(lua.LString(name))
	return 1, nil
}

// number_of_selected([class]) -> n
func (e *Engine) cmdNumberOfSelected(L *lua.LState) (int, error) {
	c, err := e.optClass(L, 1)
	if err != nil {
		return 0, err
	}
	L.Push(lua.LNumber(e.env.Registry.CountSelected(c)))
	return 1, nil
}

// objects([class]) -> {{id=, class=, name=, selected=, file=}...}
func (e *Engine) cmdObjects(L *lua.LState) (int, error) {
	c, err := e.optClass(L, 1)
	if err != nil {
		return 0, err
	}
	var pred func(*objects.Slot) bool
	if c != nil {
		pred = objects.OfClass(c)
	}
	t := L.NewTable()
	for s := range e.env.Registry.Filter(pred) {
		row := L.NewTable()
		row.RawSetString("id", lID(s.ID()))
		row.RawSetString("class", lua.LString(s.Class().Name))
		row.RawSetString("name", lua.LString(s.Name()))
		row.RawSetString("selected", lua.LBool(s.Selected()))
		row.RawSetString("file", lua.LString(s.File()))
		t.Append(row)
	}
	L.Push(t)
	return 1, nil
}

// remove(id...); with no arguments removes the selection.
func (e *Engine) cmdRemove(L *lua.LState) (int, error) {
	ids, err := argIDs(L, 1)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		ids = e.env.Registry.IDsOfSelected(nil)
	}
	if err := e.checkIDs(ids); err != nil {
		return 0, err
	}
	for _, id := range ids {
		// an editor torn down by an earlier removal may have removed id already
		if err := e.env.Registry.Remove(id); err != nil && !errors.Is(err, objects.ErrNotFound) {
			return 0, err
		}
	}
	return 0, nil
}

// rename(id, name)
func (e *Engine) cmdRename(L *lua.LState) (int, error) {
	id, err := argID(L, 1)
	if err != nil {
		return 0, err
	}
	return 0, e.env.Registry.Rename(id, L.CheckString(2))
}

// data(id) -> the value given to new
func (e *Engine) cmdData(L *lua.LState) (int, error) {
	id, err := argID(L, 1)
	if err != nil {
		return 0, err
	}
	s, err := e.env.Registry.Find(id)
	if err != nil {
		return 0, err
	}
	v, ok := s.Data().(lua.LValue)
	if !ok {
		v = lua.LNil
	}
	L.Push(v)
	return 1, nil
}

// data_changed(id) tells every editor of id to refresh.
func (e *Engine) cmdDataChanged(L *lua.LState) (int, error) {
	id, err := argID(L, 1)
	if err != nil {
		return 0, err
	}
	return 0, e.env.Registry.DataChanged(id)
}

func (e *Engine) cmdUpdateSelection(*lua.LState) (int, error) {
	e.env.Registry.UpdateSelection()
	return 0, nil
}

// edit([id...]) -> handle; with no arguments edits the selection.
func (e *Engine) cmdEdit(L *lua.LState) (int, error) {
	if e.env.Editors == nil {
		return 0, fmt.Errorf("no editors in this session")
	}
	ids, err := argIDs(L, 1)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		ids = e.env.Registry.IDsOfSelected(nil)
	}
	c, err := e.env.Editors.Open(ids...)
	if err != nil {
		return 0, err
	}
	e.nextEditor++
	e.editors[e.nextEditor] = c
	L.Push(lua.LNumber(e.nextEditor))
	return 1, nil
}

// close_editor(handle)
func (e *Engine) cmdCloseEditor(L *lua.LState) (int, error) {
	h, c, err := e.argEditor(L, 1)
	if err != nil {
		return 0, err
	}
	delete(e.editors, h)
	if c.Closed() {
		return 0, nil
	}
	return 0, e.env.Editors.Close(c)
}

// editor_changed(handle) reports an edit made through the editor.
func (e *Engine) cmdEditorChanged(L *lua.LState) (int, error) {
	_, c, err := e.argEditor(L, 1)
	if err != nil {
		return 0, err
	}
	e.env.Editors.Changed(c)
	return 0, nil
}

// editor_publish(handle, class, name) -> id or nil
func (e *Engine) cmdEditorPublish(L *lua.LState) (int, error) {
	_, c, err := e.argEditor(L, 1)
	if err != nil {
		return 0, err
	}
	class, err := e.argClass(L, 2)
	if err != nil {
		return 0, err
	}
	id := e.env.Editors.Publish(c, class, L.OptString(3, ""), dataOf(L.Get(4)))
	if id.IsZero() {
		L.Push(lua.LNil)
	} else {
		L.Push(lID(id))
	}
	return 1, nil
}

// combined_name(class1, class2) -> name
func (e *Engine) cmdCombinedName(L *lua.LState) (int, error) {
	c1, err := e.argClass(L, 1)
	if err != nil {
		return 0, err
	}
	c2, err := e.argClass(L, 2)
	if err != nil {
		return 0, err
	}
	name, err := e.env.Registry.CombinedName(c1, c2)
	if err != nil {
		return 0, err
	}
	L.Push(lua.LString(name))
	return 1, nil
}

// default_file_name([ext]) -> name
func (e *Engine) cmdDefaultFileName(L *lua.LState) (int, error) {
	L.Push(lua.LString(e.env.Registry.DefaultFileName(L.OptString(1, ""))))
	return 1, nil
}

// pref(key [, default]) -> value
func (e *Engine) cmdPref(L *lua.LState) (int, error) {
	v, ok := e.env.Prefs[L.CheckString(1)]
	if !ok {
		L.Push(L.Get(2))
		return 1, nil
	}
	L.Push(lua.LString(v))
	return 1, nil
}

// set_pref(key, value)
func (e *Engine) cmdSetPref(L *lua.LState) (int, error) {
	e.env.Prefs.Set(L.CheckString(1), L.ToStringMeta(L.CheckAny(2)).String())
	return 0, nil
}

// add_menu_command(window, menu, title [, script]) and its siblings.
// Action commands take a class instead of a window.
func (e *Engine) buttonCommand(kind prefs.Kind) command {
	return func(L *lua.LState) (int, error) {
		c := prefs.Command{
			Kind:   kind,
			Where:  L.CheckString(1),
			Menu:   L.OptString(2, ""),
			Title:  L.CheckString(3),
			Script: L.OptString(4, ""),
		}
		if kind >= prefs.AddAction {
			if _, err := e.lookupClass(c.Where); err != nil {
				return 0, err
			}
		}
		e.env.Buttons.Apply(c)
		return 0, nil
	}
}

func buttonCommandName(kind prefs.Kind) string {
	// "Hide action command..." -> "hide_action_command"
	s := strings.TrimSuffix(kind.String(), "...")
	return strings.ToLower(strings.ReplaceAll(s, " ", "_"))
}

// eachID applies fn to every id argument once all of them are known to exist.
func (e *Engine) eachID(L *lua.LState, fn func(ident.ID) error) (int, error) {
	ids, err := argIDs(L, 1)
	if err != nil {
		return 0, err
	}
	if err := e.checkIDs(ids); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := fn(id); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// checkIDs fails on the first id that names no object, before anything is
// changed.
func (e *Engine) checkIDs(ids []ident.ID) error {
	for _, id := range ids {
		if _, err := e.env.Registry.Find(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) lookupClass(name string) (*classes.Class, error) {
	c, ok := e.env.Classes.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", name)
	}
	return c, nil
}

func (e *Engine) argClass(L *lua.LState, n int) (*classes.Class, error) {
	return e.lookupClass(L.CheckString(n))
}

// optClass accepts nil or "" for any class.
func (e *Engine) optClass(L *lua.LState, n int) (*classes.Class, error) {
	name := L.OptString(n, "")
	if name == "" {
		return nil, nil
	}
	return e.lookupClass(name)
}

func (e *Engine) argNth(L *lua.LState) (*classes.Class, int, objects.Direction, error) {
	c, err := e.optClass(L, 1)
	if err != nil {
		return nil, 0, 0, err
	}
	n := L.OptInt(2, 1)
	if n < 0 {
		return c, -n, objects.Backward, nil
	}
	return c, n, objects.Forward, nil
}

func (e *Engine) argEditor(L *lua.LState, n int) (int, *editor.Console, error) {
	h := L.CheckInt(n)
	c, ok := e.editors[h]
	if !ok {
		return 0, nil, fmt.Errorf("no editor %d", h)
	}
	return h, c, nil
}

func (e *Engine) idTable(ids []ident.ID) *lua.LTable {
	t := e.vm.NewTable()
	for _, id := range ids {
		t.Append(lID(id))
	}
	return t
}

func argID(L *lua.LState, n int) (ident.ID, error) {
	v := L.CheckNumber(n)
	if v < 1 || v != lua.LNumber(int64(v)) {
		return 0, fmt.Errorf("bad object id %v", v)
	}
	return ident.ID(v), nil
}

// argIDs collects ids from the arguments starting at n. A single table
// argument is expanded.
func argIDs(L *lua.LState, n int) ([]ident.ID, error) {
	if t, ok := L.Get(n).(*lua.LTable); ok && L.GetTop() == n {
		var ids []ident.ID
		for i := 1; i <= t.Len(); i++ {
			v, ok := t.RawGetInt(i).(lua.LNumber)
			if !ok || v < 1 {
				return nil, fmt.Errorf("bad object id %v", t.RawGetInt(i))
			}
			ids = append(ids, ident.ID(v))
		}
		return ids, nil
	}
	var ids []ident.ID
	for i := n; i <= L.GetTop(); i++ {
		id, err := argID(L, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func lID(id ident.ID) lua.LNumber { return lua.LNumber(id) }

func lStr(t *lua.LTable, i int) string {
	return lua.LVAsString(t.RawGetInt(i))
}

// dataOf keeps a Lua value as object data; nil stays nil.
func dataOf(v lua.LValue) any {
	if v == lua.LNil {
		return nil
	}
	return v
}
