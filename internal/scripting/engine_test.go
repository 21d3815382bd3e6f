package scripting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/config"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/core/ident"
	"github.com/praatgo/shell/internal/editor"
	"github.com/praatgo/shell/internal/objects"
	"github.com/praatgo/shell/internal/prefs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	eng *Engine
	reg *objects.Registry
	out *bytes.Buffer
	env Env
}

func newHarness(t *testing.T, maxObjects int) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := objects.New(config.ObjectsConfig{MaxObjects: maxObjects, MaxEditors: 2}, event.NewBus(), log)
	out := &bytes.Buffer{}
	env := Env{
		Registry: reg,
		Classes:  classes.Default(),
		Editors:  editor.NewManager(reg, out, log),
		Buttons:  &prefs.Buttons{},
		Prefs:    prefs.Values{"Sound.rate": "44100"},
		Out:      out,
	}
	eng := NewEngine(env, log)
	t.Cleanup(eng.Close)
	return &harness{eng: eng, reg: reg, out: out, env: env}
}

func (h *harness) run(t *testing.T, src string) {
	t.Helper()
	require.NoError(t, h.eng.RunString(t.Name(), src))
}

func TestNewSelectsCreatedObject(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local a = praat.new("Sound", "vowel.wav")
		print(a, praat.selected_name())
		local p = praat.new("Pitch", "vowel")
		print(praat.number_of_selected(), praat.selected("Pitch") == p)
	`)
	require.Equal(t, "1\tSound vowel\n1\ttrue\n", h.out.String())
	require.Equal(t, []ident.ID{2}, h.reg.IDsOfSelected(nil))
}

func TestSelectionCommands(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local a = praat.new("Sound", "one")
		local b = praat.new("Sound", "two")
		local c = praat.new("Pitch", "three")
		praat.select(a, c)
		print(praat.number_of_selected(), praat.number_of_selected("Sound"))
		praat.plus(b)
		print(praat.selected("Sound", 2), praat.selected("Sound", -1))
		praat.minus({a, b})
		print(#praat.selected_ids(), praat.selected_ids()[1])
		praat.select_all()
		print(praat.number_of_selected())
		praat.deselect_all()
		print(praat.number_of_selected())
	`)
	require.Equal(t, "2\t1\n2\t2\n1\t3\n3\n0\n", h.out.String())
}

func TestErrorsSurfaceAsLuaErrors(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		praat.new("Sound", "only")
		local ok, err = pcall(praat.selected, "Sound", 2)
		print(ok, err)
		ok, err = pcall(praat.new, "Nonsense")
		print(ok, err)
		ok, err = pcall(praat.remove, 99)
		print(ok, err)
	`)
	out := h.out.String()
	require.Contains(t, out, "selected: no Sound #2 selected")
	require.Contains(t, out, `new: unknown class "Nonsense"`)
	require.Contains(t, out, "remove: object #99 not found")

	err := h.eng.RunString("broken", `praat.rename(12345, "x")`)
	require.ErrorContains(t, err, "object #12345 not found")
	err = h.eng.RunString("syntax", `this is not lua`)
	require.ErrorContains(t, err, "compile syntax")
}

func TestStaleIDLeavesRegistryUntouched(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		a = praat.new("Sound", "a")
		b = praat.new("Sound", "b")
		praat.select(b)
	`)
	for _, src := range []string{
		`praat.plus(a, 999)`,
		`praat.minus(b, 999)`,
		`praat.select(a, 999)`,
		`praat.remove(a, 999)`,
		`praat.remove({a, 999})`,
	} {
		err := h.eng.RunString("stale", src)
		require.ErrorContains(t, err, "object #999 not found", src)
		require.Equal(t, 2, h.reg.Len(), src)
		require.Equal(t, []ident.ID{2}, h.reg.IDsOfSelected(nil), src)
	}
}

func TestCapacityError(t *testing.T) {
	h := newHarness(t, 1)
	err := h.eng.RunString("full", `praat.new("Sound", "a"); praat.new("Sound", "b")`)
	require.ErrorContains(t, err, "capacity")
	require.Equal(t, 1, h.reg.Len())
}

func TestNewCollectionAndObjects(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local ids = praat.new_collection("coll", {"Sound", "s"}, {"Pitch"})
		for _, o in ipairs(praat.objects()) do
			print(o.id, o.class, o.name, o.selected)
		end
		print(#praat.objects("Pitch"))
	`)
	require.Equal(t, "1\tSound\ts\ttrue\n2\tPitch\tcoll\ttrue\n1\n", h.out.String())
}

func TestRemoveRenameAndData(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local a = praat.new("Sound", "a", {rate = 8000})
		print(praat.data(a).rate)
		praat.rename(a, "my sound")
		print(praat.selected_name("Sound"))
		local b = praat.new("Sound", "b", nil, "/tmp/b.wav")
		praat.select(a, b)
		praat.remove()
		print(#praat.objects())
	`)
	require.Equal(t, "8000\nmy_sound\n0\n", h.out.String())
}

func TestEditorCommands(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local a = praat.new("Sound", "a")
		local e1 = praat.edit()
		local e2 = praat.edit(a)
		praat.editor_changed(e1)
		local p = praat.editor_publish(e1, "Pitch", "extracted")
		print(praat.selected_name())
		praat.close_editor(e2)
		praat.data_changed(a)
		praat.remove(a)
		praat.close_editor(e1)
	`)
	require.Equal(t,
		"Sound a: data changed\n"+
			"Pitch extracted\n"+
			"Sound a: closed\n"+
			"Sound a: data changed\n"+
			"Sound a: closed\n",
		h.out.String())
}

func TestNamingAndPrefs(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		local s = praat.new("Sound", "vowel")
		local p = praat.new("Pitch", "vowel")
		praat.select(s, p)
		print(praat.combined_name("Sound", "Pitch"), praat.default_file_name("wav"))
		print(praat.pref("Sound.rate"), praat.pref("missing", "fallback"))
		praat.set_pref("Pitch.ceiling", 600)
	`)
	require.Equal(t, "vowel\tpraat.wav\n44100\tfallback\n", h.out.String())
	require.Equal(t, "600", h.env.Prefs.Get("Pitch.ceiling", ""))
}

func TestButtonCommands(t *testing.T) {
	h := newHarness(t, 10)
	h.run(t, `
		praat.add_menu_command("Objects", "New", "Make vowel...", "/s/vowel.lua")
		praat.hide_action_command("Sound", "", "Play")
		local ok = pcall(praat.show_action_command, "Nonsense", "", "Play")
		print(ok)
	`)
	require.Equal(t, "false\n", h.out.String())
	require.Equal(t, []prefs.Command{
		{Kind: prefs.AddMenu, Where: "Objects", Menu: "New", Title: "Make vowel...", Script: "/s/vowel.lua"},
		{Kind: prefs.HideAction, Where: "Sound", Title: "Play"},
	}, h.env.Buttons.Commands())
}

func TestRunDirInNameOrder(t *testing.T) {
	h := newHarness(t, 10)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`print("b")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`print("a")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`nope`), 0o644))

	require.NoError(t, h.eng.RunDir(dir))
	require.Equal(t, "a\nb\n", h.out.String())
	require.NoError(t, h.eng.RunDir(filepath.Join(dir, "missing")))
}

func TestRunStringCommitsPendingObjects(t *testing.T) {
	h := newHarness(t, 10)
	// objects inserted from Go while a script runs are committed at its end
	h.env.Registry.SelectAll()
	_, err := h.reg.Insert(classes.Default().MustLookup("Sound"), "outside", nil)
	require.NoError(t, err)
	h.run(t, `print(praat.number_of_selected())`)
	require.Equal(t, "0\n", h.out.String())
	require.Equal(t, 1, h.reg.CountSelected(nil))
}
