package prefs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestButtonsApplyReplacesSameButton(t *testing.T) {
	var b Buttons
	b.Apply(Command{Kind: HideAction, Where: "Sound", Title: "Play"})
	b.Apply(Command{Kind: AddMenu, Where: "Objects", Menu: "New", Title: "Play"})
	b.Apply(Command{Kind: ShowAction, Where: "Sound", Title: "Play"})

	require.Equal(t, []Command{
		{Kind: AddMenu, Where: "Objects", Menu: "New", Title: "Play"},
		{Kind: ShowAction, Where: "Sound", Title: "Play"},
	}, b.Commands())
}

func TestButtonsHidingAnAddedCommandKeepsBoth(t *testing.T) {
	var b Buttons
	added := Command{Kind: AddMenu, Where: "Objects", Menu: "New", Title: "Make vowel...", Script: "/s/vowel.lua"}
	b.Apply(added)
	b.Apply(Command{Kind: HideMenu, Where: "Objects", Menu: "New", Title: "Make vowel..."})
	b.Apply(Command{Kind: ShowMenu, Where: "Objects", Menu: "New", Title: "Make vowel..."})

	want := []Command{added, {Kind: ShowMenu, Where: "Objects", Menu: "New", Title: "Make vowel..."}}
	require.Equal(t, want, b.Commands())
	require.Equal(t, 2, b.Len())

	path := filepath.Join(t.TempDir(), "buttons5")
	require.NoError(t, WriteButtons(path, "Praat", &b))
	got, err := ReadButtons(path)
	require.NoError(t, err)
	require.Equal(t, want, got.Commands())
}

func TestWriteButtonsASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buttons5")
	var b Buttons
	b.Apply(Command{Kind: AddMenu, Where: "Objects", Menu: "New", Title: "Make vowel...", Script: "/home/me/vowel.praat"})
	b.Apply(Command{Kind: HideAction, Where: "Sound", Title: "Play"})

	require.NoError(t, WriteButtons(path, "Praat", &b))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.True(t, strings.HasPrefix(text, "# Buttons (1).\n# This file is generated automatically when you quit the Praat program.\n"))
	require.Contains(t, text, `Add menu command... "Objects" "New" "Make vowel..." /home/me/vowel.praat`+"\n")
	require.Contains(t, text, `Hide action command... "Sound" "" "Play"`+"\n")

	got, err := ReadButtons(path)
	require.NoError(t, err)
	require.Equal(t, b.Commands(), got.Commands())
}

func TestWriteButtonsUTF16WhenNeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buttons5")
	var b Buttons
	b.Apply(Command{Kind: AddAction, Where: "Sound", Title: "Écouter", Script: "/tmp/é.praat"})

	require.NoError(t, WriteButtons(path, "Praat", &b))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), "little-endian byte order mark")

	got, err := ReadButtons(path)
	require.NoError(t, err)
	require.Equal(t, b.Commands(), got.Commands())
}

func TestReadButtonsMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	b, err := ReadButtons(filepath.Join(dir, "none"))
	require.NoError(t, err)
	require.Zero(t, b.Len())

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("hello\n"), 0o644))
	_, err = ReadButtons(bad)
	require.ErrorContains(t, err, "missing header")

	bad2 := filepath.Join(dir, "bad2")
	require.NoError(t, os.WriteFile(bad2, []byte("# Buttons (1).\nFrobnicate... \"x\"\n"), 0o644))
	_, err = ReadButtons(bad2)
	require.ErrorContains(t, err, "unknown directive")
}

func TestKindString(t *testing.T) {
	require.Equal(t, "Show menu command...", ShowMenu.String())
	require.Equal(t, "Kind(99)", Kind(99).String())
}
