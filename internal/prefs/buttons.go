package prefs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Kind identifies a menu customization directive.
type Kind int

const (
	AddMenu Kind = iota
	HideMenu
	ShowMenu
	AddAction
	HideAction
	ShowAction
)

var directives = [...]string{
	AddMenu:    "Add menu command...",
	HideMenu:   "Hide menu command...",
	ShowMenu:   "Show menu command...",
	AddAction:  "Add action command...",
	HideAction: "Hide action command...",
	ShowAction: "Show action command...",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(directives) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return directives[k]
}

// Command is one user customization of the fixed or dynamic menus.
// Where is the window for menu commands and the class for actions.
type Command struct {
	Kind   Kind
	Where  string
	Menu   string
	Title  string
	Script string
}

func (c Command) key() string {
	return c.Where + "\x00" + c.Menu + "\x00" + c.Title
}

// Buttons collects customizations. Added commands and hide/show toggles are
// kept apart: a later Add replaces an earlier Add of the same button, a later
// Hide or Show replaces an earlier Hide or Show, and neither touches the other.
type Buttons struct {
	added   []Command
	toggled []Command
}

func (b *Buttons) Apply(c Command) {
	list := &b.toggled
	if c.Kind == AddMenu || c.Kind == AddAction {
		list = &b.added
	}
	for i, old := range *list {
		if old.key() == c.key() && isMenu(old.Kind) == isMenu(c.Kind) {
			(*list)[i] = c
			return
		}
	}
	*list = append(*list, c)
}

// Commands returns the added commands followed by the toggles, each in the
// order they were first made.
func (b *Buttons) Commands() []Command {
	out := make([]Command, 0, b.Len())
	out = append(out, b.added...)
	return append(out, b.toggled...)
}

func (b *Buttons) Len() int { return len(b.added) + len(b.toggled) }

func isMenu(k Kind) bool { return k <= ShowMenu }

const buttonsHeader = "# Buttons (1).\n"

func buttonsPreamble(title string) string {
	return buttonsHeader +
		"# This file is generated automatically when you quit the " + title + " program.\n" +
		"# It contains the buttons that you added interactively to the fixed or dynamic menus,\n" +
		"# and the buttons that you hid or showed.\n\n"
}

// WriteButtons writes the customization file. The text is stored as ASCII
// when possible and as UTF-16 with a byte order mark otherwise.
func WriteButtons(path, title string, b *Buttons) error {
	var sb strings.Builder
	sb.WriteString(buttonsPreamble(title))
	for _, c := range b.Commands() {
		fmt.Fprintf(&sb, "%s %s %s %s", c.Kind, strconv.Quote(c.Where), strconv.Quote(c.Menu), strconv.Quote(c.Title))
		if c.Script != "" {
			sb.WriteString(" " + c.Script)
		}
		sb.WriteByte('\n')
	}

	data := []byte(sb.String())
	if !isASCII(data) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(enc, data)
		if err != nil {
			return fmt.Errorf("encode buttons: %w", err)
		}
		data = out
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create buttons dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write buttons %s: %w", path, err)
	}
	return nil
}

// ReadButtons reads a file written by WriteButtons. A missing file yields
// no customizations.
func ReadButtons(path string) (*Buttons, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Buttons{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read buttons %s: %w", path, err)
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return nil, fmt.Errorf("decode buttons %s: %w", path, err)
	}
	if !bytes.HasPrefix(text, []byte(buttonsHeader)) {
		return nil, fmt.Errorf("buttons %s: missing header", path)
	}

	b := &Buttons{}
	sc := bufio.NewScanner(bytes.NewReader(text))
	for line := 1; sc.Scan(); line++ {
		l := strings.TrimSpace(sc.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		c, err := parseCommand(l)
		if err != nil {
			return nil, fmt.Errorf("buttons %s:%d: %w", path, line, err)
		}
		b.Apply(c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read buttons %s: %w", path, err)
	}
	return b, nil
}

func parseCommand(line string) (Command, error) {
	var c Command
	found := false
	for k, d := range directives {
		if rest, ok := strings.CutPrefix(line, d+" "); ok {
			c.Kind, line, found = Kind(k), rest, true
			break
		}
	}
	if !found {
		return c, fmt.Errorf("unknown directive %q", line)
	}
	for _, field := range []*string{&c.Where, &c.Menu, &c.Title} {
		line = strings.TrimLeft(line, " ")
		q, err := strconv.QuotedPrefix(line)
		if err != nil {
			return c, fmt.Errorf("expected quoted field in %q", line)
		}
		*field, _ = strconv.Unquote(q)
		line = line[len(q):]
	}
	c.Script = strings.TrimSpace(line)
	return c, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
