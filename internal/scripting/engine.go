package scripting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/editor"
	"github.com/praatgo/shell/internal/objects"
	"github.com/praatgo/shell/internal/prefs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Env is what scripts operate on.
type Env struct {
	Registry *objects.Registry
	Classes  *classes.Table
	Editors  *editor.Manager
	Buttons  *prefs.Buttons
	Prefs    prefs.Values
	Out      io.Writer
}

// Engine wraps a single gopher-lua VM driving the object registry.
// Single-goroutine access only.
type Engine struct {
	vm  *lua.LState
	env Env
	log *zap.Logger

	editors    map[int]*editor.Console
	nextEditor int
}

// NewEngine creates a Lua VM with the praat module preloaded.
func NewEngine(env Env, log *zap.Logger) *Engine {
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.Prefs == nil {
		env.Prefs = prefs.Values{}
	}
	if env.Buttons == nil {
		env.Buttons = &prefs.Buttons{}
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, env: env, log: log, editors: map[int]*editor.Console{}}
	e.register()
	return e
}

// RunString executes src; name identifies the chunk in error messages.
func (e *Engine) RunString(name, src string) error {
	fn, err := e.vm.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	return e.call(name, fn)
}

// RunFile executes one script file.
func (e *Engine) RunFile(path string) error {
	fn, err := e.vm.LoadFile(path)
	if err != nil {
		return fmt.Errorf("compile %s: %w", path, err)
	}
	return e.call(path, fn)
}

// RunDir executes every .lua file in dir in name order. A missing dir is
// not an error.
func (e *Engine) RunDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	for _, n := range names {
		path := filepath.Join(dir, n)
		if err := e.RunFile(path); err != nil {
			return err
		}
		e.log.Debug("ran lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) call(name string, fn *lua.LFunction) error {
	defer e.env.Registry.UpdateSelection()
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		e.log.Warn("lua script failed", zap.String("script", name), zap.Error(err))
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}
