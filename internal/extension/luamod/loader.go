// Package luamod loads Lua plugin UI modules. A module file must return a
// function; the loader invokes it with the extension API table. The Lua
// state stays alive for the lifetime of the extension context so that
// registered hook and action handlers remain callable, and is closed when
// the context is torn down.
package luamod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/extension"
	"github.com/dshills/workbench/internal/registry"
)

// ModuleFile is the module file name inside a plugin package.
const ModuleFile = "ui.lua"

// Loader implements extension.ModuleLoader for Lua modules.
type Loader struct{}

// New creates a Lua module loader.
func New() *Loader {
	return &Loader{}
}

// Resolve implements extension.ModuleLoader.
func (l *Loader) Resolve(dir string) (string, bool) {
	path := filepath.Join(dir, ModuleFile)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Matches implements extension.ModuleLoader.
func (l *Loader) Matches(path string) bool {
	return filepath.Ext(path) == ".lua"
}

// Invalidate implements extension.ModuleLoader.
// Lua chunks are re-read on every Load, so there is nothing to drop.
func (l *Loader) Invalidate(path string) {}

// Load implements extension.ModuleLoader.
func (l *Loader) Load(ctx context.Context, path string, ec *extension.Context) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return fmt.Errorf("loading %s: %w", path, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	fn, ok := ret.(*lua.LFunction)
	if !ok {
		L.Close()
		return fmt.Errorf("%w: %s returned %s", extension.ErrNotInvocable, path, ret.Type())
	}

	// gopher-lua states are not goroutine-safe; every later callback into
	// this state goes through st.
	st := &moduleState{L: L}
	ec.AddCloser(st.close)

	if err := st.protectedCall(fn, 0, newAPI(st, ec)); err != nil {
		return fmt.Errorf("invoking %s: %w", path, err)
	}
	return nil
}

// moduleState guards one module's Lua state against concurrent access and
// use after close.
type moduleState struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func (s *moduleState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.L.Close()
	}
}

// protectedCall invokes a Lua function with nret return values.
// Returns the first return value when nret > 0.
func (s *moduleState) protectedCall(fn *lua.LFunction, nret int, args ...lua.LValue) error {
	_, err := s.protectedCallValue(fn, nret, args...)
	return err
}

func (s *moduleState) protectedCallValue(fn *lua.LFunction, nret int, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil, fmt.Errorf("lua module state is closed")
	}

	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	if nret == 0 {
		return lua.LNil, nil
	}
	ret := s.L.Get(-1)
	s.L.Pop(nret)
	return ret, nil
}

// newAPI builds the extension API table handed to the module function.
func newAPI(st *moduleState, ec *extension.Context) *lua.LTable {
	L := st.L
	api := L.NewTable()

	L.SetField(api, "onHook", L.NewFunction(func(L *lua.LState) int {
		hookID := L.CheckString(1)
		fn := L.CheckFunction(2)
		ec.OnHook(hookID, func(args map[string]any) {
			_ = st.protectedCall(fn, 0, toLua(L, args))
		})
		return 0
	}))

	L.SetField(api, "onAction", L.NewFunction(func(L *lua.LState) int {
		actionID := L.CheckString(1)
		fn := L.CheckFunction(2)
		ec.OnAction(actionID, func(params map[string]any) (any, error) {
			ret, err := st.protectedCallValue(fn, 1, toLua(L, params))
			if err != nil {
				return nil, err
			}
			return fromLua(ret), nil
		})
		return 0
	}))

	L.SetField(api, "onIPC", L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		fn := L.CheckFunction(2)
		ec.OnIPC(channel, func(msg event.Message) {
			_ = st.protectedCall(fn, 0, toLua(L, msg.Payload))
		})
		return 0
	}))

	L.SetField(api, "addView", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		ec.AddView(registry.View{
			ID:        stringField(t, "id"),
			Name:      stringField(t, "name"),
			Icon:      stringField(t, "icon"),
			Component: stringField(t, "component"),
		})
		return 0
	}))

	L.SetField(api, "addWidget", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		ec.AddWidget(registry.Widget{
			ID:          stringField(t, "id"),
			Title:       stringField(t, "title"),
			Description: stringField(t, "description"),
			Component:   stringField(t, "component"),
		})
		return 0
	}))

	L.SetField(api, "addClientAddon", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		ec.AddClientAddon(registry.ClientAddon{
			ID:  stringField(t, "id"),
			URL: stringField(t, "url"),
		})
		return 0
	}))

	return api
}

// stringField reads a string entry from a Lua table.
func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// openSafeLibraries opens only side-effect-free Lua standard libraries.
// io, os, debug, and package stay closed to plugin modules.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}
