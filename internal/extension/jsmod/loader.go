// Package jsmod loads JavaScript plugin UI modules on the goja runtime.
// A module exports its entry point CommonJS style (module.exports = fn)
// or by leaving a function as the script's final value; the loader invokes
// it with the extension API object. The VM stays alive for the lifetime of
// the extension context so that registered handlers remain callable.
package jsmod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dop251/goja"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/extension"
	"github.com/dshills/workbench/internal/registry"
)

// ModuleFile is the module file name inside a plugin package.
const ModuleFile = "ui.js"

// Loader implements extension.ModuleLoader for JavaScript modules.
type Loader struct{}

// New creates a JavaScript module loader.
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
	return filepath.Ext(path) == ".js"
}

// Invalidate implements extension.ModuleLoader.
// Scripts are re-read and re-compiled on every Load.
func (l *Loader) Invalidate(path string) {}

// Load implements extension.ModuleLoader.
func (l *Loader) Load(ctx context.Context, path string, ec *extension.Context) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	vm := goja.New()
	module := vm.NewObject()
	exports := vm.NewObject()
	_ = module.Set("exports", exports)
	_ = vm.Set("module", module)
	_ = vm.Set("exports", exports)

	ret, err := vm.RunScript(path, string(src))
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	fn, ok := goja.AssertFunction(module.Get("exports"))
	if !ok {
		fn, ok = goja.AssertFunction(ret)
	}
	if !ok {
		return fmt.Errorf("%w: %s exports no function", extension.ErrNotInvocable, path)
	}

	// goja VMs are not goroutine-safe; every later callback goes through vs.
	vs := &vmState{vm: vm}
	ec.AddCloser(vs.close)

	if _, err := vs.call(fn, vm.ToValue(newAPI(vs, ec))); err != nil {
		return fmt.Errorf("invoking %s: %w", path, err)
	}
	return nil
}

// vmState guards one module's VM against concurrent access and use after
// close.
type vmState struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	closed bool
}

func (s *vmState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *vmState) call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("javascript module state is closed")
	}
	return fn(goja.Undefined(), args...)
}

// newAPI builds the extension API object handed to the module function.
func newAPI(vs *vmState, ec *extension.Context) *goja.Object {
	vm := vs.vm
	api := vm.NewObject()

	_ = api.Set("onHook", func(call goja.FunctionCall) goja.Value {
		hookID := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("onHook expects a function"))
		}
		ec.OnHook(hookID, func(args map[string]any) {
			_, _ = vs.call(fn, vm.ToValue(args))
		})
		return goja.Undefined()
	})

	_ = api.Set("onAction", func(call goja.FunctionCall) goja.Value {
		actionID := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("onAction expects a function"))
		}
		ec.OnAction(actionID, func(params map[string]any) (any, error) {
			ret, err := vs.call(fn, vm.ToValue(params))
			if err != nil {
				return nil, err
			}
			if ret == nil || goja.IsUndefined(ret) || goja.IsNull(ret) {
				return nil, nil
			}
			return ret.Export(), nil
		})
		return goja.Undefined()
	})

	_ = api.Set("onIPC", func(call goja.FunctionCall) goja.Value {
		channel := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("onIPC expects a function"))
		}
		ec.OnIPC(channel, func(msg event.Message) {
			_, _ = vs.call(fn, vm.ToValue(msg.Payload))
		})
		return goja.Undefined()
	})

	_ = api.Set("addView", func(call goja.FunctionCall) goja.Value {
		obj := call.Argument(0).ToObject(vm)
		ec.AddView(registry.View{
			ID:        stringProp(obj, "id"),
			Name:      stringProp(obj, "name"),
			Icon:      stringProp(obj, "icon"),
			Component: stringProp(obj, "component"),
		})
		return goja.Undefined()
	})

	_ = api.Set("addWidget", func(call goja.FunctionCall) goja.Value {
		obj := call.Argument(0).ToObject(vm)
		ec.AddWidget(registry.Widget{
			ID:          stringProp(obj, "id"),
			Title:       stringProp(obj, "title"),
			Description: stringProp(obj, "description"),
			Component:   stringProp(obj, "component"),
		})
		return goja.Undefined()
	})

	_ = api.Set("addClientAddon", func(call goja.FunctionCall) goja.Value {
		obj := call.Argument(0).ToObject(vm)
		ec.AddClientAddon(registry.ClientAddon{
			ID:  stringProp(obj, "id"),
			URL: stringProp(obj, "url"),
		})
		return goja.Undefined()
	})

	return api
}

// stringProp reads a string property from a JS object.
func stringProp(obj *goja.Object, key string) string {
	v := obj.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
