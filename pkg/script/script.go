// Package script implements the named-callback registry behind function call
// nodes. Callbacks are either Go functions registered by the embedding
// application or author-written JavaScript run in a sandboxed VM with story
// bindings.
package script

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/node"
)

// Host resolves remote-call names to callbacks. It owns a single VM; the
// story runtime is single-threaded, so no pooling is needed.
type Host struct {
	vm     *goja.Runtime
	gofns  map[string]func()
	jsfns  map[string]goja.Callable
	logger *zap.Logger
}

// NewHost creates a script host with a sandboxed VM.
func NewHost(logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vm := goja.New()
	if err := applySandbox(vm); err != nil {
		return nil, fmt.Errorf("failed to sandbox VM: %w", err)
	}
	return &Host{
		vm:     vm,
		gofns:  make(map[string]func()),
		jsfns:  make(map[string]goja.Callable),
		logger: logger,
	}, nil
}

// applySandbox removes runtime globals author scripts must not reach.
func applySandbox(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"Buffer",
		"setImmediate",
		"clearImmediate",
	}
	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// BindStory exposes the story state to author scripts as a global `story`
// object with variable and inventory accessors.
func (h *Host) BindStory(vars node.VariableStore, inv node.InventoryStore) error {
	story := h.vm.NewObject()
	if err := story.Set("getVariable", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		val, ok := vars.Value(name)
		if !ok {
			return goja.Undefined()
		}
		return h.vm.ToValue(val)
	}); err != nil {
		return err
	}
	if err := story.Set("setVariable", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		vars.SetValue(name, call.Argument(1).Export())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := story.Set("hasItem", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(inv.Exists(int(call.Argument(0).ToInteger())))
	}); err != nil {
		return err
	}
	if err := story.Set("itemCount", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(inv.Count(int(call.Argument(0).ToInteger())))
	}); err != nil {
		return err
	}
	if err := story.Set("addItem", func(call goja.FunctionCall) goja.Value {
		inv.Add(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := story.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		inv.RemoveMatching(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return h.vm.Set("story", story)
}

// RegisterFunc registers a Go callback under the given name.
func (h *Host) RegisterFunc(name string, fn func()) error {
	if name == "" {
		return fmt.Errorf("callback name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	h.gofns[name] = fn
	return nil
}

// RegisterScript compiles source, which must evaluate to a function, and
// registers it under the given name.
func (h *Host) RegisterScript(name, source string) error {
	if name == "" {
		return fmt.Errorf("callback name cannot be empty")
	}
	val, err := h.vm.RunString(source)
	if err != nil {
		return fmt.Errorf("failed to compile script %q: %w", name, err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return fmt.Errorf("script %q does not evaluate to a function", name)
	}
	h.jsfns[name] = fn
	return nil
}

// Call invokes the named callback. Go callbacks take precedence over
// scripts of the same name.
func (h *Host) Call(name string) error {
	if fn, ok := h.gofns[name]; ok {
		fn()
		return nil
	}
	if fn, ok := h.jsfns[name]; ok {
		if _, err := fn(goja.Undefined()); err != nil {
			return fmt.Errorf("script %q failed: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", errors.ErrUnknownFunction, name)
}

// Has reports whether a callback is registered under the name.
func (h *Host) Has(name string) bool {
	_, ok := h.gofns[name]
	if ok {
		return true
	}
	_, ok = h.jsfns[name]
	return ok
}
