// Package registry implements the shared project databases the graph engine
// reads and writes: typed variables, the player inventory, the session log
// and the project meta file (characters, beasts, items, variables, node
// templates).
package registry

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// VariableRecord is the persisted form of one variable definition.
type VariableRecord struct {
	Name  string        `json:"name"`
	Type  field.VarType `json:"type"`
	Value any           `json:"value"`
}

type variable struct {
	declared field.VarType
	value    any
}

// Variables is the typed variable store. Each variable keeps its declared
// type; every write is coerced to it, so the native representation survives
// arithmetic and comparison nodes.
type Variables struct {
	order  []string
	vars   map[string]*variable
	fold   cases.Caser
	logger *zap.Logger
}

// NewVariables creates an empty variable store.
func NewVariables(logger *zap.Logger) *Variables {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Variables{
		vars:   make(map[string]*variable),
		fold:   cases.Fold(),
		logger: logger,
	}
}

// Define registers a variable with its declared type and initial value.
// Names are unique case-insensitively; a collision is an author error
// surfaced to the caller, and the store is left unchanged.
func (v *Variables) Define(name string, t field.VarType, initial any) error {
	if name == "" {
		return fmt.Errorf("%w: empty variable name", errors.ErrInvalidName)
	}
	if !t.Valid() {
		return fmt.Errorf("invalid variable type %q", t)
	}
	for existing := range v.vars {
		if v.fold.String(existing) == v.fold.String(name) {
			return fmt.Errorf("%w: variable %q", errors.ErrDuplicateName, name)
		}
	}
	v.vars[name] = &variable{declared: t, value: field.Coerce(t, initial)}
	v.order = append(v.order, name)
	return nil
}

// Value returns the variable's current value in its native representation.
func (v *Variables) Value(name string) (any, bool) {
	entry, ok := v.vars[name]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// SetValue assigns a value, coerced to the variable's declared type. Writes
// to an unknown variable are dropped with a warning; story traversal must
// keep running.
func (v *Variables) SetValue(name string, value any) {
	entry, ok := v.vars[name]
	if !ok {
		v.logger.Warn("write to unknown variable dropped", zap.String("variable", name))
		return
	}
	entry.value = field.Coerce(entry.declared, value)
}

// TypeOf returns the variable's declared type.
func (v *Variables) TypeOf(name string) (field.VarType, bool) {
	entry, ok := v.vars[name]
	if !ok {
		return "", false
	}
	return entry.declared, true
}

// Exists reports whether the variable is defined.
func (v *Variables) Exists(name string) bool {
	_, ok := v.vars[name]
	return ok
}

// Names returns the defined variable names in definition order.
func (v *Variables) Names() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Records flattens the store into its persisted form, in definition order.
func (v *Variables) Records() []VariableRecord {
	records := make([]VariableRecord, 0, len(v.order))
	for _, name := range v.order {
		entry := v.vars[name]
		records = append(records, VariableRecord{Name: name, Type: entry.declared, Value: entry.value})
	}
	return records
}

// Reset restores every variable to the given records, replacing current
// state. Used when a session restarts from the project meta file.
func (v *Variables) Reset(records []VariableRecord) error {
	v.vars = make(map[string]*variable)
	v.order = nil
	for _, rec := range records {
		if err := v.Define(rec.Name, rec.Type, rec.Value); err != nil {
			return err
		}
	}
	return nil
}
