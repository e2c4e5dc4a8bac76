package node

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/Fabula/pkg/errors"
)

// Variant type tags. The tag is the serialization identity of a variant and
// the dispatch key for deserialization.
const (
	TypeStart                   = "Start"
	TypePass                    = "Pass"
	TypeComment                 = "Comment"
	TypeLog                     = "Log"
	TypeDialog                  = "Dialog"
	TypeStory                   = "Story"
	TypeVariable                = "Variable"
	TypeCopyVariableToVariable  = "CopyVariableToVariable"
	TypeAddToVariable           = "AddToVariable"
	TypeAddVariableToVariable   = "AddVariableToVariable"
	TypeSubVariableFromVariable = "SubVariableFromVariable"
	TypeRandomVariable          = "RandomVariable"
	TypeAddRandomToVariable     = "AddRandomToVariable"
	TypeIfVariable              = "IfVariable"
	TypeCompareVariable         = "CompareVariable"
	TypeSound                   = "Sound"
	TypeMusic                   = "Music"
	TypeBackground              = "Background"
	TypeOptionAvailability      = "OptionAvailability"
	TypeJump                    = "Jump"
	TypeReturn                  = "Return"
	TypeFunctionCall            = "FunctionCall"
	TypeRandom                  = "Random"
	TypeInventoryAdd            = "InventoryAdd"
	TypeInventoryRemove         = "InventoryRemove"
	TypeInventoryExists         = "InventoryExists"
	TypeInventoryCount          = "InventoryCount"
)

// Factory constructs a fresh node of one variant with its creation-time
// output shape.
type Factory func() Node

var factories = map[string]Factory{
	TypeStart:                   func() Node { return NewStart() },
	TypePass:                    func() Node { return NewPass() },
	TypeComment:                 func() Node { return NewComment() },
	TypeLog:                     func() Node { return NewLog() },
	TypeDialog:                  func() Node { return NewDialog() },
	TypeStory:                   func() Node { return NewStory() },
	TypeVariable:                func() Node { return NewVariable() },
	TypeCopyVariableToVariable:  func() Node { return NewCopyVariableToVariable() },
	TypeAddToVariable:           func() Node { return NewAddToVariable() },
	TypeAddVariableToVariable:   func() Node { return NewAddVariableToVariable() },
	TypeSubVariableFromVariable: func() Node { return NewSubVariableFromVariable() },
	TypeRandomVariable:          func() Node { return NewRandomVariable() },
	TypeAddRandomToVariable:     func() Node { return NewAddRandomToVariable() },
	TypeIfVariable:              func() Node { return NewIfVariable() },
	TypeCompareVariable:         func() Node { return NewCompareVariable() },
	TypeSound:                   func() Node { return NewSound() },
	TypeMusic:                   func() Node { return NewMusic() },
	TypeBackground:              func() Node { return NewBackground() },
	TypeOptionAvailability:      func() Node { return NewOptionAvailability() },
	TypeJump:                    func() Node { return NewJump() },
	TypeReturn:                  func() Node { return NewReturn() },
	TypeFunctionCall:            func() Node { return NewFunctionCall() },
	TypeRandom:                  func() Node { return NewRandom() },
	TypeInventoryAdd:            func() Node { return NewInventoryAdd() },
	TypeInventoryRemove:         func() Node { return NewInventoryRemove() },
	TypeInventoryExists:         func() Node { return NewInventoryExists() },
	TypeInventoryCount:          func() Node { return NewInventoryCount() },
}

// Types returns every registered variant tag in sorted order.
func Types() []string {
	tags := make([]string, 0, len(factories))
	for tag := range factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// New constructs a fresh node of the given variant tag.
func New(typeTag string) (Node, error) {
	factory, ok := factories[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownNodeType, typeTag)
	}
	return factory(), nil
}

// Decode reconstructs a node from its record. Identity, position and field
// values are applied verbatim (modulo field coercion) and the output list is
// sized to the persisted outs array. The returned raw out ids are unresolved;
// the owning graph wires them once every node exists.
func Decode(rec Record) (Node, []*int, error) {
	n, err := New(rec.Type)
	if err != nil {
		return nil, nil, err
	}
	n.SetID(rec.ID)
	n.SetPosition(rec.X, rec.Y)
	if oc, ok := n.(OptionCarrier); ok && rec.Options != nil {
		opts := make([]Option, len(rec.Options))
		for i, o := range rec.Options {
			opts[i] = Option{Text: o.Text, Active: o.Active}
		}
		oc.SetOptions(opts)
	}
	n.EnsureOuts(len(rec.Outs))
	for _, f := range n.Fields() {
		if raw, ok := rec.Values[f.Name()]; ok {
			f.Set(raw)
		}
	}
	return n, rec.Outs, nil
}
