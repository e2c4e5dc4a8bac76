// Package node defines the story graph node variants, their typed fields and
// outgoing edges, and the execution behavior each variant contributes to a
// traversal. Variants are a closed tagged union: every type registers an
// explicit string tag in the factory table used for serialization and
// deserialization dispatch.
package node

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// Output is a single outgoing edge slot. It holds at most one destination
// node and never owns it; an unset target is a normal, unwired branch.
type Output struct {
	target Node
}

// Target returns the destination node, or nil when the edge is unwired.
func (o *Output) Target() Node { return o.target }

// SetTarget wires the edge to a destination node. Passing nil unwires it.
func (o *Output) SetTarget(n Node) { o.target = n }

// Node is one executable unit in a story graph.
type Node interface {
	// ID returns the node id, unique within its graph.
	ID() int
	// SetID assigns the node id. Owned by the graph's creation paths.
	SetID(id int)
	// Position returns the editor layout position.
	Position() (x, y float64)
	// SetPosition moves the node in the editor layout.
	SetPosition(x, y float64)
	// Type returns the variant's registered string tag.
	Type() string
	// Color returns the cosmetic editor category color.
	Color() string
	// Fields returns the ordered editable field list.
	Fields() []*field.Field
	// Outs returns the ordered outgoing edge slots.
	Outs() []*Output
	// EnsureOuts resizes the output list to exactly max(1, n) slots,
	// preserving existing wiring where slots survive.
	EnsureOuts(n int)

	// Execute applies the node's runtime effect against the host and
	// returns the output to follow next. A nil result halts local
	// traversal: either the node transferred control elsewhere (jump,
	// return), awaits a player choice, or is a dead end.
	Execute(h Host) *Output
}

// DynamicOuts is implemented by variants whose output list grows and shrinks
// under editor control rather than being fixed by shape.
type DynamicOuts interface {
	AddOut() *Output
	RemoveOut(i int)
}

// VariableStore is the variable registry contract the nodes consume.
type VariableStore interface {
	Value(name string) (any, bool)
	SetValue(name string, value any)
	TypeOf(name string) (field.VarType, bool)
	Exists(name string) bool
}

// InventoryStore is the inventory registry contract the nodes consume.
type InventoryStore interface {
	Add(itemID int)
	RemoveMatching(itemID int)
	Exists(itemID int) bool
	Count(itemID int) int
}

// MediaPlayer is the media collaborator contract the nodes consume. It owns
// the single current-music and current-sound slots.
type MediaPlayer interface {
	PlaySound(src string) error
	PlayMusic(src string) error
	SetBackground(src string, forceFit bool) error
}

// Host exposes the collaborators a node may touch while executing. The
// Load implementation must push the current file and holdNodeID onto the
// return stack before starting the file switch, so that a later return
// resumes past the jump-out point.
type Host interface {
	Variables() VariableStore
	Inventory() InventoryStore
	Media() MediaPlayer

	AppendLog(title, text string)
	RemoteCall(name string)

	JumpTo(nodeID int)
	Load(filePath string, holdNodeID, jumpToNodeID int)
	ReturnToPrevious()

	ActivateNodeOption(ref field.OptionRef)
	DeactivateNodeOption(ref field.OptionRef)

	Rand() *rand.Rand
	Logger() *zap.Logger
}

// Editor category colors, cosmetic only.
const (
	colorFlow      = "#4a90d9"
	colorText      = "#58a55c"
	colorVariable  = "#d9a441"
	colorLogic     = "#c75450"
	colorMedia     = "#8e6bbf"
	colorInventory = "#b0713f"
)

// BaseNode carries the identity, field list and output slots shared by every
// variant. Embed it and register the variant's constructor in the factory
// table.
type BaseNode struct {
	id      int
	x, y    float64
	typeTag string
	color   string
	fields  []*field.Field
	outs    []*Output
}

func (b *BaseNode) init(typeTag, color string, outCount int, fields ...*field.Field) {
	b.typeTag = typeTag
	b.color = color
	b.fields = fields
	if outCount < 1 {
		outCount = 1
	}
	b.outs = make([]*Output, outCount)
	for i := range b.outs {
		b.outs[i] = &Output{}
	}
}

// ID returns the node id.
func (b *BaseNode) ID() int { return b.id }

// SetID assigns the node id.
func (b *BaseNode) SetID(id int) { b.id = id }

// Position returns the editor layout position.
func (b *BaseNode) Position() (float64, float64) { return b.x, b.y }

// SetPosition moves the node in the editor layout.
func (b *BaseNode) SetPosition(x, y float64) {
	b.x = x
	b.y = y
}

// Type returns the variant's registered string tag.
func (b *BaseNode) Type() string { return b.typeTag }

// Color returns the cosmetic editor category color.
func (b *BaseNode) Color() string { return b.color }

// Fields returns the ordered editable field list.
func (b *BaseNode) Fields() []*field.Field { return b.fields }

// FieldByName returns the named field, or nil when the variant has none.
func (b *BaseNode) FieldByName(name string) *field.Field {
	for _, f := range b.fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Outs returns the ordered outgoing edge slots.
func (b *BaseNode) Outs() []*Output { return b.outs }

// Out returns the i-th output slot, or nil when out of range.
func (b *BaseNode) Out(i int) *Output {
	if i < 0 || i >= len(b.outs) {
		return nil
	}
	return b.outs[i]
}

// FirstOut returns the default fallthrough output.
func (b *BaseNode) FirstOut() *Output { return b.Out(0) }

// EnsureOuts resizes the output list to exactly max(1, n) slots.
func (b *BaseNode) EnsureOuts(n int) {
	if n < 1 {
		n = 1
	}
	for len(b.outs) < n {
		b.outs = append(b.outs, &Output{})
	}
	if len(b.outs) > n {
		b.outs = b.outs[:n]
	}
}

func (b *BaseNode) addOut() *Output {
	o := &Output{}
	b.outs = append(b.outs, o)
	return o
}

func (b *BaseNode) removeOut(i int) {
	if len(b.outs) <= 1 || i < 0 || i >= len(b.outs) {
		return
	}
	b.outs = append(b.outs[:i], b.outs[i+1:]...)
}

// ClearOuts unwires every output slot. Used when duplicating a node or
// stamping one out from a template: outgoing edges are never copied.
func (b *BaseNode) ClearOuts() {
	for _, o := range b.outs {
		o.SetTarget(nil)
	}
}
