package node

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// VariableNode assigns a value to a registry variable and falls through. The
// value field's coercion follows the declared type of the selected variable.
type VariableNode struct {
	BaseNode
	Key *field.Field
	Val *field.Field
}

func newVariableParts() (key, val *field.Field) {
	key = field.NewVariableKey("key")
	val = field.NewVariableValue("value", key.String, nil)
	return key, val
}

// NewVariable creates a variable assignment node.
func NewVariable() *VariableNode {
	key, val := newVariableParts()
	n := &VariableNode{Key: key, Val: val}
	n.init(TypeVariable, colorVariable, 1, n.Key, n.Val)
	return n
}

// Execute assigns the coerced value into the variable and follows the first
// output. An unknown variable is logged and skipped.
func (n *VariableNode) Execute(h Host) *Output {
	key := n.Key.String()
	t, ok := h.Variables().TypeOf(key)
	if !ok {
		h.Logger().Warn("variable node references unknown variable",
			zap.Int("nodeId", n.ID()), zap.String("variable", key))
		return n.FirstOut()
	}
	h.Variables().SetValue(key, field.Coerce(t, n.Val.String()))
	return n.FirstOut()
}

// CopyVariableToVariableNode copies one variable's value into another and
// falls through.
type CopyVariableToVariableNode struct {
	BaseNode
	From *field.Field
	To   *field.Field
}

// NewCopyVariableToVariable creates a variable copy node.
func NewCopyVariableToVariable() *CopyVariableToVariableNode {
	n := &CopyVariableToVariableNode{
		From: field.NewVariableKey("from"),
		To:   field.NewVariableKey("to"),
	}
	n.init(TypeCopyVariableToVariable, colorVariable, 1, n.From, n.To)
	return n
}

// Execute copies the source value into the destination variable, coerced to
// the destination's declared type, and follows the first output.
func (n *CopyVariableToVariableNode) Execute(h Host) *Output {
	from, to := n.From.String(), n.To.String()
	val, ok := h.Variables().Value(from)
	if !ok {
		h.Logger().Warn("copy references unknown source variable",
			zap.Int("nodeId", n.ID()), zap.String("variable", from))
		return n.FirstOut()
	}
	h.Variables().SetValue(to, val)
	return n.FirstOut()
}

// AddToVariableNode accumulates the field value into a variable and falls
// through. Boolean variables do not support accumulation; the error is
// logged and traversal continues.
type AddToVariableNode struct {
	BaseNode
	Key *field.Field
	Val *field.Field
}

// NewAddToVariable creates an accumulating variable node.
func NewAddToVariable() *AddToVariableNode {
	key, val := newVariableParts()
	n := &AddToVariableNode{Key: key, Val: val}
	n.init(TypeAddToVariable, colorVariable, 1, n.Key, n.Val)
	return n
}

// Execute adds the coerced value into the variable and follows the first
// output regardless of arithmetic support.
func (n *AddToVariableNode) Execute(h Host) *Output {
	key := n.Key.String()
	t, ok := h.Variables().TypeOf(key)
	if !ok {
		h.Logger().Warn("add references unknown variable",
			zap.Int("nodeId", n.ID()), zap.String("variable", key))
		return n.FirstOut()
	}
	current, _ := h.Variables().Value(key)
	sum, err := field.Add(t, current, field.Coerce(t, n.Val.String()))
	if err != nil {
		h.Logger().Error("add to variable failed",
			zap.Int("nodeId", n.ID()), zap.String("variable", key), zap.Error(err))
		return n.FirstOut()
	}
	h.Variables().SetValue(key, sum)
	return n.FirstOut()
}

// AddVariableToVariableNode adds a source variable's value into a target
// variable and falls through.
type AddVariableToVariableNode struct {
	BaseNode
	Source *field.Field
	Target *field.Field
}

// NewAddVariableToVariable creates a variable-to-variable addition node.
func NewAddVariableToVariable() *AddVariableToVariableNode {
	n := &AddVariableToVariableNode{
		Source: field.NewVariableKey("source"),
		Target: field.NewVariableKey("target"),
	}
	n.init(TypeAddVariableToVariable, colorVariable, 1, n.Source, n.Target)
	return n
}

// Execute accumulates source into target under the target's declared type.
func (n *AddVariableToVariableNode) Execute(h Host) *Output {
	combineVariables(h, n.ID(), n.Source.String(), n.Target.String(), field.Add)
	return n.FirstOut()
}

// SubVariableFromVariableNode subtracts a source variable's value from a
// target variable and falls through.
type SubVariableFromVariableNode struct {
	BaseNode
	Source *field.Field
	Target *field.Field
}

// NewSubVariableFromVariable creates a variable-to-variable subtraction node.
func NewSubVariableFromVariable() *SubVariableFromVariableNode {
	n := &SubVariableFromVariableNode{
		Source: field.NewVariableKey("source"),
		Target: field.NewVariableKey("target"),
	}
	n.init(TypeSubVariableFromVariable, colorVariable, 1, n.Source, n.Target)
	return n
}

// Execute subtracts source from target under the target's declared type.
func (n *SubVariableFromVariableNode) Execute(h Host) *Output {
	combineVariables(h, n.ID(), n.Source.String(), n.Target.String(), field.Sub)
	return n.FirstOut()
}

func combineVariables(h Host, nodeID int, source, target string, combine func(field.VarType, any, any) (any, error)) {
	t, ok := h.Variables().TypeOf(target)
	if !ok {
		h.Logger().Warn("combine references unknown target variable",
			zap.Int("nodeId", nodeID), zap.String("variable", target))
		return
	}
	sourceVal, ok := h.Variables().Value(source)
	if !ok {
		h.Logger().Warn("combine references unknown source variable",
			zap.Int("nodeId", nodeID), zap.String("variable", source))
		return
	}
	targetVal, _ := h.Variables().Value(target)
	result, err := combine(t, targetVal, field.Coerce(t, sourceVal))
	if err != nil {
		h.Logger().Error("variable combination failed",
			zap.Int("nodeId", nodeID), zap.String("variable", target), zap.Error(err))
		return
	}
	h.Variables().SetValue(target, result)
}

// RandomVariableNode assigns a uniformly distributed random value in
// [min,max) to a variable and falls through. Text and bool variables do not
// support random assignment.
type RandomVariableNode struct {
	BaseNode
	Key *field.Field
	Min *field.Field
	Max *field.Field
}

func newRandomParts() (key, min, max *field.Field) {
	key = field.NewVariableKey("key")
	min = field.NewVariableValue("min", key.String, nil)
	max = field.NewVariableValue("max", key.String, nil)
	return key, min, max
}

// NewRandomVariable creates a random variable assignment node.
func NewRandomVariable() *RandomVariableNode {
	key, min, max := newRandomParts()
	n := &RandomVariableNode{Key: key, Min: min, Max: max}
	n.init(TypeRandomVariable, colorVariable, 1, n.Key, n.Min, n.Max)
	return n
}

// Execute assigns the random draw and follows the first output.
func (n *RandomVariableNode) Execute(h Host) *Output {
	drawRandom(h, n.ID(), n.Key.String(), n.Min.String(), n.Max.String(), false)
	return n.FirstOut()
}

// AddRandomToVariableNode accumulates a uniformly distributed random value
// in [min,max) into a variable and falls through.
type AddRandomToVariableNode struct {
	BaseNode
	Key *field.Field
	Min *field.Field
	Max *field.Field
}

// NewAddRandomToVariable creates an accumulating random variable node.
func NewAddRandomToVariable() *AddRandomToVariableNode {
	key, min, max := newRandomParts()
	n := &AddRandomToVariableNode{Key: key, Min: min, Max: max}
	n.init(TypeAddRandomToVariable, colorVariable, 1, n.Key, n.Min, n.Max)
	return n
}

// Execute accumulates the random draw and follows the first output.
func (n *AddRandomToVariableNode) Execute(h Host) *Output {
	drawRandom(h, n.ID(), n.Key.String(), n.Min.String(), n.Max.String(), true)
	return n.FirstOut()
}

func drawRandom(h Host, nodeID int, key, min, max string, accumulate bool) {
	t, ok := h.Variables().TypeOf(key)
	if !ok {
		h.Logger().Warn("random references unknown variable",
			zap.Int("nodeId", nodeID), zap.String("variable", key))
		return
	}
	draw, err := field.Random(t, field.Coerce(t, min), field.Coerce(t, max), h.Rand())
	if err != nil {
		h.Logger().Error("random draw failed",
			zap.Int("nodeId", nodeID), zap.String("variable", key), zap.Error(err))
		return
	}
	if accumulate {
		current, _ := h.Variables().Value(key)
		sum, err := field.Add(t, current, draw)
		if err != nil {
			h.Logger().Error("random accumulation failed",
				zap.Int("nodeId", nodeID), zap.String("variable", key), zap.Error(err))
			return
		}
		h.Variables().SetValue(key, sum)
		return
	}
	h.Variables().SetValue(key, draw)
}

// IfVariableNode compares a variable against a field value and branches:
// output 0 is the true branch, output 1 the false branch.
type IfVariableNode struct {
	BaseNode
	Key  *field.Field
	Cond *field.Field
	Val  *field.Field
}

// NewIfVariable creates a conditional branch node with two outputs.
func NewIfVariable() *IfVariableNode {
	key, val := newVariableParts()
	n := &IfVariableNode{Key: key, Cond: field.NewCondition("condition"), Val: val}
	n.init(TypeIfVariable, colorLogic, 2, n.Key, n.Cond, n.Val)
	return n
}

// Execute evaluates the condition and returns the matching branch.
func (n *IfVariableNode) Execute(h Host) *Output {
	key := n.Key.String()
	actual, _ := h.Variables().Value(key)
	expected := any(n.Val.String())
	if t, ok := h.Variables().TypeOf(key); ok {
		expected = field.Coerce(t, n.Val.String())
	}
	if n.Cond.Operator().Compare(actual, expected) {
		return n.Out(0)
	}
	return n.Out(1)
}

// CompareVariableNode compares two variables' values and branches: output 0
// is the true branch, output 1 the false branch.
type CompareVariableNode struct {
	BaseNode
	A    *field.Field
	Cond *field.Field
	B    *field.Field
}

// NewCompareVariable creates a variable comparison node with two outputs.
func NewCompareVariable() *CompareVariableNode {
	n := &CompareVariableNode{
		A:    field.NewVariableKey("a"),
		Cond: field.NewCondition("condition"),
		B:    field.NewVariableKey("b"),
	}
	n.init(TypeCompareVariable, colorLogic, 2, n.A, n.Cond, n.B)
	return n
}

// Execute evaluates a <cond> b and returns the matching branch.
func (n *CompareVariableNode) Execute(h Host) *Output {
	a, _ := h.Variables().Value(n.A.String())
	b, _ := h.Variables().Value(n.B.String())
	if n.Cond.Operator().Compare(a, b) {
		return n.Out(0)
	}
	return n.Out(1)
}
