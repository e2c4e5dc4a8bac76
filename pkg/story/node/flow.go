package node

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// PassNode is the default fallthrough variant: executing it follows the
// first output.
type PassNode struct {
	BaseNode
}

// NewPass creates a pass-through node.
func NewPass() *PassNode {
	n := &PassNode{}
	n.init(TypePass, colorFlow, 1)
	return n
}

// Execute follows the first output.
func (n *PassNode) Execute(h Host) *Output { return n.FirstOut() }

// StartNode marks the entry point of a file's graph.
type StartNode struct {
	BaseNode
}

// NewStart creates a start node.
func NewStart() *StartNode {
	n := &StartNode{}
	n.init(TypeStart, colorFlow, 1)
	return n
}

// Execute follows the first output.
func (n *StartNode) Execute(h Host) *Output { return n.FirstOut() }

// CommentNode is an editor annotation. It has no runtime effect.
type CommentNode struct {
	BaseNode
	Text *field.Field
}

// NewComment creates a comment node.
func NewComment() *CommentNode {
	n := &CommentNode{Text: field.NewText("text", "comment")}
	n.init(TypeComment, colorFlow, 1, n.Text)
	return n
}

// Execute follows the first output without side effects.
func (n *CommentNode) Execute(h Host) *Output { return n.FirstOut() }

// LogNode appends an entry to the session log and falls through.
type LogNode struct {
	BaseNode
	Title *field.Field
	Text  *field.Field
}

// NewLog creates a log node.
func NewLog() *LogNode {
	n := &LogNode{
		Title: field.NewString("title", "title"),
		Text:  field.NewText("text", "entry text"),
	}
	n.init(TypeLog, colorText, 1, n.Title, n.Text)
	return n
}

// Execute appends the log entry and follows the first output.
func (n *LogNode) Execute(h Host) *Output {
	h.AppendLog(n.Title.String(), n.Text.String())
	return n.FirstOut()
}

// FunctionCallNode invokes a named callback on the host's remote-call
// registry and falls through.
type FunctionCallNode struct {
	BaseNode
	Function *field.Field
}

// NewFunctionCall creates a function call node.
func NewFunctionCall() *FunctionCallNode {
	n := &FunctionCallNode{Function: field.NewString("function", "function name")}
	n.init(TypeFunctionCall, colorLogic, 1, n.Function)
	return n
}

// Execute invokes the named callback and follows the first output.
func (n *FunctionCallNode) Execute(h Host) *Output {
	h.RemoteCall(n.Function.String())
	return n.FirstOut()
}

// JumpNode transfers control to another node. With an empty source file the
// jump stays within the current file; with a source file set the host loads
// that file and traversal of the current graph halts.
type JumpNode struct {
	BaseNode
	Src      *field.Field
	TargetID *field.Field
}

// NewJump creates a jump node.
func NewJump() *JumpNode {
	n := &JumpNode{
		Src:      field.NewString("src", "file path"),
		TargetID: field.NewIndex("nodeId", field.KindNodeIndex),
	}
	n.init(TypeJump, colorFlow, 1, n.Src, n.TargetID)
	return n
}

// Execute requests the jump and halts local traversal. The host's Load pushes
// this node onto the return stack before switching files.
func (n *JumpNode) Execute(h Host) *Output {
	src := n.Src.String()
	target := n.TargetID.Int()
	if src == "" {
		h.JumpTo(target)
		return nil
	}
	h.Load(src, n.ID(), target)
	return nil
}

// ReturnNode pops the return stack and resumes the previous file just past
// its jump-out point. Control belongs to the return mechanism, so local
// traversal halts.
type ReturnNode struct {
	BaseNode
}

// NewReturn creates a return node.
func NewReturn() *ReturnNode {
	n := &ReturnNode{}
	n.init(TypeReturn, colorFlow, 1)
	return n
}

// Execute requests the return and halts local traversal.
func (n *ReturnNode) Execute(h Host) *Output {
	h.ReturnToPrevious()
	return nil
}

// RandomNode follows one of its outputs chosen uniformly at random. Its
// output list is dynamic.
type RandomNode struct {
	BaseNode
}

// NewRandom creates a random branch node with two initial outputs.
func NewRandom() *RandomNode {
	n := &RandomNode{}
	n.init(TypeRandom, colorLogic, 2)
	return n
}

// AddOut appends one output slot.
func (n *RandomNode) AddOut() *Output { return n.addOut() }

// RemoveOut removes the i-th output slot, keeping at least one.
func (n *RandomNode) RemoveOut(i int) { n.removeOut(i) }

// Execute follows a uniformly chosen output.
func (n *RandomNode) Execute(h Host) *Output {
	outs := n.Outs()
	if len(outs) == 0 {
		return nil
	}
	i := h.Rand().Intn(len(outs))
	h.Logger().Debug("random branch chosen", zap.Int("nodeId", n.ID()), zap.Int("out", i))
	return outs[i]
}
