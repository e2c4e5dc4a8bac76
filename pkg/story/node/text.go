package node

import (
	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// Option is one player choice on an option-bearing node. Its index pairs
// one-to-one with the node's output index.
type Option struct {
	Text   string
	Active bool
}

// OptionCarrier is implemented by variants that expose a player-choice list.
// The output list always satisfies len(outs) >= max(1, len(options)).
type OptionCarrier interface {
	Node
	Options() []Option
	SetOptions(opts []Option)
	AddOption(o Option)
	RemoveOption(i int)
	SetOptionActive(i int, active bool)
	ActiveOptions() []int
}

// optionSet implements the option list bookkeeping shared by dialog and
// story nodes. The embedding variant wires it to its own BaseNode.
type optionSet struct {
	opts []Option
	base *BaseNode
}

func (s *optionSet) Options() []Option { return s.opts }

// SetOptions replaces the option list and grows the output list to cover it.
// Used by the record decode path, which sizes outputs from the persisted
// array afterwards.
func (s *optionSet) SetOptions(opts []Option) {
	s.opts = opts
	if need := len(s.opts); need > len(s.base.outs) {
		s.base.EnsureOuts(need)
	}
}

// AddOption appends one option. The first option reuses the default output
// slot; every further option brings its own.
func (s *optionSet) AddOption(o Option) {
	s.opts = append(s.opts, o)
	if len(s.opts) > 1 {
		s.base.addOut()
	}
}

// RemoveOption removes the option at i. Its output slot is removed with it
// as long as at least one option remains.
func (s *optionSet) RemoveOption(i int) {
	if i < 0 || i >= len(s.opts) {
		return
	}
	s.opts = append(s.opts[:i], s.opts[i+1:]...)
	if len(s.opts) >= 1 {
		s.base.removeOut(i)
	}
}

// SetOptionActive toggles the i-th option's availability.
func (s *optionSet) SetOptionActive(i int, active bool) {
	if i < 0 || i >= len(s.opts) {
		return
	}
	s.opts[i].Active = active
}

// ActiveOptions returns the indices of the currently active options.
func (s *optionSet) ActiveOptions() []int {
	var active []int
	for i, o := range s.opts {
		if o.Active {
			active = append(active, i)
		}
	}
	return active
}

// executeOptions is the shared routing for option-bearing nodes: a single
// active option falls through its output, anything else halts the cascade —
// either awaiting a player choice or as a dead end with nothing to offer.
func (s *optionSet) executeOptions() *Output {
	active := s.ActiveOptions()
	if len(active) == 1 {
		return s.base.Out(active[0])
	}
	return nil
}

// DialogNode presents character speech with a choice list.
type DialogNode struct {
	BaseNode
	optionSet
	Character *field.Field
	Text      *field.Field
}

// NewDialog creates a dialog node with one default option.
func NewDialog() *DialogNode {
	n := &DialogNode{
		Character: field.NewIndex("character", field.KindCharIndex),
		Text:      field.NewText("text", "spoken text"),
	}
	n.init(TypeDialog, colorText, 1, n.Character, n.Text)
	n.optionSet.base = &n.BaseNode
	n.optionSet.opts = []Option{{Text: "", Active: true}}
	return n
}

// Execute halts for a player choice, or falls through a lone active option.
func (n *DialogNode) Execute(h Host) *Output { return n.executeOptions() }

// StoryNode presents narration text with a choice list.
type StoryNode struct {
	BaseNode
	optionSet
	Text *field.Field
}

// NewStory creates a story node with one default option.
func NewStory() *StoryNode {
	n := &StoryNode{
		Text: field.NewText("text", "story text"),
	}
	n.init(TypeStory, colorText, 1, n.Text)
	n.optionSet.base = &n.BaseNode
	n.optionSet.opts = []Option{{Text: "", Active: true}}
	return n
}

// Execute halts for a player choice, or falls through a lone active option.
func (n *StoryNode) Execute(h Host) *Output { return n.executeOptions() }

// OptionAvailabilityNode toggles the availability of an option on another
// node, then falls through.
type OptionAvailabilityNode struct {
	BaseNode
	Target *field.Field
	Active *field.Field
}

// NewOptionAvailability creates an option availability node.
func NewOptionAvailability() *OptionAvailabilityNode {
	n := &OptionAvailabilityNode{
		Target: field.NewNodeOption("option"),
		Active: field.NewBool("active"),
	}
	n.init(TypeOptionAvailability, colorLogic, 1, n.Target, n.Active)
	return n
}

// Execute activates or deactivates the referenced option and follows the
// first output.
func (n *OptionAvailabilityNode) Execute(h Host) *Output {
	ref := n.Target.OptionRef()
	if n.Active.Bool() {
		h.ActivateNodeOption(ref)
	} else {
		h.DeactivateNodeOption(ref)
	}
	return n.FirstOut()
}
