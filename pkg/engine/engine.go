// Package engine implements the story graph traversal: a synchronous cascade
// that executes the current node, follows the output it returns, and halts at
// player choices, unwired branches and control transfers to other files.
package engine

import (
	goerrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/graph"
	"github.com/wehubfusion/Fabula/pkg/story/node"
)

// State describes where a traversal currently stands.
type State int

const (
	// StateIdle means no traversal has started.
	StateIdle State = iota
	// StateAtNode means the cascade halted at a node: either awaiting a
	// player choice or at a dead end (unwired branch, no further action).
	StateAtNode
	// StateHaltedForJump means a cross-file jump was requested; the owner
	// must load the target file and resume there.
	StateHaltedForJump
	// StateHaltedForReturn means a return was requested; the owner must
	// reload the stacked file and resume past its jump-out point.
	StateHaltedForReturn
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAtNode:
		return "atNode"
	case StateHaltedForJump:
		return "haltedForJump"
	case StateHaltedForReturn:
		return "haltedForReturn"
	}
	return "unknown"
}

// Config assembles an engine for one loaded file.
type Config struct {
	Graph  *graph.Graph
	Host   node.Host
	Logger *zap.Logger
	// OnEnter, when set, observes every node the cascade visits, in visit
	// order, before the node executes.
	OnEnter func(n node.Node)
}

// Engine walks one loaded graph. It is single-threaded by design: a cascade
// runs to a halt state before control returns to the caller, and side
// effects of every visited node are observed by all later nodes in the same
// cascade.
type Engine struct {
	graph   *graph.Graph
	host    node.Host
	logger  *zap.Logger
	onEnter func(n node.Node)

	state       State
	current     node.Node
	pendingJump node.Node
}

// New creates an engine for a loaded graph.
func New(cfg Config) (*Engine, error) {
	if cfg.Graph == nil {
		return nil, goerrors.New("graph cannot be nil")
	}
	if cfg.Host == nil {
		return nil, goerrors.New("host cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		graph:   cfg.Graph,
		host:    cfg.Host,
		logger:  logger,
		onEnter: cfg.OnEnter,
		state:   StateIdle,
	}, nil
}

// Graph returns the graph this engine walks.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// State returns the current traversal state.
func (e *Engine) State() State { return e.state }

// Current returns the node the cascade last halted at.
func (e *Engine) Current() node.Node { return e.current }

// AwaitingChoice reports whether the cascade is parked on a node that
// exposes more than one active option to the player.
func (e *Engine) AwaitingChoice() bool {
	if e.state != StateAtNode || e.current == nil {
		return false
	}
	oc, ok := e.current.(node.OptionCarrier)
	return ok && len(oc.ActiveOptions()) > 1
}

// Begin selects the entry node and runs the first cascade. With jumpToID
// set, the node with that id is selected; otherwise the file's start node;
// otherwise, as a defensive fallback callers must not rely on, an arbitrary
// node.
func (e *Engine) Begin(jumpToID int) error {
	var start node.Node
	if jumpToID > 0 {
		start = e.graph.NodeByID(jumpToID)
		if start == nil {
			e.logger.Warn("entry node not found, falling back to start node",
				zap.String("file", e.graph.Name()), zap.Int("nodeId", jumpToID))
		}
	}
	if start == nil {
		start = e.graph.Start()
	}
	if start == nil && len(e.graph.Nodes()) > 0 {
		start = e.graph.Nodes()[0]
	}
	if start == nil {
		return fmt.Errorf("file %q has no nodes", e.graph.Name())
	}
	e.run(start)
	return nil
}

// Choose resumes a cascade parked on an option node by following the chosen
// option's output.
func (e *Engine) Choose(optionIndex int) error {
	if e.state != StateAtNode || e.current == nil {
		return fmt.Errorf("no node awaiting a choice (state %s)", e.state)
	}
	oc, ok := e.current.(node.OptionCarrier)
	if !ok {
		return fmt.Errorf("node %d does not carry options", e.current.ID())
	}
	opts := oc.Options()
	if optionIndex < 0 || optionIndex >= len(opts) {
		return fmt.Errorf("option index %d out of range", optionIndex)
	}
	if !opts[optionIndex].Active {
		return fmt.Errorf("option %d is not active", optionIndex)
	}
	out := e.current.Outs()[optionIndex]
	target := out.Target()
	if target == nil {
		// Unfinished branch, a normal terminal state.
		return nil
	}
	e.run(target)
	return nil
}

// ResumeAfterReturn re-enters this graph just past the jump-out point: the
// stacked node's first output. Used by the owner after popping the return
// stack.
func (e *Engine) ResumeAfterReturn(nodeID int) error {
	n := e.graph.NodeByID(nodeID)
	if n == nil {
		return fmt.Errorf("%w: id %d in file %q", errors.ErrNodeNotFound, nodeID, e.graph.Name())
	}
	e.state = StateAtNode
	e.current = n
	outs := n.Outs()
	if len(outs) == 0 || outs[0].Target() == nil {
		return nil
	}
	e.run(outs[0].Target())
	return nil
}

// RequestJump redirects the running cascade to another node of the same
// file. Invoked by the host when a jump node targets the current file.
func (e *Engine) RequestJump(nodeID int) {
	target := e.graph.NodeByID(nodeID)
	if target == nil {
		e.logger.Warn("jump target not found",
			zap.String("file", e.graph.Name()), zap.Int("nodeId", nodeID))
		return
	}
	e.pendingJump = target
}

// HaltForJump parks the engine while the owner performs a cross-file load.
func (e *Engine) HaltForJump() { e.state = StateHaltedForJump }

// HaltForReturn parks the engine while the owner pops the return stack.
func (e *Engine) HaltForReturn() { e.state = StateHaltedForReturn }

// run is the synchronous cascade. It executes nodes and follows returned
// outputs until a node halts traversal: no output returned (control
// transferred or awaiting input) or an unwired edge (author left the branch
// unfinished).
func (e *Engine) run(n node.Node) {
	for n != nil {
		e.state = StateAtNode
		e.current = n
		if e.onEnter != nil {
			e.onEnter(n)
		}
		e.logger.Debug("executing node",
			zap.String("file", e.graph.Name()),
			zap.Int("nodeId", n.ID()),
			zap.String("type", n.Type()))

		out := n.Execute(e.host)
		if out == nil {
			if e.pendingJump != nil {
				n = e.pendingJump
				e.pendingJump = nil
				continue
			}
			// The node asserted control transfer elsewhere or awaits
			// input; the host may have parked the engine for a jump or
			// return.
			return
		}
		target := out.Target()
		if target == nil {
			e.logger.Debug("halting at unwired output",
				zap.String("file", e.graph.Name()), zap.Int("nodeId", n.ID()))
			return
		}
		n = target
	}
}
