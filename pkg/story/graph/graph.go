// Package graph implements the story file container: an ordered collection
// of nodes with unique ids, the editing operations that preserve the graph's
// structural invariants, and the two-pass serialization that flattens object
// references to ids and relinks them on load.
package graph

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/node"
)

// File is the persisted form of one graph.
type File struct {
	Name  string        `json:"name"`
	Nodes []node.Record `json:"nodes"`
}

// RelinkWarning reports one output id that could not be resolved during
// load. The slot is left unwired; the warning lets a caller surface the loss
// instead of hiding it.
type RelinkWarning struct {
	NodeID   int
	OutIndex int
	TargetID int
}

func (w RelinkWarning) String() string {
	return fmt.Sprintf("node %d out %d references missing node %d", w.NodeID, w.OutIndex, w.TargetID)
}

// Graph is an ordered collection of nodes forming one loadable story unit.
type Graph struct {
	name   string
	nodes  []node.Node
	nextID int
	logger *zap.Logger
}

// New creates an empty graph.
func New(name string, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{name: name, nextID: 1, logger: logger}
}

// Name returns the file name of the graph.
func (g *Graph) Name() string { return g.name }

// SetName renames the graph.
func (g *Graph) SetName(name string) { g.name = name }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []node.Node { return g.nodes }

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id int) node.Node {
	for _, n := range g.nodes {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

// Start returns the graph's start node, or nil when the file has none.
func (g *Graph) Start() node.Node {
	for _, n := range g.nodes {
		if n.Type() == node.TypeStart {
			return n
		}
	}
	return nil
}

// Add creates a fresh node of the given variant at the given position and
// assigns it the next id. Ids are never reused while the graph is loaded,
// even after deletions.
func (g *Graph) Add(typeTag string, x, y float64) (node.Node, error) {
	n, err := node.New(typeTag)
	if err != nil {
		return nil, err
	}
	n.SetID(g.takeID())
	n.SetPosition(x, y)
	g.nodes = append(g.nodes, n)
	return n, nil
}

// Remove deletes the node with the given id and unwires every output in the
// graph that pointed at it, so no dangling reference survives.
func (g *Graph) Remove(id int) error {
	idx := -1
	for i, n := range g.nodes {
		if n.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: id %d", errors.ErrNodeNotFound, id)
	}
	removed := g.nodes[idx]
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	for _, n := range g.nodes {
		for _, o := range n.Outs() {
			if o.Target() == removed {
				o.SetTarget(nil)
			}
		}
	}
	return nil
}

// Duplicate copies the node with the given id: field values and option shape
// are cloned, the copy gets a fresh id, and every output is left unwired.
func (g *Graph) Duplicate(id int) (node.Node, error) {
	src := g.NodeByID(id)
	if src == nil {
		return nil, fmt.Errorf("%w: id %d", errors.ErrNodeNotFound, id)
	}
	rec := node.Serialize(src)
	return g.stampOut(rec)
}

// Instantiate stamps out a node from a template record: prefilled field
// values and shape, fresh id, no outgoing edges.
func (g *Graph) Instantiate(template node.Record) (node.Node, error) {
	return g.stampOut(template)
}

func (g *Graph) stampOut(rec node.Record) (node.Node, error) {
	n, _, err := node.Decode(rec)
	if err != nil {
		return nil, err
	}
	n.SetID(g.takeID())
	if cl, ok := n.(interface{ ClearOuts() }); ok {
		cl.ClearOuts()
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

func (g *Graph) takeID() int {
	id := g.nextID
	g.nextID++
	return id
}

// NextID returns the id the next created node would receive.
func (g *Graph) NextID() int { return g.nextID }

// Save flattens the graph into its persisted file form.
func (g *Graph) Save() File {
	f := File{Name: g.name, Nodes: make([]node.Record, len(g.nodes))}
	for i, n := range g.nodes {
		f.Nodes[i] = node.Serialize(n)
	}
	return f
}

// MarshalJSON serializes the graph as its file form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Save())
}

// Load reconstructs a graph from its file form in two passes: first every
// node is instantiated from its record, then each persisted out id is
// resolved against the loaded nodes. Unresolved ids leave the slot unwired
// and are reported as warnings rather than failing the load.
func Load(f File, logger *zap.Logger) (*Graph, []RelinkWarning, error) {
	g := New(f.Name, logger)
	rawOuts := make([][]*int, len(f.Nodes))
	for i, rec := range f.Nodes {
		n, outs, err := node.Decode(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", rec.ID, err)
		}
		g.nodes = append(g.nodes, n)
		rawOuts[i] = outs
		if n.ID() >= g.nextID {
			g.nextID = n.ID() + 1
		}
	}

	var warnings []RelinkWarning
	for i, n := range g.nodes {
		for outIdx, targetID := range rawOuts[i] {
			if targetID == nil || outIdx >= len(n.Outs()) {
				continue
			}
			target := g.NodeByID(*targetID)
			if target == nil {
				w := RelinkWarning{NodeID: n.ID(), OutIndex: outIdx, TargetID: *targetID}
				warnings = append(warnings, w)
				g.logger.Warn("unresolved output target",
					zap.String("file", g.name),
					zap.Int("nodeId", w.NodeID),
					zap.Int("out", w.OutIndex),
					zap.Int("targetId", w.TargetID))
				continue
			}
			n.Outs()[outIdx].SetTarget(target)
		}
	}
	return g, warnings, nil
}

// LoadJSON reconstructs a graph from raw file bytes.
func LoadJSON(data []byte, logger *zap.Logger) (*Graph, []RelinkWarning, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse story file: %w", err)
	}
	return Load(f, logger)
}
