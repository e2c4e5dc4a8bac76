package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/story/field"
	"github.com/wehubfusion/Fabula/pkg/story/graph"
	"github.com/wehubfusion/Fabula/pkg/story/node"
	"github.com/wehubfusion/Fabula/pkg/story/registry"
)

// testHost drives engine tests over real registries and records the control
// transfers a session would act on.
type testHost struct {
	vars *registry.Variables
	inv  *registry.Inventory
	rng  *rand.Rand

	eng *Engine

	logTitles []string
	calls     []string
	loads     []string
	returns   int
}

func newTestHost(t *testing.T) *testHost {
	return &testHost{
		vars: registry.NewVariables(zap.NewNop()),
		inv:  registry.NewInventory(),
		rng:  rand.New(rand.NewSource(1)),
	}
}

func (h *testHost) Variables() node.VariableStore { return h.vars }

func (h *testHost) Inventory() node.InventoryStore { return h.inv }

func (h *testHost) Media() node.MediaPlayer { return noopMedia{} }

func (h *testHost) AppendLog(title, text string) { h.logTitles = append(h.logTitles, title) }

func (h *testHost) RemoteCall(name string) { h.calls = append(h.calls, name) }

func (h *testHost) JumpTo(nodeID int) {
	if h.eng != nil {
		h.eng.RequestJump(nodeID)
	}
}

func (h *testHost) Load(filePath string, holdNodeID, jumpToNodeID int) {
	h.loads = append(h.loads, filePath)
	if h.eng != nil {
		h.eng.HaltForJump()
	}
}

func (h *testHost) ReturnToPrevious() {
	h.returns++
	if h.eng != nil {
		h.eng.HaltForReturn()
	}
}

func (h *testHost) ActivateNodeOption(ref field.OptionRef) { h.toggleOption(ref, true) }

func (h *testHost) DeactivateNodeOption(ref field.OptionRef) { h.toggleOption(ref, false) }

func (h *testHost) toggleOption(ref field.OptionRef, active bool) {
	if h.eng == nil {
		return
	}
	if oc, ok := h.eng.Graph().NodeByID(ref.NodeID).(node.OptionCarrier); ok {
		oc.SetOptionActive(ref.OptionIndex, active)
	}
}

func (h *testHost) Rand() *rand.Rand { return h.rng }

func (h *testHost) Logger() *zap.Logger { return zap.NewNop() }

type noopMedia struct{}

func (noopMedia) PlaySound(src string) error { return nil }

func (noopMedia) PlayMusic(src string) error { return nil }

func (noopMedia) SetBackground(src string, forceFit bool) error { return nil }

func newEngine(t *testing.T, g *graph.Graph, h *testHost) *Engine {
	eng, err := New(Config{Graph: g, Host: h, Logger: zap.NewNop()})
	require.NoError(t, err)
	h.eng = eng
	return eng
}

func TestNew_Validation(t *testing.T) {
	h := newTestHost(t)
	_, err := New(Config{Host: h})
	assert.Error(t, err)
	_, err = New(Config{Graph: graph.New("a.json", nil)})
	assert.Error(t, err)
}

func TestBegin_EmptyGraphFails(t *testing.T) {
	h := newTestHost(t)
	eng := newEngine(t, graph.New("a.json", nil), h)
	assert.Error(t, eng.Begin(0))
}

func TestBegin_CascadesFromStartToDeadEnd(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	logNode, _ := g.Add(node.TypeLog, 0, 0)
	pass, _ := g.Add(node.TypePass, 0, 0)
	logNode.(*node.LogNode).Title.Set("visited")
	start.Outs()[0].SetTarget(logNode)
	logNode.Outs()[0].SetTarget(pass)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.Equal(t, StateAtNode, eng.State())
	assert.Same(t, pass, eng.Current(), "the cascade halts at the unwired branch")
	assert.Equal(t, []string{"visited"}, h.logTitles)
	assert.False(t, eng.AwaitingChoice())
}

func TestBegin_VisitsNodesInOrder(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	a, _ := g.Add(node.TypePass, 0, 0)
	b, _ := g.Add(node.TypePass, 0, 0)
	start.Outs()[0].SetTarget(a)
	a.Outs()[0].SetTarget(b)

	var visited []int
	h := newTestHost(t)
	eng, err := New(Config{
		Graph:   g,
		Host:    h,
		OnEnter: func(n node.Node) { visited = append(visited, n.ID()) },
	})
	require.NoError(t, err)
	h.eng = eng

	require.NoError(t, eng.Begin(0))
	assert.Equal(t, []int{start.ID(), a.ID(), b.ID()}, visited)
}

func TestBegin_JumpTargetOverridesStart(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	g.Add(node.TypeStart, 0, 0)
	island, _ := g.Add(node.TypePass, 0, 0)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(island.ID()))
	assert.Same(t, island, eng.Current())
}

func TestBegin_MissingJumpTargetFallsBackToStart(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(99))
	assert.Same(t, start, eng.Current())
}

func TestBegin_NoStartNodeUsesFirstNode(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	first, _ := g.Add(node.TypePass, 0, 0)
	g.Add(node.TypePass, 0, 0)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))
	assert.Same(t, first, eng.Current())
}

func TestConditionalBranching_GoldThreshold(t *testing.T) {
	build := func(t *testing.T, gold int) (*Engine, node.Node, node.Node) {
		g := graph.New("a.json", zap.NewNop())
		start, _ := g.Add(node.TypeStart, 0, 0)
		check, _ := g.Add(node.TypeIfVariable, 0, 0)
		rich, _ := g.Add(node.TypeDialog, 0, 0)
		poor, _ := g.Add(node.TypeDialog, 0, 0)

		cn := check.(*node.IfVariableNode)
		cn.Key.Set("gold")
		cn.Cond.Set(">=")
		cn.Val.Set(10)
		start.Outs()[0].SetTarget(check)
		check.Outs()[0].SetTarget(rich)
		check.Outs()[1].SetTarget(poor)

		h := newTestHost(t)
		require.NoError(t, h.vars.Define("gold", field.TypeWhole, gold))
		eng := newEngine(t, g, h)
		require.NoError(t, eng.Begin(0))
		return eng, rich, poor
	}

	eng, rich, _ := build(t, 15)
	assert.Same(t, rich, eng.Current())

	eng, _, poor := build(t, 9)
	assert.Same(t, poor, eng.Current())
}

func TestAwaitingChoice_AndChoose(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	story, _ := g.Add(node.TypeStory, 0, 0)
	left, _ := g.Add(node.TypeLog, 0, 0)
	left.(*node.LogNode).Title.Set("left")

	sn := story.(*node.StoryNode)
	sn.SetOptions([]node.Option{
		{Text: "left", Active: true},
		{Text: "right", Active: true},
	})
	start.Outs()[0].SetTarget(story)
	story.Outs()[0].SetTarget(left)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	require.Same(t, story, eng.Current())
	assert.True(t, eng.AwaitingChoice())

	assert.Error(t, eng.Choose(5), "out of range")
	assert.Error(t, eng.Choose(-1))

	require.NoError(t, eng.Choose(0))
	assert.Same(t, left, eng.Current())
	assert.Equal(t, []string{"left"}, h.logTitles)
}

func TestChoose_InactiveOptionRejected(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	story, _ := g.Add(node.TypeStory, 0, 0)
	story.(*node.StoryNode).SetOptions([]node.Option{
		{Text: "open", Active: true},
		{Text: "locked", Active: false},
		{Text: "open too", Active: true},
	})

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.Error(t, eng.Choose(1))
}

func TestChoose_UnwiredTargetIsTerminal(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	story, _ := g.Add(node.TypeStory, 0, 0)
	story.(*node.StoryNode).SetOptions([]node.Option{
		{Text: "a", Active: true},
		{Text: "b", Active: true},
	})

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	require.NoError(t, eng.Choose(1), "an unfinished branch is a normal ending")
	assert.Same(t, story, eng.Current())
}

func TestChoose_WithoutPendingChoiceFails(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	g.Add(node.TypeStart, 0, 0)
	h := newTestHost(t)
	eng := newEngine(t, g, h)
	assert.Error(t, eng.Choose(0))
}

func TestIntraFileJump_RedirectsCascade(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	jump, _ := g.Add(node.TypeJump, 0, 0)
	island, _ := g.Add(node.TypeLog, 0, 0)
	island.(*node.LogNode).Title.Set("landed")

	jump.(*node.JumpNode).TargetID.Set(island.ID())
	start.Outs()[0].SetTarget(jump)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.Same(t, island, eng.Current(), "the cascade continues at the jump target")
	assert.Equal(t, []string{"landed"}, h.logTitles)
	assert.Empty(t, h.loads, "an empty source never leaves the file")
}

func TestCrossFileJump_ParksEngine(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	jump, _ := g.Add(node.TypeJump, 0, 0)
	jn := jump.(*node.JumpNode)
	jn.Src.Set("b.json")
	jn.TargetID.Set(5)
	start.Outs()[0].SetTarget(jump)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.Equal(t, StateHaltedForJump, eng.State())
	assert.Equal(t, []string{"b.json"}, h.loads)
}

func TestReturnNode_ParksEngineForReturn(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	ret, _ := g.Add(node.TypeReturn, 0, 0)
	_ = ret

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.Equal(t, StateHaltedForReturn, eng.State())
	assert.Equal(t, 1, h.returns)
}

func TestResumeAfterReturn_FollowsFirstOutput(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	jump, _ := g.Add(node.TypeJump, 0, 0)
	after, _ := g.Add(node.TypeLog, 0, 0)
	after.(*node.LogNode).Title.Set("resumed")
	jump.Outs()[0].SetTarget(after)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.ResumeAfterReturn(jump.ID()))

	assert.Same(t, after, eng.Current())
	assert.Equal(t, []string{"resumed"}, h.logTitles)
}

func TestResumeAfterReturn_UnwiredOutputHalts(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	jump, _ := g.Add(node.TypeJump, 0, 0)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.ResumeAfterReturn(jump.ID()))
	assert.Same(t, jump, eng.Current())

	assert.Error(t, eng.ResumeAfterReturn(99))
}

func TestOptionAvailability_CascadeSeesEarlierEffects(t *testing.T) {
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	toggle, _ := g.Add(node.TypeOptionAvailability, 0, 0)
	story, _ := g.Add(node.TypeStory, 0, 0)

	sn := story.(*node.StoryNode)
	sn.SetOptions([]node.Option{
		{Text: "stay", Active: true},
		{Text: "secret", Active: false},
	})
	tn := toggle.(*node.OptionAvailabilityNode)
	tn.Target.Set(field.OptionRef{NodeID: story.ID(), OptionIndex: 1})
	tn.Active.Set(true)

	start.Outs()[0].SetTarget(toggle)
	toggle.Outs()[0].SetTarget(story)

	h := newTestHost(t)
	eng := newEngine(t, g, h)
	require.NoError(t, eng.Begin(0))

	assert.True(t, eng.AwaitingChoice(), "the activated option opens a real choice")
	assert.Equal(t, []node.Option{
		{Text: "stay", Active: true},
		{Text: "secret", Active: true},
	}, sn.Options())
}

func TestReturnStack_PushPop(t *testing.T) {
	s := NewReturnStack()
	_, err := s.Pop()
	assert.Error(t, err)

	s.Push(Frame{File: "a.json", NodeID: 3})
	s.Push(Frame{File: "b.json", NodeID: 5})
	assert.Equal(t, 2, s.Len())

	f, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, Frame{File: "b.json", NodeID: 5}, f)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, []Frame{{File: "a.json", NodeID: 3}}, s.Frames())
}
