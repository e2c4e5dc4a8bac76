package player

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/engine"
	"github.com/wehubfusion/Fabula/pkg/events"
	"github.com/wehubfusion/Fabula/pkg/storage"
	"github.com/wehubfusion/Fabula/pkg/story/field"
	"github.com/wehubfusion/Fabula/pkg/story/graph"
	"github.com/wehubfusion/Fabula/pkg/story/node"
	"github.com/wehubfusion/Fabula/pkg/story/registry"
)

// capturePublisher records the play stream for assertions.
type capturePublisher struct {
	events []events.Event
}

func (c *capturePublisher) Publish(ev events.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) ofType(t events.Type) []events.Event {
	var out []events.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func writeGraph(t *testing.T, store storage.Store, g *graph.Graph) {
	data, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), g.Name(), data))
}

func writeMeta(t *testing.T, store storage.Store, meta *registry.Meta) {
	data, err := meta.Marshal()
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), storage.MetaFileName, data))
}

func newSession(t *testing.T, store storage.Store, pub events.Publisher) *Session {
	s, err := NewSession(context.Background(), Config{
		Store:     store,
		Publisher: pub,
		Logger:    zap.NewNop(),
		Seed:      1,
	})
	require.NoError(t, err)
	return s
}

func TestNewSession_RequiresStore(t *testing.T) {
	_, err := NewSession(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewSession_LoadsMetaVariables(t *testing.T) {
	store := storage.NewMemory()
	meta := registry.NewMeta()
	meta.Variables = []registry.VariableRecord{
		{Name: "gold", Type: field.TypeWhole, Value: 7},
	}
	writeMeta(t, store, meta)

	s := newSession(t, store, &capturePublisher{})
	val, ok := s.Variables().Value("gold")
	require.True(t, ok)
	assert.Equal(t, 7, val)
}

func TestNewSession_MissingMetaIsEmptyProject(t *testing.T) {
	s := newSession(t, storage.NewMemory(), &capturePublisher{})
	assert.Empty(t, s.Meta().Characters)
	assert.False(t, s.Variables().Exists("anything"))
}

func TestStart_MissingFileFails(t *testing.T) {
	s := newSession(t, storage.NewMemory(), &capturePublisher{})
	assert.Error(t, s.Start(context.Background(), "nowhere.json"))
}

func TestStart_RunsToChoiceAndEmitsEvents(t *testing.T) {
	store := storage.NewMemory()
	meta := registry.NewMeta()
	require.NoError(t, meta.AddCharacter("merchant"))
	writeMeta(t, store, meta)

	g := graph.New("intro.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	talk, _ := g.Add(node.TypeDialog, 0, 0)
	dn := talk.(*node.DialogNode)
	dn.Character.Set(0)
	dn.Text.Set("Buying or selling?")
	dn.SetOptions([]node.Option{
		{Text: "Buying", Active: true},
		{Text: "Selling", Active: true},
	})
	start.Outs()[0].SetTarget(talk)
	writeGraph(t, store, g)

	pub := &capturePublisher{}
	s := newSession(t, store, pub)
	require.NoError(t, s.Start(context.Background(), "intro.json"))

	assert.True(t, s.AwaitingChoice())
	assert.Equal(t, "intro.json", s.CurrentFile())

	loaded := pub.ofType(events.TypeFileLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, "intro.json", loaded[0].File)

	shown := pub.ofType(events.TypeTextShown)
	require.Len(t, shown, 1)
	assert.Equal(t, "Merchant", shown[0].Speaker, "speaker names render title-cased")
	assert.Equal(t, "Buying or selling?", shown[0].Text)

	offered := pub.ofType(events.TypeOptionsOffered)
	require.Len(t, offered, 1)
	require.Len(t, offered[0].Options, 2)
	assert.Equal(t, "Selling", offered[0].Options[1].Text)

	for _, ev := range pub.events {
		assert.Equal(t, s.ID(), ev.SessionID)
		assert.NotEmpty(t, ev.CorrelationID)
	}
}

func TestChoose_FollowsOptionAndEmitsHalt(t *testing.T) {
	store := storage.NewMemory()
	g := graph.New("intro.json", zap.NewNop())
	story, _ := g.Add(node.TypeStory, 0, 0)
	sn := story.(*node.StoryNode)
	sn.Text.Set("A fork in the road.")
	sn.SetOptions([]node.Option{
		{Text: "North", Active: true},
		{Text: "South", Active: true},
	})
	south, _ := g.Add(node.TypeStory, 0, 0)
	south.(*node.StoryNode).Text.Set("The south road narrows.")
	story.Outs()[1].SetTarget(south)
	writeGraph(t, store, g)

	pub := &capturePublisher{}
	s := newSession(t, store, pub)
	require.NoError(t, s.Start(context.Background(), "intro.json"))
	require.True(t, s.AwaitingChoice())

	require.NoError(t, s.Choose(context.Background(), 1))
	assert.False(t, s.AwaitingChoice())

	shown := pub.ofType(events.TypeTextShown)
	require.Len(t, shown, 2)
	assert.Equal(t, "The south road narrows.", shown[1].Text)
	assert.Len(t, pub.ofType(events.TypeHalted), 1)
}

func TestChoose_BeforeStartFails(t *testing.T) {
	s := newSession(t, storage.NewMemory(), &capturePublisher{})
	assert.Error(t, s.Choose(context.Background(), 0))
}

func TestSession_VariableWritesEmitEvents(t *testing.T) {
	store := storage.NewMemory()
	meta := registry.NewMeta()
	meta.Variables = []registry.VariableRecord{
		{Name: "gold", Type: field.TypeWhole, Value: 5},
	}
	writeMeta(t, store, meta)

	g := graph.New("intro.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	earn, _ := g.Add(node.TypeAddToVariable, 0, 0)
	en := earn.(*node.AddToVariableNode)
	en.Key.Set("gold")
	en.Val.Set(10)
	start.Outs()[0].SetTarget(earn)
	writeGraph(t, store, g)

	pub := &capturePublisher{}
	s := newSession(t, store, pub)
	require.NoError(t, s.Start(context.Background(), "intro.json"))

	val, _ := s.Variables().Value("gold")
	assert.Equal(t, 15, val)

	changed := pub.ofType(events.TypeVariableChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "gold", changed[0].Variable)
	assert.Equal(t, 15, changed[0].Value)
}

func TestSession_CrossFileJumpAndReturn(t *testing.T) {
	store := storage.NewMemory()

	a := graph.New("a.json", zap.NewNop())
	aStart, _ := a.Add(node.TypeStart, 0, 0)
	jump, _ := a.Add(node.TypeJump, 0, 0)
	back, _ := a.Add(node.TypeLog, 0, 0)
	jump.(*node.JumpNode).Src.Set("b.json")
	back.(*node.LogNode).Title.Set("back home")
	aStart.Outs()[0].SetTarget(jump)
	jump.Outs()[0].SetTarget(back)
	writeGraph(t, store, a)

	b := graph.New("b.json", zap.NewNop())
	bStart, _ := b.Add(node.TypeStart, 0, 0)
	there, _ := b.Add(node.TypeLog, 0, 0)
	ret, _ := b.Add(node.TypeReturn, 0, 0)
	there.(*node.LogNode).Title.Set("abroad")
	bStart.Outs()[0].SetTarget(there)
	there.Outs()[0].SetTarget(ret)
	writeGraph(t, store, b)

	pub := &capturePublisher{}
	s := newSession(t, store, pub)
	require.NoError(t, s.Start(context.Background(), "a.json"))

	assert.Equal(t, "a.json", s.CurrentFile(), "the return lands back in the origin file")
	assert.Equal(t, 0, s.ReturnStack().Len())
	assert.Equal(t, engine.StateAtNode, s.Engine().State())

	entries := s.SessionLog().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "abroad", entries[0].Title)
	assert.Equal(t, "back home", entries[1].Title, "the return resumes past the jump-out point")

	loaded := pub.ofType(events.TypeFileLoaded)
	require.Len(t, loaded, 3)
	assert.Equal(t, "a.json", loaded[0].File)
	assert.Equal(t, "b.json", loaded[1].File)
	assert.Equal(t, "a.json", loaded[2].File)
}

func TestSession_CrossFileJumpToSpecificNode(t *testing.T) {
	store := storage.NewMemory()

	a := graph.New("a.json", zap.NewNop())
	jump, _ := a.Add(node.TypeJump, 0, 0)
	jn := jump.(*node.JumpNode)
	jn.Src.Set("b.json")
	writeGraph(t, store, a)

	b := graph.New("b.json", zap.NewNop())
	b.Add(node.TypeStart, 0, 0)
	island, _ := b.Add(node.TypeLog, 0, 0)
	island.(*node.LogNode).Title.Set("island")
	writeGraph(t, store, b)

	// Point the jump at the island node rather than the start node.
	jn.TargetID.Set(island.ID())
	writeGraph(t, store, a)

	s := newSession(t, store, &capturePublisher{})
	require.NoError(t, s.Start(context.Background(), "a.json"))

	assert.Equal(t, "b.json", s.CurrentFile())
	entries := s.SessionLog().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "island", entries[0].Title)
	assert.Equal(t, 1, s.ReturnStack().Len(), "the jump stays on the stack until a return")
}

func TestSession_ReturnWithEmptyStackEndsTraversal(t *testing.T) {
	store := storage.NewMemory()
	g := graph.New("a.json", zap.NewNop())
	g.Add(node.TypeReturn, 0, 0)
	writeGraph(t, store, g)

	s := newSession(t, store, &capturePublisher{})
	require.NoError(t, s.Start(context.Background(), "a.json"))
	assert.Equal(t, engine.StateHaltedForReturn, s.Engine().State())
}

func TestSession_SeededTraversalIsDeterministic(t *testing.T) {
	store := storage.NewMemory()
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	branch, _ := g.Add(node.TypeRandom, 0, 0)
	left, _ := g.Add(node.TypeLog, 0, 0)
	right, _ := g.Add(node.TypeLog, 0, 0)
	left.(*node.LogNode).Title.Set("left")
	right.(*node.LogNode).Title.Set("right")
	start.Outs()[0].SetTarget(branch)
	branch.Outs()[0].SetTarget(left)
	branch.Outs()[1].SetTarget(right)
	writeGraph(t, store, g)

	run := func() string {
		s := newSession(t, store, &capturePublisher{})
		require.NoError(t, s.Start(context.Background(), "a.json"))
		entries := s.SessionLog().Entries()
		require.Len(t, entries, 1)
		return entries[0].Title
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run(), "equal seeds must take equal branches")
	}
}

func TestSession_RemoteCallRunsRegisteredScript(t *testing.T) {
	store := storage.NewMemory()
	meta := registry.NewMeta()
	meta.Variables = []registry.VariableRecord{
		{Name: "flag", Type: field.TypeBool, Value: false},
	}
	writeMeta(t, store, meta)

	g := graph.New("a.json", zap.NewNop())
	call, _ := g.Add(node.TypeFunctionCall, 0, 0)
	call.(*node.FunctionCallNode).Function.Set("raiseFlag")
	writeGraph(t, store, g)

	s := newSession(t, store, &capturePublisher{})
	require.NoError(t, s.sh.RegisterScript("raiseFlag",
		`(function() { story.setVariable("flag", true); })`))

	require.NoError(t, s.Start(context.Background(), "a.json"))
	val, _ := s.Variables().Value("flag")
	assert.Equal(t, true, val)
}

func TestSession_OptionToggleAcrossCascade(t *testing.T) {
	store := storage.NewMemory()
	g := graph.New("a.json", zap.NewNop())
	start, _ := g.Add(node.TypeStart, 0, 0)
	toggle, _ := g.Add(node.TypeOptionAvailability, 0, 0)
	story, _ := g.Add(node.TypeStory, 0, 0)
	sn := story.(*node.StoryNode)
	sn.SetOptions([]node.Option{
		{Text: "stay", Active: true},
		{Text: "hidden door", Active: false},
	})
	tn := toggle.(*node.OptionAvailabilityNode)
	tn.Target.Set(field.OptionRef{NodeID: story.ID(), OptionIndex: 1})
	tn.Active.Set(true)
	start.Outs()[0].SetTarget(toggle)
	toggle.Outs()[0].SetTarget(story)
	writeGraph(t, store, g)

	pub := &capturePublisher{}
	s := newSession(t, store, pub)
	require.NoError(t, s.Start(context.Background(), "a.json"))

	assert.True(t, s.AwaitingChoice())
	offered := pub.ofType(events.TypeOptionsOffered)
	require.Len(t, offered, 1)
	require.Len(t, offered[0].Options, 2)
	assert.Equal(t, "hidden door", offered[0].Options[1].Text)
}

func TestSession_CloseIsIdempotentWithNoopPublisher(t *testing.T) {
	s := newSession(t, storage.NewMemory(), &capturePublisher{})
	assert.NoError(t, s.Close(context.Background()))
}
