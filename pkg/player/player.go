// Package player implements the play session runtime: it owns the shared
// registries, implements the host contract node execution runs against,
// performs cross-file jumps and returns over a project file store, and emits
// the play-event stream a surrounding shell renders.
package player

import (
	"context"
	goerrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wehubfusion/Fabula/internal/tracing"
	"github.com/wehubfusion/Fabula/pkg/engine"
	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/events"
	"github.com/wehubfusion/Fabula/pkg/media"
	"github.com/wehubfusion/Fabula/pkg/script"
	"github.com/wehubfusion/Fabula/pkg/storage"
	"github.com/wehubfusion/Fabula/pkg/story/field"
	"github.com/wehubfusion/Fabula/pkg/story/graph"
	"github.com/wehubfusion/Fabula/pkg/story/node"
	"github.com/wehubfusion/Fabula/pkg/story/registry"
)

// Config assembles a play session.
type Config struct {
	// Store is the project file store. Required.
	Store storage.Store
	// Media is the media collaborator. Defaults to a player over the
	// passthrough resolver.
	Media *media.Player
	// Script is the remote-call host. Defaults to a fresh sandboxed host.
	Script *script.Host
	// Publisher receives the play-event stream. Defaults to a discard
	// publisher.
	Publisher events.Publisher
	// Logger is the zap logger. Defaults to a no-op logger.
	Logger *zap.Logger
	// Tracing, when set, initializes OpenTelemetry for the session.
	Tracing *TracingConfig
	// Seed seeds the session's random source. Zero draws from the clock.
	Seed int64
}

type pendingLoad struct {
	file   string
	jumpTo int
}

// Session is one playthrough of a project. It is single-threaded: Start and
// Choose run a full cascade to its halt state before returning, and the
// session implements the host contract those cascades execute against.
type Session struct {
	id    string
	store storage.Store

	meta  *registry.Meta
	vars  *registry.Variables
	inv   *registry.Inventory
	slog  *registry.Log
	media *media.Player
	sh    *script.Host

	publisher events.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	shutdown  func(context.Context) error

	rng    *rand.Rand
	titler cases.Caser

	eng         *engine.Engine
	stack       *engine.ReturnStack
	currentFile string

	pendingLoad   *pendingLoad
	pendingReturn bool
}

// NewSession creates a session over the given project store, loading the
// shared meta file and resetting the variable registry from it. A missing
// meta file yields an empty project.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, goerrors.New("store cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mp := cfg.Media
	if mp == nil {
		var err error
		mp, err = media.NewPlayer(media.PassthroughResolver(), logger)
		if err != nil {
			return nil, err
		}
	}
	sh := cfg.Script
	if sh == nil {
		var err error
		sh, err = script.NewHost(logger)
		if err != nil {
			return nil, err
		}
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.Noop{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		id:        uuid.New().String(),
		store:     cfg.Store,
		meta:      registry.NewMeta(),
		vars:      registry.NewVariables(logger),
		inv:       registry.NewInventory(),
		slog:      registry.NewLog(),
		media:     mp,
		sh:        sh,
		publisher: pub,
		logger:    logger,
		tracer:    otel.Tracer("fabula-player"),
		rng:       rand.New(rand.NewSource(seed)),
		titler:    cases.Title(language.Und),
		stack:     engine.NewReturnStack(),
	}

	if cfg.Tracing != nil {
		shutdown, err := tracing.Setup(ctx, cfg.Tracing.internal(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
		s.shutdown = shutdown
	}

	if err := s.loadMeta(ctx); err != nil {
		return nil, err
	}
	if err := sh.BindStory(s.Variables(), s.inv); err != nil {
		return nil, fmt.Errorf("failed to bind story scripting: %w", err)
	}

	logger.Info("session created",
		zap.String("sessionId", s.id),
		zap.Int64("seed", seed))
	return s, nil
}

func (s *Session) loadMeta(ctx context.Context) error {
	data, err := s.store.Read(ctx, storage.MetaFileName)
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			s.logger.Debug("no meta file, starting with an empty project")
			return nil
		}
		return fmt.Errorf("read meta file: %w", err)
	}
	meta, err := registry.ParseMeta(data)
	if err != nil {
		return err
	}
	s.meta = meta
	return s.vars.Reset(meta.Variables)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Meta returns the shared project meta file.
func (s *Session) Meta() *registry.Meta { return s.meta }

// SessionLog returns the session's log registry.
func (s *Session) SessionLog() *registry.Log { return s.slog }

// Engine returns the engine for the currently loaded file, nil before Start.
func (s *Session) Engine() *engine.Engine { return s.eng }

// CurrentFile returns the name of the currently loaded story file.
func (s *Session) CurrentFile() string { return s.currentFile }

// ReturnStack returns the session's cross-file return stack.
func (s *Session) ReturnStack() *engine.ReturnStack { return s.stack }

// AwaitingChoice reports whether the session is parked on a player choice.
func (s *Session) AwaitingChoice() bool {
	return s.eng != nil && s.eng.AwaitingChoice()
}

// Start loads the given story file and runs the opening cascade to its first
// halt state.
func (s *Session) Start(ctx context.Context, file string) error {
	ctx, span := s.tracer.Start(ctx, "session.start",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("story.file", file),
		))
	defer span.End()

	if err := s.loadFile(ctx, file); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.eng.Begin(0); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.settle(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.emitHaltState()
	span.SetStatus(codes.Ok, "")
	return nil
}

// Choose resumes a session parked on a choice by taking the given option.
func (s *Session) Choose(ctx context.Context, optionIndex int) error {
	if s.eng == nil {
		return goerrors.New("session has not started")
	}
	ctx, span := s.tracer.Start(ctx, "session.choose",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("story.file", s.currentFile),
			attribute.Int("story.option", optionIndex),
		))
	defer span.End()

	if err := s.eng.Choose(optionIndex); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.settle(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.emitHaltState()
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close releases the session's resources: the event publisher is closed and,
// when tracing was set up, the tracer provider is flushed and shut down.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.shutdown != nil {
		if err := tracing.Shutdown(s.shutdown, s.logger); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("session closed", zap.String("sessionId", s.id))
	return goerrors.Join(errs...)
}

// loadFile reads, parses and relinks the story file and builds a fresh engine
// over it. Relink warnings are surfaced on the event stream via the logger in
// graph.Load; the load itself only fails on unreadable or malformed files.
func (s *Session) loadFile(ctx context.Context, file string) error {
	data, err := s.store.Read(ctx, file)
	if err != nil {
		return fmt.Errorf("read story file %q: %w", file, err)
	}
	g, warnings, err := graph.LoadJSON(data, s.logger)
	if err != nil {
		return fmt.Errorf("load story file %q: %w", file, err)
	}
	if len(warnings) > 0 {
		s.logger.Warn("story file loaded with unresolved links",
			zap.String("file", file), zap.Int("count", len(warnings)))
	}
	eng, err := engine.New(engine.Config{
		Graph:   g,
		Host:    s,
		Logger:  s.logger,
		OnEnter: s.onEnter,
	})
	if err != nil {
		return err
	}
	s.eng = eng
	s.currentFile = file
	s.emit(events.Event{Type: events.TypeFileLoaded})
	return nil
}

// settle drives the engine through pending cross-file transfers until the
// traversal rests at a node again.
func (s *Session) settle(ctx context.Context) error {
	for s.eng != nil {
		switch s.eng.State() {
		case engine.StateHaltedForJump:
			p := s.pendingLoad
			s.pendingLoad = nil
			if p == nil {
				return goerrors.New("engine halted for jump without a pending load")
			}
			if err := s.loadFile(ctx, p.file); err != nil {
				return err
			}
			if err := s.eng.Begin(p.jumpTo); err != nil {
				return err
			}
		case engine.StateHaltedForReturn:
			s.pendingReturn = false
			frame, err := s.stack.Pop()
			if err != nil {
				// A return with nothing stacked ends the traversal where
				// it stands.
				s.logger.Warn("return with empty stack", zap.String("file", s.currentFile))
				return nil
			}
			if frame.File != s.currentFile {
				if err := s.loadFile(ctx, frame.File); err != nil {
					return err
				}
			}
			if err := s.eng.ResumeAfterReturn(frame.NodeID); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// onEnter observes every node a cascade visits and translates the visible
// ones into play events.
func (s *Session) onEnter(n node.Node) {
	s.emit(events.Event{Type: events.TypeNodeEntered, NodeID: n.ID()})
	switch t := n.(type) {
	case *node.DialogNode:
		s.emit(events.Event{
			Type:    events.TypeTextShown,
			NodeID:  n.ID(),
			Speaker: s.titler.String(s.meta.Character(t.Character.Int())),
			Text:    t.Text.String(),
		})
	case *node.StoryNode:
		s.emit(events.Event{
			Type:   events.TypeTextShown,
			NodeID: n.ID(),
			Text:   t.Text.String(),
		})
	}
}

// emitHaltState reports where a finished cascade came to rest: either an open
// choice or a terminal halt.
func (s *Session) emitHaltState() {
	if s.eng == nil {
		return
	}
	current := s.eng.Current()
	if current == nil {
		return
	}
	if s.eng.AwaitingChoice() {
		oc := current.(node.OptionCarrier)
		opts := oc.Options()
		views := make([]events.OptionView, 0, len(opts))
		for _, i := range oc.ActiveOptions() {
			views = append(views, events.OptionView{Index: i, Text: opts[i].Text})
		}
		s.emit(events.Event{
			Type:    events.TypeOptionsOffered,
			NodeID:  current.ID(),
			Options: views,
		})
		return
	}
	if s.eng.State() == engine.StateAtNode {
		s.emit(events.Event{Type: events.TypeHalted, NodeID: current.ID()})
	}
}

func (s *Session) emit(ev events.Event) {
	ev.SessionID = s.id
	ev.CorrelationID = uuid.New().String()
	if ev.File == "" {
		ev.File = s.currentFile
	}
	ev.CreatedAt = time.Now().UTC()
	if err := s.publisher.Publish(ev); err != nil {
		s.logger.Error("failed to publish play event",
			zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// Variables implements node.Host. The returned store forwards to the typed
// variable registry and reports every write on the event stream.
func (s *Session) Variables() node.VariableStore {
	return &observedVariables{session: s}
}

// Inventory implements node.Host.
func (s *Session) Inventory() node.InventoryStore { return s.inv }

// Media implements node.Host.
func (s *Session) Media() node.MediaPlayer { return s.media }

// AppendLog implements node.Host.
func (s *Session) AppendLog(title, text string) {
	id := s.slog.Append(title, text)
	s.logger.Debug("log entry appended",
		zap.Int("entryId", id), zap.String("title", title))
}

// RemoteCall implements node.Host. Unknown or failing callbacks are logged;
// the traversal keeps running.
func (s *Session) RemoteCall(name string) {
	if err := s.sh.Call(name); err != nil {
		s.logger.Error("remote call failed",
			zap.String("function", name), zap.Error(err))
	}
}

// JumpTo implements node.Host: an intra-file jump redirects the running
// cascade.
func (s *Session) JumpTo(nodeID int) {
	if s.eng == nil {
		return
	}
	s.eng.RequestJump(nodeID)
}

// Load implements node.Host: the current position is stacked and the engine
// parks while the session switches files.
func (s *Session) Load(filePath string, holdNodeID, jumpToNodeID int) {
	if s.eng == nil {
		return
	}
	s.stack.Push(engine.Frame{File: s.currentFile, NodeID: holdNodeID})
	s.pendingLoad = &pendingLoad{file: filePath, jumpTo: jumpToNodeID}
	s.eng.HaltForJump()
}

// ReturnToPrevious implements node.Host: the engine parks while the session
// pops the return stack.
func (s *Session) ReturnToPrevious() {
	if s.eng == nil {
		return
	}
	s.pendingReturn = true
	s.eng.HaltForReturn()
}

// ActivateNodeOption implements node.Host.
func (s *Session) ActivateNodeOption(ref field.OptionRef) {
	s.setOptionActive(ref, true)
}

// DeactivateNodeOption implements node.Host.
func (s *Session) DeactivateNodeOption(ref field.OptionRef) {
	s.setOptionActive(ref, false)
}

func (s *Session) setOptionActive(ref field.OptionRef, active bool) {
	if s.eng == nil {
		return
	}
	target := s.eng.Graph().NodeByID(ref.NodeID)
	if target == nil {
		s.logger.Warn("option toggle references missing node",
			zap.String("file", s.currentFile), zap.Int("nodeId", ref.NodeID))
		return
	}
	oc, ok := target.(node.OptionCarrier)
	if !ok {
		s.logger.Warn("option toggle references node without options",
			zap.String("file", s.currentFile), zap.Int("nodeId", ref.NodeID))
		return
	}
	oc.SetOptionActive(ref.OptionIndex, active)
}

// Rand implements node.Host.
func (s *Session) Rand() *rand.Rand { return s.rng }

// Logger implements node.Host.
func (s *Session) Logger() *zap.Logger { return s.logger }

// observedVariables wraps the variable registry so writes surface on the play
// stream.
type observedVariables struct {
	session *Session
}

func (o *observedVariables) Value(name string) (any, bool) {
	return o.session.vars.Value(name)
}

func (o *observedVariables) SetValue(name string, value any) {
	o.session.vars.SetValue(name, value)
	if stored, ok := o.session.vars.Value(name); ok {
		o.session.emit(events.Event{
			Type:     events.TypeVariableChanged,
			Variable: name,
			Value:    stored,
		})
	}
}

func (o *observedVariables) TypeOf(name string) (field.VarType, bool) {
	return o.session.vars.TypeOf(name)
}

func (o *observedVariables) Exists(name string) bool {
	return o.session.vars.Exists(name)
}
