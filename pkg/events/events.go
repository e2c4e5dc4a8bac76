// Package events defines the player-visible effect stream a running session
// emits, and a NATS JetStream publisher so a surrounding shell can render or
// record a playthrough.
package events

import (
	"time"
)

// Type tags the kind of play event.
type Type string

const (
	// TypeNodeEntered is emitted for every node a cascade visits.
	TypeNodeEntered Type = "nodeEntered"
	// TypeTextShown is emitted when dialog or story text becomes visible.
	TypeTextShown Type = "textShown"
	// TypeOptionsOffered is emitted when the cascade parks on a choice.
	TypeOptionsOffered Type = "optionsOffered"
	// TypeVariableChanged is emitted after a variable write.
	TypeVariableChanged Type = "variableChanged"
	// TypeFileLoaded is emitted when a cross-file jump or return lands.
	TypeFileLoaded Type = "fileLoaded"
	// TypeHalted is emitted when a cascade reaches a terminal state.
	TypeHalted Type = "halted"
)

// OptionView is one offered choice as the player sees it.
type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Event is one entry in the play stream. Only the fields relevant to its
// type are set.
type Event struct {
	// SessionID identifies the play session.
	SessionID string `json:"sessionId"`

	// CorrelationID is unique per event.
	CorrelationID string `json:"correlationId"`

	// Type tags the event kind.
	Type Type `json:"type"`

	// File is the story file the event originated in.
	File string `json:"file,omitempty"`

	// NodeID is the originating node.
	NodeID int `json:"nodeId,omitempty"`

	// Speaker is the rendered character name for dialog text.
	Speaker string `json:"speaker,omitempty"`

	// Text is the displayed text for text events.
	Text string `json:"text,omitempty"`

	// Options are the offered choices for optionsOffered events.
	Options []OptionView `json:"options,omitempty"`

	// Variable and Value describe a variable write.
	Variable string `json:"variable,omitempty"`
	Value    any    `json:"value,omitempty"`

	// CreatedAt is the event timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher delivers play events to an observer.
type Publisher interface {
	Publish(ev Event) error
	Close() error
}

// Noop discards every event. Used when no observer is configured.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(ev Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
