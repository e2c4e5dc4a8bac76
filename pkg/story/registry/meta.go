package registry

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/cases"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/node"
)

// Entry is a named registry row (characters, beasts).
type Entry struct {
	Name string `json:"name"`
}

// ItemRecord describes one item template.
type ItemRecord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NodeTemplate is a saved node record usable to stamp out new nodes with
// prefilled fields.
type NodeTemplate struct {
	Name     string      `json:"name"`
	Template node.Record `json:"template"`
}

// Meta is the shared project meta file: the databases every story file of a
// project references by index or name.
type Meta struct {
	Characters    []Entry          `json:"characters"`
	Beasts        []Entry          `json:"beasts"`
	Items         []ItemRecord     `json:"items"`
	Variables     []VariableRecord `json:"variables"`
	NodeTemplates []NodeTemplate   `json:"nodeTemplates"`
}

// NewMeta creates an empty meta file.
func NewMeta() *Meta {
	return &Meta{
		Characters:    []Entry{},
		Beasts:        []Entry{},
		Items:         []ItemRecord{},
		Variables:     []VariableRecord{},
		NodeTemplates: []NodeTemplate{},
	}
}

// ParseMeta reads a meta file from its JSON form.
func ParseMeta(data []byte) (*Meta, error) {
	m := NewMeta()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse meta file: %w", err)
	}
	return m, nil
}

// Marshal flattens the meta file to JSON.
func (m *Meta) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

var fold = cases.Fold()

func duplicateName(name string, existing func(i int) string, count int) bool {
	folded := fold.String(name)
	for i := 0; i < count; i++ {
		if fold.String(existing(i)) == folded {
			return true
		}
	}
	return false
}

// AddCharacter appends a character entry, rejecting duplicate names.
func (m *Meta) AddCharacter(name string) error {
	if duplicateName(name, func(i int) string { return m.Characters[i].Name }, len(m.Characters)) {
		return fmt.Errorf("%w: character %q", errors.ErrDuplicateName, name)
	}
	m.Characters = append(m.Characters, Entry{Name: name})
	return nil
}

// AddBeast appends a beast entry, rejecting duplicate names.
func (m *Meta) AddBeast(name string) error {
	if duplicateName(name, func(i int) string { return m.Beasts[i].Name }, len(m.Beasts)) {
		return fmt.Errorf("%w: beast %q", errors.ErrDuplicateName, name)
	}
	m.Beasts = append(m.Beasts, Entry{Name: name})
	return nil
}

// AddItem appends an item template, rejecting duplicate names.
func (m *Meta) AddItem(item ItemRecord) error {
	if duplicateName(item.Name, func(i int) string { return m.Items[i].Name }, len(m.Items)) {
		return fmt.Errorf("%w: item %q", errors.ErrDuplicateName, item.Name)
	}
	m.Items = append(m.Items, item)
	return nil
}

// AddTemplate saves a node record as a named template, rejecting duplicate
// names.
func (m *Meta) AddTemplate(name string, template node.Record) error {
	if duplicateName(name, func(i int) string { return m.NodeTemplates[i].Name }, len(m.NodeTemplates)) {
		return fmt.Errorf("%w: template %q", errors.ErrDuplicateName, name)
	}
	m.NodeTemplates = append(m.NodeTemplates, NodeTemplate{Name: name, Template: template})
	return nil
}

// Character returns the indexed character name, or empty when out of range.
func (m *Meta) Character(i int) string {
	if i < 0 || i >= len(m.Characters) {
		return ""
	}
	return m.Characters[i].Name
}

// Beast returns the indexed beast name, or empty when out of range.
func (m *Meta) Beast(i int) string {
	if i < 0 || i >= len(m.Beasts) {
		return ""
	}
	return m.Beasts[i].Name
}

// ItemTemplate returns the indexed item template.
func (m *Meta) ItemTemplate(i int) (ItemRecord, bool) {
	if i < 0 || i >= len(m.Items) {
		return ItemRecord{}, false
	}
	return m.Items[i], true
}

// Template returns the named node template.
func (m *Meta) Template(name string) (node.Record, bool) {
	for _, t := range m.NodeTemplates {
		if t.Name == name {
			return t.Template, true
		}
	}
	return node.Record{}, false
}

// LogEntry is one entry in the session log.
type LogEntry struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Log collects the entries appended by log nodes during a session. Ids are
// assigned from the next available slot.
type Log struct {
	entries []LogEntry
	nextID  int
}

// NewLog creates an empty session log.
func NewLog() *Log {
	return &Log{nextID: 1}
}

// Append adds an entry and returns its assigned id.
func (l *Log) Append(title, text string) int {
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, LogEntry{ID: id, Title: title, Text: text})
	return id
}

// Entries returns the log entries in append order.
func (l *Log) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
