package node

import (
	"encoding/json"

	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// OptionRecord is the serialized form of one option on an option-bearing
// node.
type OptionRecord struct {
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// Record is the flat, JSON-safe form of a single node. Base identity and
// wiring are explicit; every declared field's value is flattened into the
// same JSON object under the field's name.
type Record struct {
	ID      int
	X       float64
	Y       float64
	Type    string
	Outs    []*int
	Options []OptionRecord
	Values  map[string]any
}

// reserved JSON keys that never collide with field names.
var recordKeys = map[string]struct{}{
	"id": {}, "x": {}, "y": {}, "type": {}, "outs": {}, "options": {},
}

// MarshalJSON flattens the record into a single JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Values)+6)
	for k, v := range r.Values {
		obj[k] = v
	}
	obj["id"] = r.ID
	obj["x"] = r.X
	obj["y"] = r.Y
	obj["type"] = r.Type
	outs := r.Outs
	if outs == nil {
		outs = []*int{}
	}
	obj["outs"] = outs
	if r.Options != nil {
		obj["options"] = r.Options
	}
	return json.Marshal(obj)
}

// UnmarshalJSON splits the flat JSON object back into base identity, wiring
// and field values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &r.ID); err != nil {
			return err
		}
	}
	if v, ok := raw["x"]; ok {
		if err := json.Unmarshal(v, &r.X); err != nil {
			return err
		}
	}
	if v, ok := raw["y"]; ok {
		if err := json.Unmarshal(v, &r.Y); err != nil {
			return err
		}
	}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &r.Type); err != nil {
			return err
		}
	}
	if v, ok := raw["outs"]; ok {
		if err := json.Unmarshal(v, &r.Outs); err != nil {
			return err
		}
	}
	if v, ok := raw["options"]; ok {
		if err := json.Unmarshal(v, &r.Options); err != nil {
			return err
		}
	}
	r.Values = make(map[string]any)
	for k, v := range raw {
		if _, reserved := recordKeys[k]; reserved {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		r.Values[k] = val
	}
	return nil
}

// Serialize converts a live node into its flat record form: identity,
// per-field values, destination ids (nil for unwired slots) and, for
// option-bearing variants, the option list.
func Serialize(n Node) Record {
	x, y := n.Position()
	rec := Record{
		ID:     n.ID(),
		X:      x,
		Y:      y,
		Type:   n.Type(),
		Outs:   make([]*int, len(n.Outs())),
		Values: make(map[string]any, len(n.Fields())),
	}
	for i, o := range n.Outs() {
		if t := o.Target(); t != nil {
			id := t.ID()
			rec.Outs[i] = &id
		}
	}
	for _, f := range n.Fields() {
		rec.Values[f.Name()] = serializeFieldValue(f)
	}
	if oc, ok := n.(OptionCarrier); ok {
		opts := oc.Options()
		rec.Options = make([]OptionRecord, len(opts))
		for i, o := range opts {
			rec.Options[i] = OptionRecord{Text: o.Text, Active: o.Active}
		}
	}
	return rec
}

func serializeFieldValue(f *field.Field) any {
	if f.Kind() == field.KindNodeOption {
		ref := f.OptionRef()
		return map[string]any{"nodeId": ref.NodeID, "optionIndex": ref.OptionIndex}
	}
	return f.Value()
}
