// Package field implements the typed, named editable fields attached to story
// nodes. Every field coerces assigned values according to its declared kind so
// that a round trip through serialization always lands on the same
// representation.
package field

// Kind identifies the coercion and editing behavior of a field.
type Kind string

const (
	KindBool          Kind = "bool"
	KindInt           Kind = "int"
	KindString        Kind = "string"
	KindText          Kind = "text" // multi-line string
	KindCharIndex     Kind = "charIndex"
	KindBeastIndex    Kind = "beastIndex"
	KindItemIndex     Kind = "itemIndex"
	KindNodeIndex     Kind = "nodeIndex"
	KindNodeOption    Kind = "nodeOption"
	KindVariableKey   Kind = "variableKey"
	KindVariableValue Kind = "variableValue"
	KindCondition     Kind = "condition"
)

// OptionRef addresses a single option slot on another node.
type OptionRef struct {
	NodeID      int `json:"nodeId"`
	OptionIndex int `json:"optionIndex"`
}

// TypeLookup resolves a variable name to its declared type. It reports false
// when the variable is unknown.
type TypeLookup func(name string) (VarType, bool)

// Field is one named editable value on a node. Display hints (placeholder,
// prefix, postfix) are carried for the editor but have no runtime meaning.
type Field struct {
	name        string
	kind        Kind
	placeholder string
	prefix      string
	postfix     string

	value any

	// keyOf and lookup drive the coercion of a variableValue field: the
	// effective type follows the variable currently selected by a sibling
	// key field.
	keyOf  func() string
	lookup TypeLookup
}

// NewBool creates a boolean field.
func NewBool(name string) *Field {
	return &Field{name: name, kind: KindBool, value: false}
}

// NewInt creates an integer field.
func NewInt(name string) *Field {
	return &Field{name: name, kind: KindInt, value: 0}
}

// NewString creates a single-line string field.
func NewString(name, placeholder string) *Field {
	return &Field{name: name, kind: KindString, placeholder: placeholder, value: ""}
}

// NewText creates a multi-line string field.
func NewText(name, placeholder string) *Field {
	return &Field{name: name, kind: KindText, placeholder: placeholder, value: ""}
}

// NewIndex creates a registry index field of the given kind. The zero value
// means "nothing selected".
func NewIndex(name string, kind Kind) *Field {
	switch kind {
	case KindCharIndex, KindBeastIndex, KindItemIndex, KindNodeIndex:
		return &Field{name: name, kind: kind, value: 0}
	default:
		return &Field{name: name, kind: KindInt, value: 0}
	}
}

// NewNodeOption creates a field addressing an option slot on another node.
func NewNodeOption(name string) *Field {
	return &Field{name: name, kind: KindNodeOption, value: OptionRef{}}
}

// NewVariableKey creates a field holding the name of a registry variable.
func NewVariableKey(name string) *Field {
	return &Field{name: name, kind: KindVariableKey, placeholder: "variable", value: ""}
}

// NewVariableValue creates a field whose coercion follows the declared type of
// the variable selected by keyOf. The lookup may be nil until the field is
// attached to a running session; until then values are kept as strings.
func NewVariableValue(name string, keyOf func() string, lookup TypeLookup) *Field {
	return &Field{name: name, kind: KindVariableValue, keyOf: keyOf, lookup: lookup, value: ""}
}

// NewCondition creates a comparison operator field, defaulting to equality.
func NewCondition(name string) *Field {
	return &Field{name: name, kind: KindCondition, value: string(OpEquals)}
}

// Name returns the field name used in serialized records.
func (f *Field) Name() string { return f.name }

// Kind returns the field kind.
func (f *Field) Kind() Kind { return f.kind }

// Placeholder returns the editor hint text.
func (f *Field) Placeholder() string { return f.placeholder }

// SetDisplay sets the editor-only prefix and postfix.
func (f *Field) SetDisplay(prefix, postfix string) {
	f.prefix = prefix
	f.postfix = postfix
}

// Display returns the editor-only prefix and postfix.
func (f *Field) Display() (prefix, postfix string) { return f.prefix, f.postfix }

// BindLookup attaches the variable type lookup used by variableValue fields.
func (f *Field) BindLookup(lookup TypeLookup) {
	f.lookup = lookup
}

// Set assigns a raw value, coercing it to the field's kind. Assignment is
// total: unconvertible input falls back to the kind's zero value. A nil
// assignment to a variableValue field is ignored so callers may
// read-then-maybe-rewrite without clearing state.
func (f *Field) Set(raw any) {
	switch f.kind {
	case KindBool:
		f.value = toBool(raw)
	case KindInt, KindCharIndex, KindBeastIndex, KindItemIndex, KindNodeIndex:
		f.value = toInt(raw)
	case KindString, KindText, KindVariableKey:
		if raw == nil {
			f.value = ""
			return
		}
		f.value = toString(raw)
	case KindNodeOption:
		f.value = toOptionRef(raw)
	case KindVariableValue:
		if raw == nil {
			return
		}
		f.value = toString(raw)
	case KindCondition:
		op := Operator(toString(raw))
		if op.Valid() {
			f.value = string(op)
		}
	}
}

// Value returns the coerced current value. Integer kinds re-apply integer
// coercion on read, which is safe and idempotent. A variableValue field
// resolves its effective type through the bound lookup; without a lookup, or
// for an unknown variable, the raw string is returned.
func (f *Field) Value() any {
	switch f.kind {
	case KindInt, KindCharIndex, KindBeastIndex, KindItemIndex, KindNodeIndex:
		return toInt(f.value)
	case KindVariableValue:
		if f.keyOf == nil || f.lookup == nil {
			return f.value
		}
		t, ok := f.lookup(f.keyOf())
		if !ok {
			return f.value
		}
		return Coerce(t, f.value)
	default:
		return f.value
	}
}

// Bool returns the value as a bool. Only meaningful for bool fields.
func (f *Field) Bool() bool { return toBool(f.value) }

// Int returns the value as an int.
func (f *Field) Int() int { return toInt(f.value) }

// String returns the value as a string.
func (f *Field) String() string { return toString(f.value) }

// OptionRef returns the value as an option reference.
func (f *Field) OptionRef() OptionRef { return toOptionRef(f.value) }

// Operator returns the value as a comparison operator.
func (f *Field) Operator() Operator { return Operator(toString(f.value)) }
