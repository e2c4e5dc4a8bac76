package field

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// VarType is the declared type of a registry variable. It controls how a
// variable's value is coerced, combined and compared throughout the graph.
type VarType string

const (
	TypeString VarType = "string"
	TypeWhole  VarType = "whole"
	TypeNumber VarType = "number"
	TypeBool   VarType = "bool"
	TypeChar   VarType = "char"
	TypeBeast  VarType = "beast"
	TypeItem   VarType = "item"
)

// Valid reports whether t is one of the declared variable types.
func (t VarType) Valid() bool {
	switch t {
	case TypeString, TypeWhole, TypeNumber, TypeBool, TypeChar, TypeBeast, TypeItem:
		return true
	}
	return false
}

// Numeric reports whether the type carries a numeric value. Char, beast and
// item variables hold registry indices and count as numeric.
func (t VarType) Numeric() bool {
	switch t {
	case TypeWhole, TypeNumber, TypeChar, TypeBeast, TypeItem:
		return true
	}
	return false
}

// Coerce converts raw into the native representation of the declared type.
// Coercion is total: unconvertible input yields the type's zero value.
func Coerce(t VarType, raw any) any {
	switch t {
	case TypeString:
		return toString(raw)
	case TypeWhole, TypeChar, TypeBeast, TypeItem:
		return toInt(raw)
	case TypeNumber:
		f, _ := toFloat(raw)
		return f
	case TypeBool:
		return toBool(raw)
	default:
		return raw
	}
}

// Add combines b into a under the declared type: concatenation for strings,
// integer or float addition for numeric types. Boolean variables do not
// support accumulation.
func Add(t VarType, a, b any) (any, error) {
	switch t {
	case TypeString:
		return toString(a) + toString(b), nil
	case TypeWhole, TypeChar, TypeBeast, TypeItem:
		return toInt(a) + toInt(b), nil
	case TypeNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa + fb, nil
	case TypeBool:
		return nil, fmt.Errorf("add is not supported for bool variables")
	default:
		return nil, fmt.Errorf("add is not supported for variable type %q", t)
	}
}

// Sub subtracts b from a under the declared type. Only numeric types support
// subtraction.
func Sub(t VarType, a, b any) (any, error) {
	switch t {
	case TypeWhole, TypeChar, TypeBeast, TypeItem:
		return toInt(a) - toInt(b), nil
	case TypeNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa - fb, nil
	default:
		return nil, fmt.Errorf("sub is not supported for variable type %q", t)
	}
}

// Random draws a uniformly distributed value in [min,max) appropriate for the
// declared type: an integer for whole-like types, a float for number. String
// and bool variables do not support random assignment.
func Random(t VarType, min, max any, rng *rand.Rand) (any, error) {
	switch t {
	case TypeWhole, TypeChar, TypeBeast, TypeItem:
		lo, hi := toInt(min), toInt(max)
		if hi <= lo {
			return lo, nil
		}
		return lo + rng.Intn(hi-lo), nil
	case TypeNumber:
		lo, _ := toFloat(min)
		hi, _ := toFloat(max)
		if hi <= lo {
			return lo, nil
		}
		return lo + rng.Float64()*(hi-lo), nil
	default:
		return nil, fmt.Errorf("random is not supported for variable type %q", t)
	}
}

func toInt(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false
		}
		return b
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toOptionRef(raw any) OptionRef {
	switch v := raw.(type) {
	case OptionRef:
		return v
	case *OptionRef:
		if v != nil {
			return *v
		}
	case map[string]any:
		return OptionRef{NodeID: toInt(v["nodeId"]), OptionIndex: toInt(v["optionIndex"])}
	}
	return OptionRef{}
}
