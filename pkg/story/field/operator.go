package field

// Operator is one of the six comparison operators available to condition
// fields and branch nodes.
type Operator string

const (
	OpEquals             Operator = "=="
	OpNotEquals          Operator = "!="
	OpLessThanOrEqual    Operator = "<="
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpGreaterThan        Operator = ">"
)

// Operators lists every valid operator in display order.
func Operators() []Operator {
	return []Operator{OpEquals, OpNotEquals, OpLessThanOrEqual, OpGreaterThanOrEqual, OpLessThan, OpGreaterThan}
}

// Valid reports whether the operator is one of the supported six.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpLessThanOrEqual, OpGreaterThanOrEqual, OpLessThan, OpGreaterThan:
		return true
	}
	return false
}

// Compare evaluates actual <op> expected. Equality is loose across the mixed
// string/number representations a variable may carry: two values compare
// equal when both convert to the same number, otherwise when their string
// forms match. Relational operators compare numerically when both sides are
// numeric and lexically otherwise, preserving each side's native
// representation.
func (o Operator) Compare(actual, expected any) bool {
	switch o {
	case OpEquals:
		return looseEqual(actual, expected)
	case OpNotEquals:
		return !looseEqual(actual, expected)
	case OpLessThan:
		n, ok := bothNumeric(actual, expected)
		if ok {
			return n.a < n.b
		}
		return toString(actual) < toString(expected)
	case OpLessThanOrEqual:
		n, ok := bothNumeric(actual, expected)
		if ok {
			return n.a <= n.b
		}
		return toString(actual) <= toString(expected)
	case OpGreaterThan:
		n, ok := bothNumeric(actual, expected)
		if ok {
			return n.a > n.b
		}
		return toString(actual) > toString(expected)
	case OpGreaterThanOrEqual:
		n, ok := bothNumeric(actual, expected)
		if ok {
			return n.a >= n.b
		}
		return toString(actual) >= toString(expected)
	}
	return false
}

type numericPair struct {
	a, b float64
}

func bothNumeric(actual, expected any) (numericPair, bool) {
	a, okA := toFloat(actual)
	b, okB := toFloat(expected)
	if !okA || !okB {
		return numericPair{}, false
	}
	return numericPair{a: a, b: b}, true
}

func looseEqual(actual, expected any) bool {
	if ab, ok := actual.(bool); ok {
		return ab == toBool(expected)
	}
	if eb, ok := expected.(bool); ok {
		return toBool(actual) == eb
	}
	if n, ok := bothNumeric(actual, expected); ok {
		return n.a == n.b
	}
	return toString(actual) == toString(expected)
}
