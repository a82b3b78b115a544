// Package types defines the NatureLang data types shared by every stage of the compiler.
//
// A DataType tags AST expressions, symbols, TAC operands, and the inferred
// kinds the code generator uses to synthesize C declarations. The type
// lattice is deliberately flat: types are either equal, both numeric, or
// bridged through Unknown.
package types

// DataType identifies a NatureLang value type.
type DataType int

// The NatureLang data types.
const (
	// Unknown is the initial type of every expression before analysis,
	// and the type of values the compiler cannot pin down (list elements).
	Unknown DataType = iota

	// Number is a 64-bit signed integer.
	Number

	// Decimal is a 64-bit floating point number.
	Decimal

	// Text is an immutable string.
	Text

	// Flag is a boolean.
	Flag

	// List is a growable sequence. Element types are not tracked.
	List

	// Nothing is the absence of a value (void functions).
	Nothing

	// Function is the type of a function symbol itself.
	Function

	// Error marks a type that could not be computed due to a semantic error.
	Error
)

// typeNames maps each DataType to its source-level name.
var typeNames = map[DataType]string{
	Unknown:  "unknown",
	Number:   "number",
	Decimal:  "decimal",
	Text:     "text",
	Flag:     "flag",
	List:     "list",
	Nothing:  "nothing",
	Function: "function",
	Error:    "error",
}

// String returns the source-level name of the type.
func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// IsNumeric reports whether the type is Number or Decimal.
func (t DataType) IsNumeric() bool {
	return t == Number || t == Decimal
}

// Compatible reports whether two types may be mixed in an assignment,
// an argument binding, or a comparison. Types are compatible when they are
// equal, when both are numeric, or when either side is still Unknown.
func Compatible(a, b DataType) bool {
	if a == b {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == Unknown || b == Unknown
}

// CType returns the C type the code generator declares for values of this type.
// Unknown collapses to the integer default, matching the IR builder's fallback.
func (t DataType) CType() string {
	switch t {
	case Decimal:
		return "double"
	case Text:
		return "char *"
	case Flag:
		return "bool"
	case List:
		return "NLList *"
	case Nothing:
		return "void"
	default:
		return "long long"
	}
}
