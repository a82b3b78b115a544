package tac

import (
	"fmt"
	"strconv"

	"github.com/dr8co/naturec/types"
)

// OperandKind tags the variant of an Operand.
type OperandKind int

// Operand kinds.
const (
	// NoOperand is the absent operand.
	NoOperand OperandKind = iota

	// TempOperand is a compiler temporary identified by an integer id.
	TempOperand

	// VarOperand is a named program variable.
	VarOperand

	// IntConstOperand is an integer constant.
	IntConstOperand

	// FloatConstOperand is a float constant.
	FloatConstOperand

	// StringConstOperand is a string constant.
	StringConstOperand

	// BoolConstOperand is a boolean constant.
	BoolConstOperand

	// LabelOperand is a jump target identified by an integer id.
	LabelOperand

	// FuncOperand names a function in calls and function markers.
	FuncOperand
)

// Operand is a tagged variant: a temp, a variable, a constant, a label, or a
// function reference. Operands are values; copying one copies its payload.
type Operand struct {
	// Kind selects the variant.
	Kind OperandKind

	// Type is the operand's data type.
	Type types.DataType

	// ID is the temp or label id.
	ID int

	// Name is the variable or function name.
	Name string

	// Int is the integer constant payload.
	Int int64

	// Float is the float constant payload.
	Float float64

	// Str is the string constant payload.
	Str string

	// Bool is the boolean constant payload.
	Bool bool
}

// None returns the absent operand.
func None() Operand { return Operand{Kind: NoOperand} }

// Temp returns a temp operand with the given id and type.
func Temp(id int, t types.DataType) Operand {
	return Operand{Kind: TempOperand, Type: t, ID: id}
}

// Var returns a variable operand with the given name and type.
func Var(name string, t types.DataType) Operand {
	return Operand{Kind: VarOperand, Type: t, Name: name}
}

// IntConst returns an integer constant operand.
func IntConst(v int64) Operand {
	return Operand{Kind: IntConstOperand, Type: types.Number, Int: v}
}

// FloatConst returns a float constant operand.
func FloatConst(v float64) Operand {
	return Operand{Kind: FloatConstOperand, Type: types.Decimal, Float: v}
}

// StringConst returns a string constant operand.
func StringConst(s string) Operand {
	return Operand{Kind: StringConstOperand, Type: types.Text, Str: s}
}

// BoolConst returns a boolean constant operand.
func BoolConst(b bool) Operand {
	return Operand{Kind: BoolConstOperand, Type: types.Flag, Bool: b}
}

// LabelRef returns a label operand with the given id.
func LabelRef(id int) Operand {
	return Operand{Kind: LabelOperand, Type: types.Nothing, ID: id}
}

// FuncRef returns a function-reference operand with the given name.
func FuncRef(name string) Operand {
	return Operand{Kind: FuncOperand, Type: types.Function, Name: name}
}

// IsNone reports whether the operand is absent.
func (o Operand) IsNone() bool { return o.Kind == NoOperand }

// IsConst reports whether the operand is an int, float, or bool constant.
func (o Operand) IsConst() bool {
	return o.Kind == IntConstOperand || o.Kind == FloatConstOperand || o.Kind == BoolConstOperand
}

// IsTemp reports whether the operand is a temp.
func (o Operand) IsTemp() bool { return o.Kind == TempOperand }

// Equal reports whether two operands are the same variant with the same
// payload. Types are ignored; a temp is the same temp whatever it holds.
func (o Operand) Equal(other Operand) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case TempOperand, LabelOperand:
		return o.ID == other.ID
	case VarOperand, FuncOperand:
		return o.Name == other.Name
	case IntConstOperand:
		return o.Int == other.Int
	case FloatConstOperand:
		return o.Float == other.Float
	case StringConstOperand:
		return o.Str == other.Str
	case BoolConstOperand:
		return o.Bool == other.Bool
	}
	return true
}

// String renders the operand for TAC listings.
func (o Operand) String() string {
	switch o.Kind {
	case NoOperand:
		return "_"
	case TempOperand:
		return fmt.Sprintf("t%d", o.ID)
	case VarOperand:
		return o.Name
	case IntConstOperand:
		return strconv.FormatInt(o.Int, 10)
	case FloatConstOperand:
		return strconv.FormatFloat(o.Float, 'g', -1, 64)
	case StringConstOperand:
		return strconv.Quote(o.Str)
	case BoolConstOperand:
		return strconv.FormatBool(o.Bool)
	case LabelOperand:
		return fmt.Sprintf("L%d", o.ID)
	case FuncOperand:
		return o.Name
	}
	return "?"
}
