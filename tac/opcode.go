// Package tac defines the Three-Address Code (TAC) intermediate representation.
//
// A TAC program holds one main function plus the user functions, each a
// doubly-linked list of instructions. Every instruction has at most one
// result operand and up to three source operands; operands are tagged
// variants carrying a data type. The IR builder produces TAC from the
// annotated AST, the optimizer rewrites it in place, and the C code
// generator consumes it.
package tac

// Opcode identifies a TAC instruction's operation.
type Opcode int

// TAC instruction opcodes.
//
// Unless noted otherwise, binary operations read Arg1 and Arg2 and write
// Result; unary operations read Arg1.
const (
	// Nop does nothing. Filler.
	Nop Opcode = iota

	// Add computes Result = Arg1 + Arg2.
	Add

	// Sub computes Result = Arg1 - Arg2.
	Sub

	// Mul computes Result = Arg1 * Arg2.
	Mul

	// Div computes Result = Arg1 / Arg2.
	Div

	// Mod computes Result = Arg1 % Arg2. The result is always a number.
	Mod

	// Pow computes Result = Arg1 raised to Arg2.
	Pow

	// Neg computes Result = -Arg1.
	Neg

	// Eq computes Result = Arg1 == Arg2.
	Eq

	// Neq computes Result = Arg1 != Arg2.
	Neq

	// Lt computes Result = Arg1 < Arg2.
	Lt

	// Gt computes Result = Arg1 > Arg2.
	Gt

	// Lte computes Result = Arg1 <= Arg2.
	Lte

	// Gte computes Result = Arg1 >= Arg2.
	Gte

	// And computes Result = Arg1 and Arg2.
	And

	// Or computes Result = Arg1 or Arg2.
	Or

	// Not computes Result = not Arg1.
	Not

	// Assign copies Arg1 into Result.
	Assign

	// LoadInt loads the integer constant Arg1 into Result.
	LoadInt

	// LoadFloat loads the float constant Arg1 into Result.
	LoadFloat

	// LoadString loads the string constant Arg1 into Result.
	LoadString

	// LoadBool loads the boolean constant Arg1 into Result.
	LoadBool

	// Label marks a jump target. Arg1 is the label operand.
	Label

	// Goto jumps unconditionally to the label in Arg1.
	Goto

	// IfGoto jumps to the label in Arg2 when Arg1 is true.
	IfGoto

	// IfFalseGoto jumps to the label in Arg2 when Arg1 is false.
	IfFalseGoto

	// FuncBegin marks the start of a function body. Arg1 names the function.
	FuncBegin

	// FuncEnd marks the end of a function body. Arg1 names the function.
	FuncEnd

	// Param stages one call argument. The Param instructions immediately
	// preceding a Call form its argument list, first parameter first.
	Param

	// Call invokes the function named by Arg1 with the integer constant
	// Arg2 staged arguments, writing the return value into Result.
	Call

	// Return leaves the current function, optionally yielding Arg1.
	Return

	// Display writes Arg1 to standard output.
	Display

	// Read reads a line of input into Result.
	Read

	// Ask prints the prompt Arg1, then reads a line of input into Result.
	Ask

	// Decl declares the variable in Result. The operand's type is
	// authoritative for the variable's C declaration.
	Decl

	// ScopeBegin opens a lexical scope.
	ScopeBegin

	// ScopeEnd closes a lexical scope.
	ScopeEnd

	// SecureBegin opens a secure zone. Preserved as a comment in C.
	SecureBegin

	// SecureEnd closes a secure zone.
	SecureEnd

	// Concat computes Result = Arg1 joined with Arg2 (text).
	Concat

	// Between computes Result = Arg2 <= Arg1 <= Arg3.
	Between

	// ListCreate creates a list with capacity hint Arg1 into Result.
	ListCreate

	// ListAppend appends Arg2 to the list Arg1.
	ListAppend

	// ListGet reads element Arg2 of list Arg1 into Result.
	ListGet

	// ListSet writes Arg3 into element Arg2 of list Arg1.
	ListSet

	// Break is a transient loop-exit marker used only during lowering.
	Break

	// Continue is a transient loop-repeat marker used only during lowering.
	Continue
)

// opcodeNames maps each opcode to its listing name.
var opcodeNames = map[Opcode]string{
	Nop:         "Nop",
	Add:         "Add",
	Sub:         "Sub",
	Mul:         "Mul",
	Div:         "Div",
	Mod:         "Mod",
	Pow:         "Pow",
	Neg:         "Neg",
	Eq:          "Eq",
	Neq:         "Neq",
	Lt:          "Lt",
	Gt:          "Gt",
	Lte:         "Lte",
	Gte:         "Gte",
	And:         "And",
	Or:          "Or",
	Not:         "Not",
	Assign:      "Assign",
	LoadInt:     "LoadInt",
	LoadFloat:   "LoadFloat",
	LoadString:  "LoadString",
	LoadBool:    "LoadBool",
	Label:       "Label",
	Goto:        "Goto",
	IfGoto:      "IfGoto",
	IfFalseGoto: "IfFalseGoto",
	FuncBegin:   "FuncBegin",
	FuncEnd:     "FuncEnd",
	Param:       "Param",
	Call:        "Call",
	Return:      "Return",
	Display:     "Display",
	Read:        "Read",
	Ask:         "Ask",
	Decl:        "Decl",
	ScopeBegin:  "ScopeBegin",
	ScopeEnd:    "ScopeEnd",
	SecureBegin: "SecureBegin",
	SecureEnd:   "SecureEnd",
	Concat:      "Concat",
	Between:     "Between",
	ListCreate:  "ListCreate",
	ListAppend:  "ListAppend",
	ListGet:     "ListGet",
	ListSet:     "ListSet",
	Break:       "Break",
	Continue:    "Continue",
}

// String returns the opcode's listing name.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

// IsJump reports whether the opcode transfers control.
func (op Opcode) IsJump() bool {
	return op == Goto || op == IfGoto || op == IfFalseGoto
}

// HasSideEffect reports whether the opcode does observable work beyond
// writing its result temp. Side-effecting instructions are never eliminated
// by dead-code analysis.
func (op Opcode) HasSideEffect() bool {
	switch op {
	case Display, Read, Ask, Call, Param, Return,
		Goto, IfGoto, IfFalseGoto, Label,
		FuncBegin, FuncEnd, ScopeBegin, ScopeEnd, SecureBegin, SecureEnd,
		Decl, Break, Continue, ListAppend, ListSet:
		return true
	}
	return false
}
