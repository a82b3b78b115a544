package tac

import (
	"fmt"
	"strings"

	"github.com/dr8co/naturec/types"
)

// Instruction is a single TAC instruction, a node in its function's
// doubly-linked instruction list. The Prev link is relational only; the
// list is owned by the function head-first.
type Instruction struct {
	// Op is the operation.
	Op Opcode

	// Result is the destination operand (a temp or a variable).
	Result Operand

	// Arg1 is the first source operand.
	Arg1 Operand

	// Arg2 is the second source operand.
	Arg2 Operand

	// Arg3 is the third source operand, used only by Between and ListSet.
	Arg3 Operand

	// Line is the source line the instruction was lowered from.
	Line int

	// Dead marks the instruction for removal by the optimizer's sweep.
	Dead bool

	// Prev is the previous instruction in the list.
	Prev *Instruction

	// Next is the next instruction in the list.
	Next *Instruction
}

// String renders the instruction for TAC listings.
func (ins *Instruction) String() string {
	var out strings.Builder

	switch ins.Op {
	case Label:
		fmt.Fprintf(&out, "%s:", ins.Arg1)
	case Goto:
		fmt.Fprintf(&out, "    goto %s", ins.Arg1)
	case IfGoto:
		fmt.Fprintf(&out, "    if %s goto %s", ins.Arg1, ins.Arg2)
	case IfFalseGoto:
		fmt.Fprintf(&out, "    ifnot %s goto %s", ins.Arg1, ins.Arg2)
	default:
		out.WriteString("    ")
		if !ins.Result.IsNone() {
			fmt.Fprintf(&out, "%s = ", ins.Result)
		}
		out.WriteString(ins.Op.String())
		for _, arg := range []Operand{ins.Arg1, ins.Arg2, ins.Arg3} {
			if arg.IsNone() {
				continue
			}
			fmt.Fprintf(&out, " %s", arg)
		}
	}
	if ins.Dead {
		out.WriteString("    ; dead")
	}
	return out.String()
}

// Function is one TAC function: a name (empty for main), a signature, and a
// doubly-linked list of instructions.
type Function struct {
	// Name is the function's name. Main has the empty name.
	Name string

	// ReturnType is the declared return type.
	ReturnType types.DataType

	// ParamNames lists parameter names in declaration order.
	ParamNames []string

	// ParamTypes lists parameter types in declaration order.
	ParamTypes []types.DataType

	head  *Instruction
	tail  *Instruction
	count int
}

// First returns the first instruction, or nil for an empty function.
func (f *Function) First() *Instruction { return f.head }

// Last returns the last instruction, or nil for an empty function.
func (f *Function) Last() *Instruction { return f.tail }

// Len returns the number of instructions in the list.
func (f *Function) Len() int { return f.count }

// Append links an instruction at the end of the list.
func (f *Function) Append(ins *Instruction) {
	ins.Prev = f.tail
	ins.Next = nil
	if f.tail != nil {
		f.tail.Next = ins
	} else {
		f.head = ins
	}
	f.tail = ins
	f.count++
}

// Remove unlinks an instruction from the list.
func (f *Function) Remove(ins *Instruction) {
	if ins.Prev != nil {
		ins.Prev.Next = ins.Next
	} else {
		f.head = ins.Next
	}
	if ins.Next != nil {
		ins.Next.Prev = ins.Prev
	} else {
		f.tail = ins.Prev
	}
	ins.Prev = nil
	ins.Next = nil
	f.count--
}

// String renders the function as a readable TAC listing.
func (f *Function) String() string {
	var out strings.Builder

	name := f.Name
	if name == "" {
		name = "main"
	}
	params := make([]string, 0, len(f.ParamNames))
	for i, p := range f.ParamNames {
		params = append(params, fmt.Sprintf("%s %s", p, f.ParamTypes[i]))
	}
	fmt.Fprintf(&out, "func %s(%s) %s:\n", name, strings.Join(params, ", "), f.ReturnType)

	for ins := f.head; ins != nil; ins = ins.Next {
		out.WriteString(ins.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Program is a complete TAC program: the main function, the user functions,
// and the program-wide temp and label counters. The counters are monotone;
// ids are never reused across functions.
type Program struct {
	// Main holds the top-level code.
	Main *Function

	// Functions lists the user functions in registration order.
	Functions []*Function

	nextTemp  int
	nextLabel int
}

// NewProgram creates an empty program with an empty main function.
func NewProgram() *Program {
	return &Program{
		Main: &Function{ReturnType: types.Nothing},
	}
}

// NewTemp allocates a fresh temp id.
func (p *Program) NewTemp() int {
	id := p.nextTemp
	p.nextTemp++
	return id
}

// NewLabel allocates a fresh label id.
func (p *Program) NewLabel() int {
	id := p.nextLabel
	p.nextLabel++
	return id
}

// TempCount returns the number of temps allocated so far.
func (p *Program) TempCount() int { return p.nextTemp }

// Register adds a user function to the program.
func (p *Program) Register(f *Function) {
	p.Functions = append(p.Functions, f)
}

// Lookup finds a user function by name.
func (p *Program) Lookup(name string) (*Function, bool) {
	for _, f := range p.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// String renders the whole program: user functions first, then main.
func (p *Program) String() string {
	var out strings.Builder

	for _, f := range p.Functions {
		out.WriteString(f.String())
		out.WriteString("\n")
	}
	out.WriteString(p.Main.String())
	return out.String()
}
