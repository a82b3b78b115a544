// Package codegen converts a TAC program into a single self-contained C
// translation unit.
//
// The output compiles with a conforming C11 compiler linked against the
// small NatureLang runtime (lists and string concatenation); everything else
// is plain C standard library. Before emitting a function, the generator
// runs a two-pass type synthesis over its instructions to infer a concrete C
// type for every temp and variable: constant loads, declarations and
// operator results seed the first pass, and a second pass propagates types
// through copies.
//
// Code generation collects problems instead of aborting: the only hard
// failure is a nil program, and unknown opcodes become commented
// placeholders in the output.
package codegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dr8co/naturec/tac"
	"github.com/dr8co/naturec/types"
)

// inputBufSize is the size of the static line buffer for Ask and Read.
const inputBufSize = 4096

// Generator holds the emission state for one program.
type Generator struct {
	prog *tac.Program
	out  strings.Builder

	indent int

	// tempTypes and varTypes hold the synthesized types of the function
	// currently being emitted.
	tempTypes map[int]types.DataType
	varTypes  map[string]types.DataType

	// declaredVars marks variables whose type came from a Decl; those
	// records are authoritative and never overwritten.
	declaredVars map[string]bool

	// funcReturns maps every user function to its return type, so calls
	// to void functions drop the result assignment.
	funcReturns map[string]types.DataType

	// Errors lists non-fatal problems found while emitting.
	Errors []string
}

// Generate emits C source for the program. The only hard failure is a nil
// program; everything else is recorded in the generator's error list and
// emission continues.
func Generate(p *tac.Program) (string, error) {
	if p == nil {
		return "", errors.New("codegen: nil program")
	}

	g := &Generator{
		prog:        p,
		funcReturns: make(map[string]types.DataType),
	}
	g.funcReturns["__list_length"] = types.Number
	for _, fn := range p.Functions {
		g.funcReturns[fn.Name] = fn.ReturnType
	}

	g.header()
	g.prototypes()
	for _, fn := range p.Functions {
		g.function(fn)
	}
	g.mainFunction(p.Main)

	return g.out.String(), nil
}

// usesOpcode reports whether any non-dead instruction in the program uses
// one of the given opcodes.
func (g *Generator) usesOpcode(ops ...tac.Opcode) bool {
	check := func(f *tac.Function) bool {
		for ins := f.First(); ins != nil; ins = ins.Next {
			if ins.Dead {
				continue
			}
			for _, op := range ops {
				if ins.Op == op {
					return true
				}
			}
		}
		return false
	}
	if check(g.prog.Main) {
		return true
	}
	for _, fn := range g.prog.Functions {
		if check(fn) {
			return true
		}
	}
	return false
}

// header emits the include block and, when needed, the shared input buffer.
func (g *Generator) header() {
	g.raw("/* Generated by naturec. Do not edit. */\n")
	g.raw("#include <stdio.h>\n")
	g.raw("#include <stdlib.h>\n")
	g.raw("#include <string.h>\n")
	g.raw("#include <stdbool.h>\n")
	if g.usesOpcode(tac.Pow) {
		g.raw("#include <math.h>\n")
	}
	g.raw("#include \"nl_runtime.h\"\n")
	g.raw("\n")
	if g.usesOpcode(tac.Ask, tac.Read) {
		g.raw(fmt.Sprintf("static char nl_input_buf[%d];\n\n", inputBufSize))
	}
}

// prototypes emits a forward declaration for every user function.
func (g *Generator) prototypes() {
	for _, fn := range g.prog.Functions {
		g.raw(g.signature(fn))
		g.raw(";\n")
	}
	if len(g.prog.Functions) > 0 {
		g.raw("\n")
	}
}

// signature renders a user function's C signature.
func (g *Generator) signature(fn *tac.Function) string {
	var sig strings.Builder

	sig.WriteString(paramDecl(fn.ReturnType, sanitizeName(fn.Name)))
	sig.WriteString("(")
	if len(fn.ParamNames) == 0 {
		sig.WriteString("void")
	} else {
		for i, name := range fn.ParamNames {
			if i > 0 {
				sig.WriteString(", ")
			}
			sig.WriteString(paramDecl(fn.ParamTypes[i], sanitizeName(name)))
		}
	}
	sig.WriteString(")")
	return sig.String()
}

// paramDecl joins a C type and a name, keeping pointer stars attached.
func paramDecl(t types.DataType, name string) string {
	ctype := t.CType()
	if strings.HasSuffix(ctype, "*") {
		return ctype + name
	}
	return ctype + " " + name
}

// function emits one user function.
func (g *Generator) function(fn *tac.Function) {
	g.inferTypes(fn)

	g.raw(g.signature(fn))
	g.raw(" {\n")
	g.indent = 1
	g.tempDecls(fn)
	g.body(fn)
	g.indent = 0
	g.raw("}\n\n")
}

// mainFunction emits the top-level code as the C entry point.
func (g *Generator) mainFunction(fn *tac.Function) {
	g.inferTypes(fn)

	g.raw("int main(int argc, char *argv[]) {\n")
	g.indent = 1
	g.line("(void)argc;")
	g.line("(void)argv;")
	g.tempDecls(fn)
	g.body(fn)
	g.line("return 0;")
	g.indent = 0
	g.raw("}\n")
}

// inferTypes runs the two-pass type synthesis for one function.
func (g *Generator) inferTypes(fn *tac.Function) {
	g.tempTypes = make(map[int]types.DataType)
	g.varTypes = make(map[string]types.DataType)
	g.declaredVars = make(map[string]bool)

	for i, name := range fn.ParamNames {
		g.varTypes[name] = fn.ParamTypes[i]
		g.declaredVars[name] = true
	}

	// First pass: seed from loads, declarations, and operator results.
	for ins := fn.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		switch ins.Op {
		case tac.LoadInt:
			g.record(ins.Result, types.Number)
		case tac.LoadFloat:
			g.record(ins.Result, types.Decimal)
		case tac.LoadString:
			g.record(ins.Result, types.Text)
		case tac.LoadBool:
			g.record(ins.Result, types.Flag)

		case tac.Decl:
			name := ins.Result.Name
			if !g.declaredVars[name] {
				g.declaredVars[name] = true
				g.varTypes[name] = ins.Result.Type
			}

		case tac.Concat, tac.Ask, tac.Read:
			g.record(ins.Result, types.Text)

		case tac.Eq, tac.Neq, tac.Lt, tac.Gt, tac.Lte, tac.Gte,
			tac.And, tac.Or, tac.Not, tac.Between:
			g.record(ins.Result, types.Flag)

		case tac.Add, tac.Sub, tac.Mul, tac.Div, tac.Mod, tac.Pow, tac.Neg:
			result := types.Number
			if g.resolve(ins.Arg1) == types.Decimal || g.resolve(ins.Arg2) == types.Decimal {
				result = types.Decimal
			}
			g.record(ins.Result, result)

		case tac.ListCreate:
			g.record(ins.Result, types.List)

		case tac.Call, tac.ListGet:
			if ins.Result.IsTemp() {
				g.record(ins.Result, defaulted(ins.Result.Type))
			}
		}
	}

	// Second pass: copies inherit the resolved type of their source.
	for ins := fn.First(); ins != nil; ins = ins.Next {
		if ins.Dead || ins.Op != tac.Assign {
			continue
		}
		g.record(ins.Result, g.resolve(ins.Arg1))
	}
}

// record stores a synthesized type for a temp or variable result.
// Declared variables keep their declaration type.
func (g *Generator) record(o tac.Operand, t types.DataType) {
	switch o.Kind {
	case tac.TempOperand:
		g.tempTypes[o.ID] = t
	case tac.VarOperand:
		if !g.declaredVars[o.Name] {
			g.varTypes[o.Name] = t
		}
	}
}

// concreteOverride reports whether an operand's embedded type should win
// over a default-number record.
func concreteOverride(t types.DataType) bool {
	return t == types.Text || t == types.Decimal || t == types.Flag || t == types.List
}

// defaulted maps Unknown to the numeric default.
func defaulted(t types.DataType) types.DataType {
	if t == types.Unknown || t == types.Error {
		return types.Number
	}
	return t
}

// resolve returns the concrete type of an operand, preferring the recorded
// synthesis over the operand's embedded type, except that an embedded
// text/decimal/flag/list type overrides a default-number record (for a
// variable, only when it has no Decl).
func (g *Generator) resolve(o tac.Operand) types.DataType {
	switch o.Kind {
	case tac.TempOperand:
		if recorded, ok := g.tempTypes[o.ID]; ok {
			if recorded == types.Number && concreteOverride(o.Type) {
				return o.Type
			}
			return recorded
		}
		return defaulted(o.Type)

	case tac.VarOperand:
		if recorded, ok := g.varTypes[o.Name]; ok {
			if recorded == types.Number && concreteOverride(o.Type) && !g.declaredVars[o.Name] {
				return o.Type
			}
			return recorded
		}
		return defaulted(o.Type)

	case tac.IntConstOperand:
		return types.Number
	case tac.FloatConstOperand:
		return types.Decimal
	case tac.StringConstOperand:
		return types.Text
	case tac.BoolConstOperand:
		return types.Flag
	case tac.FuncOperand:
		if ret, ok := g.funcReturns[o.Name]; ok {
			return ret
		}
	}
	return types.Number
}

// tempDecls declares every temp the function touches, at the top of the
// body. Text and list temps start at NULL, everything else at zero.
func (g *Generator) tempDecls(fn *tac.Function) {
	seen := make(map[int]bool)
	var ids []int

	note := func(o tac.Operand) {
		if o.IsTemp() && !seen[o.ID] {
			seen[o.ID] = true
			ids = append(ids, o.ID)
		}
	}
	for ins := fn.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		note(ins.Result)
		note(ins.Arg1)
		note(ins.Arg2)
		note(ins.Arg3)
	}

	for _, id := range ids {
		t := g.resolve(tac.Temp(id, types.Unknown))
		if t == types.Nothing {
			// Result slots of void calls are never read.
			continue
		}
		switch t {
		case types.Text, types.List:
			g.line(fmt.Sprintf("%s = NULL;", paramDecl(t, fmt.Sprintf("t%d", id))))
		default:
			g.line(fmt.Sprintf("%s = 0;", paramDecl(t, fmt.Sprintf("t%d", id))))
		}
	}
	if len(ids) > 0 {
		g.raw("\n")
	}
}

// body emits the function's instructions.
func (g *Generator) body(fn *tac.Function) {
	for ins := fn.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		g.instruction(ins)
	}
}

// binaryOps maps arithmetic, comparison, and logical opcodes to C operators.
var binaryOps = map[tac.Opcode]string{
	tac.Add: "+",
	tac.Sub: "-",
	tac.Mul: "*",
	tac.Div: "/",
	tac.Mod: "%",
	tac.Eq:  "==",
	tac.Neq: "!=",
	tac.Lt:  "<",
	tac.Gt:  ">",
	tac.Lte: "<=",
	tac.Gte: ">=",
	tac.And: "&&",
	tac.Or:  "||",
}

// instruction emits the C form of one instruction.
func (g *Generator) instruction(ins *tac.Instruction) {
	if op, ok := binaryOps[ins.Op]; ok {
		g.line(fmt.Sprintf("%s = %s %s %s;", g.operand(ins.Result), g.operand(ins.Arg1), op, g.operand(ins.Arg2)))
		return
	}

	switch ins.Op {
	case tac.Nop, tac.Break, tac.Continue, tac.Param, tac.FuncBegin, tac.FuncEnd:
		// Nothing to emit. Params are gathered by their Call.

	case tac.LoadInt, tac.LoadFloat, tac.LoadBool, tac.LoadString, tac.Assign:
		g.line(fmt.Sprintf("%s = %s;", g.operand(ins.Result), g.operand(ins.Arg1)))

	case tac.Neg:
		g.line(fmt.Sprintf("%s = -%s;", g.operand(ins.Result), g.operand(ins.Arg1)))

	case tac.Not:
		g.line(fmt.Sprintf("%s = !%s;", g.operand(ins.Result), g.operand(ins.Arg1)))

	case tac.Pow:
		g.line(fmt.Sprintf("%s = pow(%s, %s);", g.operand(ins.Result), g.operand(ins.Arg1), g.operand(ins.Arg2)))

	case tac.Concat:
		g.line(fmt.Sprintf("%s = nl_concat(%s, %s);", g.operand(ins.Result), g.operand(ins.Arg1), g.operand(ins.Arg2)))

	case tac.Between:
		g.line(fmt.Sprintf("%s = ((%s >= %s) && (%s <= %s));",
			g.operand(ins.Result), g.operand(ins.Arg1), g.operand(ins.Arg2),
			g.operand(ins.Arg1), g.operand(ins.Arg3)))

	case tac.Decl:
		g.decl(ins)

	case tac.Display:
		g.display(ins)

	case tac.Ask:
		if !ins.Arg1.IsNone() {
			g.line(fmt.Sprintf("printf(\"%%s\", %s);", g.operand(ins.Arg1)))
		}
		g.input(ins.Result)

	case tac.Read:
		g.input(ins.Result)

	case tac.Call:
		g.call(ins)

	case tac.Return:
		if ins.Arg1.IsNone() {
			g.line("return;")
		} else {
			g.line(fmt.Sprintf("return %s;", g.operand(ins.Arg1)))
		}

	case tac.Goto:
		g.line(fmt.Sprintf("goto L%d;", ins.Arg1.ID))

	case tac.IfGoto:
		g.line(fmt.Sprintf("if (%s) goto L%d;", g.operand(ins.Arg1), ins.Arg2.ID))

	case tac.IfFalseGoto:
		g.line(fmt.Sprintf("if (!(%s)) goto L%d;", g.operand(ins.Arg1), ins.Arg2.ID))

	case tac.Label:
		g.raw(fmt.Sprintf("L%d:;\n", ins.Arg1.ID))

	case tac.ScopeBegin:
		g.line("{")
		g.indent++

	case tac.ScopeEnd:
		g.indent--
		g.line("}")

	case tac.SecureBegin:
		g.line("/* secure zone begin */")

	case tac.SecureEnd:
		g.line("/* secure zone end */")

	case tac.ListCreate:
		g.line(fmt.Sprintf("%s = nl_list_create(%s);", g.operand(ins.Result), g.operand(ins.Arg1)))

	case tac.ListAppend:
		g.line(fmt.Sprintf("nl_list_append(%s, %s);", g.operand(ins.Arg1), g.operand(ins.Arg2)))

	case tac.ListGet:
		g.line(fmt.Sprintf("%s = nl_list_get_num(%s, %s);", g.operand(ins.Result), g.operand(ins.Arg1), g.operand(ins.Arg2)))

	case tac.ListSet:
		g.line(fmt.Sprintf("nl_list_set(%s, %s, %s);", g.operand(ins.Arg1), g.operand(ins.Arg2), g.operand(ins.Arg3)))

	default:
		g.Errors = append(g.Errors, fmt.Sprintf("unhandled opcode %s", ins.Op))
		g.line(fmt.Sprintf("/* unhandled op: %s */", ins.Op))
	}
}

// decl emits a variable declaration with its type's default value.
func (g *Generator) decl(ins *tac.Instruction) {
	name := sanitizeName(ins.Result.Name)
	t := g.resolve(ins.Result)
	switch t {
	case types.Text:
		g.line(fmt.Sprintf("%s = \"\";", paramDecl(t, name)))
	case types.List:
		g.line(fmt.Sprintf("%s = NULL;", paramDecl(t, name)))
	case types.Decimal:
		g.line(fmt.Sprintf("%s = 0.0;", paramDecl(t, name)))
	case types.Flag:
		g.line(fmt.Sprintf("%s = false;", paramDecl(t, name)))
	default:
		g.line(fmt.Sprintf("%s = 0;", paramDecl(t, name)))
	}
}

// display emits a printf whose format follows the value's resolved type.
func (g *Generator) display(ins *tac.Instruction) {
	value := g.operand(ins.Arg1)
	switch g.resolve(ins.Arg1) {
	case types.Decimal:
		g.line(fmt.Sprintf("printf(\"%%g\\n\", %s);", value))
	case types.Text:
		g.line(fmt.Sprintf("printf(\"%%s\\n\", %s);", value))
	case types.Flag:
		g.line(fmt.Sprintf("printf(\"%%s\\n\", %s ? \"yes\" : \"no\");", value))
	default:
		g.line(fmt.Sprintf("printf(\"%%lld\\n\", %s);", value))
	}
}

// input emits the shared fgets/strcspn/strdup sequence into the target.
func (g *Generator) input(target tac.Operand) {
	g.line("fgets(nl_input_buf, sizeof(nl_input_buf), stdin);")
	g.line("nl_input_buf[strcspn(nl_input_buf, \"\\n\")] = '\\0';")
	g.line(fmt.Sprintf("%s = strdup(nl_input_buf);", g.operand(target)))
}

// call gathers the staged Param instructions and emits the call, dropping
// the result assignment for void callees.
func (g *Generator) call(ins *tac.Instruction) {
	argc := int(ins.Arg2.Int)

	// The Params immediately preceding the call are its arguments; walk
	// backwards to find them, then restore original order.
	args := make([]string, 0, argc)
	for prev := ins.Prev; prev != nil && len(args) < argc; prev = prev.Prev {
		if prev.Op == tac.Param && !prev.Dead {
			args = append(args, g.operand(prev.Arg1))
		}
	}
	if len(args) < argc {
		g.Errors = append(g.Errors, fmt.Sprintf("call to %s expects %d params, found %d", ins.Arg1.Name, argc, len(args)))
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}

	name := sanitizeName(ins.Arg1.Name)
	callExpr := fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))

	if g.funcReturns[ins.Arg1.Name] == types.Nothing || ins.Result.IsNone() {
		g.line(callExpr + ";")
		return
	}
	g.line(fmt.Sprintf("%s = %s;", g.operand(ins.Result), callExpr))
}

// operand renders an operand as a C expression.
func (g *Generator) operand(o tac.Operand) string {
	switch o.Kind {
	case tac.TempOperand:
		return fmt.Sprintf("t%d", o.ID)
	case tac.VarOperand:
		return sanitizeName(o.Name)
	case tac.IntConstOperand:
		return strconv.FormatInt(o.Int, 10)
	case tac.FloatConstOperand:
		return strconv.FormatFloat(o.Float, 'g', -1, 64)
	case tac.StringConstOperand:
		return "\"" + escapeC(o.Str) + "\""
	case tac.BoolConstOperand:
		if o.Bool {
			return "true"
		}
		return "false"
	case tac.FuncOperand:
		return sanitizeName(o.Name)
	case tac.LabelOperand:
		return fmt.Sprintf("L%d", o.ID)
	}
	return "0"
}

// sanitizeName maps a source identifier to a legal C identifier.
// Source names may contain spaces.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// escapeC escapes a string for a C string literal.
func escapeC(s string) string {
	var out strings.Builder
	for _, ch := range s {
		switch ch {
		case '"':
			out.WriteString("\\\"")
		case '\\':
			out.WriteString("\\\\")
		case '\n':
			out.WriteString("\\n")
		case '\t':
			out.WriteString("\\t")
		case '\r':
			out.WriteString("\\r")
		default:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// line writes an indented line of C.
func (g *Generator) line(s string) {
	for range g.indent {
		g.out.WriteString("    ")
	}
	g.out.WriteString(s)
	g.out.WriteString("\n")
}

// raw writes text without indentation.
func (g *Generator) raw(s string) {
	g.out.WriteString(s)
}
