// Package irgen lowers an annotated NatureLang AST into three-address code.
//
// The builder walks the tree recursively: statement lowering emits
// instructions into the current function, expression lowering emits the
// instructions that compute a value and returns the operand holding it.
// Temp and label ids come from the program's monotone counters and are never
// reused across functions.
//
// The builder expects an analyzed AST: it trusts the data types the semantic
// analyzer annotated on expression nodes, and falls back to the numeric
// default only where an annotation is still unknown. Unknown node shapes are
// reported through the diagnostic writer and skipped, never fatal.
package irgen

import (
	"fmt"
	"io"

	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/tac"
	"github.com/dr8co/naturec/types"
)

// noLabel marks the absence of a break or continue target.
const noLabel = -1

// Builder lowers an AST into a TAC program.
type Builder struct {
	prog *tac.Program

	// fn is the function instructions are currently emitted into.
	fn *tac.Function

	// inFunction is set while lowering a function declaration's body.
	inFunction bool

	// breakLabel and continueLabel are the current loop's exit and
	// repeat targets, or noLabel outside loops.
	breakLabel    int
	continueLabel int

	// loopStack holds the saved break/continue targets of enclosing loops.
	loopStack [][2]int

	// diag receives warnings about unknown node shapes.
	diag io.Writer
}

// New creates a builder whose diagnostics go to the given writer.
// A nil writer discards them.
func New(diag io.Writer) *Builder {
	if diag == nil {
		diag = io.Discard
	}
	prog := tac.NewProgram()
	return &Builder{
		prog:          prog,
		fn:            prog.Main,
		breakLabel:    noLabel,
		continueLabel: noLabel,
		diag:          diag,
	}
}

// Build lowers the program and returns the TAC.
func Build(program *ast.Program, diag io.Writer) *tac.Program {
	b := New(diag)
	for _, stmt := range program.Statements {
		b.stmt(stmt)
	}
	return b.prog
}

// Program returns the TAC built so far.
func (b *Builder) Program() *tac.Program { return b.prog }

// emit appends an instruction with up to two source operands.
func (b *Builder) emit(op tac.Opcode, result, arg1, arg2 tac.Operand, line int) *tac.Instruction {
	ins := &tac.Instruction{Op: op, Result: result, Arg1: arg1, Arg2: arg2, Arg3: tac.None(), Line: line}
	b.fn.Append(ins)
	return ins
}

// emit3 appends an instruction with three source operands.
func (b *Builder) emit3(op tac.Opcode, result, arg1, arg2, arg3 tac.Operand, line int) *tac.Instruction {
	ins := &tac.Instruction{Op: op, Result: result, Arg1: arg1, Arg2: arg2, Arg3: arg3, Line: line}
	b.fn.Append(ins)
	return ins
}

// newTemp allocates a fresh temp operand of the given type.
func (b *Builder) newTemp(t types.DataType) tac.Operand {
	return tac.Temp(b.prog.NewTemp(), t)
}

// label emits a Label instruction for the given id.
func (b *Builder) label(id, line int) {
	b.emit(tac.Label, tac.None(), tac.LabelRef(id), tac.None(), line)
}

// concreteType maps an analyzer annotation to the type lowered code uses:
// unresolved types default to numbers.
func concreteType(t types.DataType) types.DataType {
	if t == types.Unknown || t == types.Error {
		return types.Number
	}
	return t
}

// stmt lowers a single statement.
func (b *Builder) stmt(node ast.Statement) {
	switch node := node.(type) {
	case *ast.VarDecl:
		b.varDecl(node)

	case *ast.FuncDecl:
		b.funcDecl(node)

	case *ast.Block:
		line := node.Pos.Line
		b.emit(tac.ScopeBegin, tac.None(), tac.None(), tac.None(), line)
		for _, s := range node.Statements {
			b.stmt(s)
		}
		b.emit(tac.ScopeEnd, tac.None(), tac.None(), tac.None(), line)

	case *ast.AssignStmt:
		b.assign(node)

	case *ast.IfStmt:
		b.ifStmt(node)

	case *ast.WhileStmt:
		b.whileStmt(node)

	case *ast.RepeatStmt:
		b.repeatStmt(node)

	case *ast.ForEachStmt:
		b.forEachStmt(node)

	case *ast.ReturnStmt:
		if node.Value != nil {
			value := b.expr(node.Value)
			b.emit(tac.Return, tac.None(), value, tac.None(), node.Pos.Line)
		} else {
			b.emit(tac.Return, tac.None(), tac.None(), tac.None(), node.Pos.Line)
		}

	case *ast.BreakStmt:
		if b.breakLabel != noLabel {
			b.emit(tac.Goto, tac.None(), tac.LabelRef(b.breakLabel), tac.None(), node.Pos.Line)
		}

	case *ast.ContinueStmt:
		if b.continueLabel != noLabel {
			b.emit(tac.Goto, tac.None(), tac.LabelRef(b.continueLabel), tac.None(), node.Pos.Line)
		}

	case *ast.DisplayStmt:
		value := b.expr(node.Value)
		b.emit(tac.Display, tac.None(), value, tac.None(), node.Pos.Line)

	case *ast.AskStmt:
		prompt := tac.None()
		if node.Prompt != nil {
			prompt = b.expr(node.Prompt)
		}
		b.emit(tac.Ask, tac.Var(node.Target, types.Text), prompt, tac.None(), node.Pos.Line)

	case *ast.ReadStmt:
		b.emit(tac.Read, tac.Var(node.Target, types.Text), tac.None(), tac.None(), node.Pos.Line)

	case *ast.SecureZone:
		line := node.Pos.Line
		b.emit(tac.SecureBegin, tac.None(), tac.None(), tac.None(), line)
		b.emit(tac.ScopeBegin, tac.None(), tac.None(), tac.None(), line)
		for _, s := range node.Body.Statements {
			b.stmt(s)
		}
		b.emit(tac.ScopeEnd, tac.None(), tac.None(), tac.None(), line)
		b.emit(tac.SecureEnd, tac.None(), tac.None(), tac.None(), line)

	default:
		fmt.Fprintf(b.diag, "irgen: skipping unknown statement node %T\n", node)
	}
}

// varDecl emits the declaration and, when present, the initializer store.
func (b *Builder) varDecl(node *ast.VarDecl) {
	target := tac.Var(node.Name, concreteType(node.DeclType))
	b.emit(tac.Decl, target, tac.None(), tac.None(), node.Pos.Line)
	if node.Init != nil {
		value := b.expr(node.Init)
		b.emit(tac.Assign, target, value, tac.None(), node.Pos.Line)
	}
}

// assign lowers stores to variables and list elements.
func (b *Builder) assign(node *ast.AssignStmt) {
	value := b.expr(node.Value)

	switch target := node.Target.(type) {
	case *ast.IndexExpr:
		list := b.expr(target.Left)
		index := b.expr(target.Index)
		b.emit3(tac.ListSet, tac.None(), list, index, value, node.Pos.Line)

	case *ast.Ident:
		b.emit(tac.Assign, tac.Var(target.Name, concreteType(target.Type)), value, tac.None(), node.Pos.Line)

	default:
		fmt.Fprintf(b.diag, "irgen: skipping assignment to unknown target %T\n", target)
	}
}

// ifStmt lowers a conditional:
//
//	ifnot cond goto else; <then>; goto end; else:; <else>; end:
//
// Without an else branch the else label is dropped.
func (b *Builder) ifStmt(node *ast.IfStmt) {
	line := node.Pos.Line
	cond := b.expr(node.Cond)

	if node.Else != nil {
		elseLabel := b.prog.NewLabel()
		endLabel := b.prog.NewLabel()

		b.emit(tac.IfFalseGoto, tac.None(), cond, tac.LabelRef(elseLabel), line)
		b.stmt(node.Then)
		b.emit(tac.Goto, tac.None(), tac.LabelRef(endLabel), tac.None(), line)
		b.label(elseLabel, line)
		b.stmt(node.Else)
		b.label(endLabel, line)
		return
	}

	endLabel := b.prog.NewLabel()
	b.emit(tac.IfFalseGoto, tac.None(), cond, tac.LabelRef(endLabel), line)
	b.stmt(node.Then)
	b.label(endLabel, line)
}

// whileStmt lowers a pre-tested loop:
//
//	start:; <cond>; ifnot cond goto end; <body>; goto start; end:
func (b *Builder) whileStmt(node *ast.WhileStmt) {
	line := node.Pos.Line
	startLabel := b.prog.NewLabel()
	endLabel := b.prog.NewLabel()

	b.enterLoop(endLabel, startLabel)
	b.label(startLabel, line)
	cond := b.expr(node.Cond)
	b.emit(tac.IfFalseGoto, tac.None(), cond, tac.LabelRef(endLabel), line)
	b.stmt(node.Body)
	b.emit(tac.Goto, tac.None(), tac.LabelRef(startLabel), tac.None(), line)
	b.label(endLabel, line)
	b.leaveLoop()
}

// repeatStmt lowers a counted loop with an implicit iterator temp:
//
//	iter = 0; start:; t = iter >= limit; if t goto end;
//	<body>; inc:; iter = iter + 1; goto start; end:
//
// Continue jumps to inc so the iterator still advances.
func (b *Builder) repeatStmt(node *ast.RepeatStmt) {
	line := node.Pos.Line
	limit := b.expr(node.Count)

	iter := b.newTemp(types.Number)
	startLabel := b.prog.NewLabel()
	endLabel := b.prog.NewLabel()
	incLabel := b.prog.NewLabel()

	b.emit(tac.LoadInt, iter, tac.IntConst(0), tac.None(), line)
	b.enterLoop(endLabel, incLabel)

	b.label(startLabel, line)
	done := b.newTemp(types.Flag)
	b.emit(tac.Gte, done, iter, limit, line)
	b.emit(tac.IfGoto, tac.None(), done, tac.LabelRef(endLabel), line)

	b.stmt(node.Body)

	b.label(incLabel, line)
	one := b.newTemp(types.Number)
	b.emit(tac.LoadInt, one, tac.IntConst(1), tac.None(), line)
	b.emit(tac.Add, iter, iter, one, line)
	b.emit(tac.Goto, tac.None(), tac.LabelRef(startLabel), tac.None(), line)
	b.label(endLabel, line)

	b.leaveLoop()
}

// forEachStmt lowers iteration over a list:
//
//	decl iter; list = <iterable>; idx = 0;
//	param list; len = call __list_length, 1;
//	start:; t = idx < len; ifnot t goto end;
//	item = list[idx]; iter = item; <body>;
//	inc:; idx = idx + 1; goto start; end:
//
// The element fetch goes through the numeric list accessor, so the loop
// variable falls back to a number when the analyzer left it unknown.
func (b *Builder) forEachStmt(node *ast.ForEachStmt) {
	line := node.Pos.Line

	iterType := node.IterType
	if iterType == types.Unknown {
		iterType = types.Number
	}
	iterVar := tac.Var(node.Iterator, iterType)
	b.emit(tac.Decl, iterVar, tac.None(), tac.None(), line)

	list := b.expr(node.Iterable)

	index := b.newTemp(types.Number)
	b.emit(tac.LoadInt, index, tac.IntConst(0), tac.None(), line)

	length := b.newTemp(types.Number)
	b.emit(tac.Param, tac.None(), list, tac.None(), line)
	b.emit(tac.Call, length, tac.FuncRef("__list_length"), tac.IntConst(1), line)

	startLabel := b.prog.NewLabel()
	endLabel := b.prog.NewLabel()
	incLabel := b.prog.NewLabel()
	b.enterLoop(endLabel, incLabel)

	b.label(startLabel, line)
	more := b.newTemp(types.Flag)
	b.emit(tac.Lt, more, index, length, line)
	b.emit(tac.IfFalseGoto, tac.None(), more, tac.LabelRef(endLabel), line)

	item := b.newTemp(types.Number)
	b.emit(tac.ListGet, item, list, index, line)
	b.emit(tac.Assign, iterVar, item, tac.None(), line)

	b.stmt(node.Body)

	b.label(incLabel, line)
	one := b.newTemp(types.Number)
	b.emit(tac.LoadInt, one, tac.IntConst(1), tac.None(), line)
	b.emit(tac.Add, index, index, one, line)
	b.emit(tac.Goto, tac.None(), tac.LabelRef(startLabel), tac.None(), line)
	b.label(endLabel, line)

	b.leaveLoop()
}

// funcDecl lowers a function declaration into a new TAC function,
// saving and restoring the emission context around the body.
func (b *Builder) funcDecl(node *ast.FuncDecl) {
	fn := &tac.Function{
		Name:       node.Name,
		ReturnType: node.ReturnType,
	}
	for _, p := range node.Params {
		fn.ParamNames = append(fn.ParamNames, p.Name)
		fn.ParamTypes = append(fn.ParamTypes, concreteType(p.DeclType))
	}

	savedFn := b.fn
	savedIn := b.inFunction
	savedBreak, savedContinue := b.breakLabel, b.continueLabel
	b.fn = fn
	b.inFunction = true
	b.breakLabel, b.continueLabel = noLabel, noLabel

	line := node.Pos.Line
	b.emit(tac.FuncBegin, tac.None(), tac.FuncRef(node.Name), tac.None(), line)
	b.stmt(node.Body)
	b.emit(tac.FuncEnd, tac.None(), tac.FuncRef(node.Name), tac.None(), line)

	b.fn = savedFn
	b.inFunction = savedIn
	b.breakLabel, b.continueLabel = savedBreak, savedContinue

	b.prog.Register(fn)
}

// enterLoop saves the current break/continue targets and installs new ones.
func (b *Builder) enterLoop(breakLabel, continueLabel int) {
	b.loopStack = append(b.loopStack, [2]int{b.breakLabel, b.continueLabel})
	b.breakLabel = breakLabel
	b.continueLabel = continueLabel
}

// leaveLoop restores the previous break/continue targets.
func (b *Builder) leaveLoop() {
	top := b.loopStack[len(b.loopStack)-1]
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.breakLabel = top[0]
	b.continueLabel = top[1]
}

// expr lowers an expression and returns the operand holding its value.
func (b *Builder) expr(node ast.Expression) tac.Operand {
	switch node := node.(type) {
	case *ast.IntLit:
		result := b.newTemp(types.Number)
		b.emit(tac.LoadInt, result, tac.IntConst(node.Value), tac.None(), node.Pos.Line)
		return result

	case *ast.FloatLit:
		result := b.newTemp(types.Decimal)
		b.emit(tac.LoadFloat, result, tac.FloatConst(node.Value), tac.None(), node.Pos.Line)
		return result

	case *ast.StringLit:
		result := b.newTemp(types.Text)
		b.emit(tac.LoadString, result, tac.StringConst(node.Value), tac.None(), node.Pos.Line)
		return result

	case *ast.BoolLit:
		result := b.newTemp(types.Flag)
		b.emit(tac.LoadBool, result, tac.BoolConst(node.Value), tac.None(), node.Pos.Line)
		return result

	case *ast.Ident:
		return tac.Var(node.Name, concreteType(node.Type))

	case *ast.BinaryExpr:
		return b.binary(node)

	case *ast.UnaryExpr:
		return b.unary(node)

	case *ast.BetweenExpr:
		value := b.expr(node.Value)
		lower := b.expr(node.Lower)
		upper := b.expr(node.Upper)
		result := b.newTemp(types.Flag)
		b.emit3(tac.Between, result, value, lower, upper, node.Pos.Line)
		return result

	case *ast.CallExpr:
		return b.call(node)

	case *ast.IndexExpr:
		list := b.expr(node.Left)
		index := b.expr(node.Index)
		result := b.newTemp(concreteType(node.Type))
		b.emit(tac.ListGet, result, list, index, node.Pos.Line)
		return result

	case *ast.ListLit:
		return b.list(node)
	}

	fmt.Fprintf(b.diag, "irgen: skipping unknown expression node %T\n", node)
	return tac.None()
}

// binaryOpcodes maps binary operator spellings to TAC opcodes.
var binaryOpcodes = map[string]tac.Opcode{
	"+":   tac.Add,
	"-":   tac.Sub,
	"*":   tac.Mul,
	"/":   tac.Div,
	"%":   tac.Mod,
	"^":   tac.Pow,
	"==":  tac.Eq,
	"!=":  tac.Neq,
	"<":   tac.Lt,
	">":   tac.Gt,
	"<=":  tac.Lte,
	">=":  tac.Gte,
	"and": tac.And,
	"or":  tac.Or,
}

// binary lowers a binary operator. Text joined with "+" becomes Concat;
// everything else maps straight onto its TAC opcode.
func (b *Builder) binary(node *ast.BinaryExpr) tac.Operand {
	left := b.expr(node.Left)
	right := b.expr(node.Right)
	line := node.Pos.Line

	if node.Op == "+" && (left.Type == types.Text || right.Type == types.Text) {
		result := b.newTemp(types.Text)
		b.emit(tac.Concat, result, left, right, line)
		return result
	}

	op, ok := binaryOpcodes[node.Op]
	if !ok {
		fmt.Fprintf(b.diag, "irgen: skipping unknown binary operator %q\n", node.Op)
		return tac.None()
	}

	var resultType types.DataType
	switch {
	case op == tac.Mod:
		resultType = types.Number
	case op == tac.Eq || op == tac.Neq || op == tac.Lt || op == tac.Gt ||
		op == tac.Lte || op == tac.Gte || op == tac.And || op == tac.Or:
		resultType = types.Flag
	case left.Type == types.Decimal || right.Type == types.Decimal:
		resultType = types.Decimal
	default:
		resultType = types.Number
	}

	result := b.newTemp(resultType)
	b.emit(op, result, left, right, line)
	return result
}

// unary lowers unary operators. Unary plus is a no-op.
func (b *Builder) unary(node *ast.UnaryExpr) tac.Operand {
	operand := b.expr(node.Operand)
	line := node.Pos.Line

	switch node.Op {
	case "+":
		return operand
	case "-":
		result := b.newTemp(concreteType(operand.Type))
		b.emit(tac.Neg, result, operand, tac.None(), line)
		return result
	case "not":
		result := b.newTemp(types.Flag)
		b.emit(tac.Not, result, operand, tac.None(), line)
		return result
	}

	fmt.Fprintf(b.diag, "irgen: skipping unknown unary operator %q\n", node.Op)
	return operand
}

// call stages one Param per argument in order, then emits the Call.
func (b *Builder) call(node *ast.CallExpr) tac.Operand {
	args := make([]tac.Operand, 0, len(node.Args))
	for _, arg := range node.Args {
		args = append(args, b.expr(arg))
	}
	line := node.Pos.Line
	for _, arg := range args {
		b.emit(tac.Param, tac.None(), arg, tac.None(), line)
	}

	result := b.newTemp(concreteType(node.Type))
	b.emit(tac.Call, result, tac.FuncRef(node.Name), tac.IntConst(int64(len(args))), line)
	return result
}

// list creates the list, then appends each element in order.
func (b *Builder) list(node *ast.ListLit) tac.Operand {
	line := node.Pos.Line
	result := b.newTemp(types.List)
	b.emit(tac.ListCreate, result, tac.IntConst(int64(len(node.Elements))), tac.None(), line)
	for _, el := range node.Elements {
		elem := b.expr(el)
		b.emit(tac.ListAppend, tac.None(), result, elem, line)
	}
	return result
}
