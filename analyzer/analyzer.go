// Package analyzer implements semantic analysis for NatureLang programs.
//
// The analyzer walks the AST produced by the frontend, builds a symbol table
// of lexical scopes, annotates every expression node with its resolved data
// type, and collects diagnostics. Analysis never stops at the first problem:
// every violation is recorded and the walk continues, so a single pass
// surfaces all errors in the program.
//
// The symbol table outlives the analyzer and is handed to the caller as part
// of the Result; downstream stages rely chiefly on the type annotations left
// on the AST.
package analyzer

import (
	"fmt"

	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/types"
)

// Severity distinguishes errors from warnings.
type Severity int

const (
	// SeverityError marks a violation that fails analysis.
	SeverityError Severity = iota

	// SeverityWarning marks a suspicious construct that does not fail analysis.
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single analyzer finding with its source location.
type Diagnostic struct {
	// Pos is the source location the finding refers to.
	Pos ast.Position

	// Severity is the finding's severity.
	Severity Severity

	// Message describes the finding.
	Message string
}

// String renders the diagnostic as "line:col: severity: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Result is the outcome of analyzing a program.
type Result struct {
	// Table is the symbol table built during analysis.
	Table *SymbolTable

	// Diagnostics lists every finding in source order.
	Diagnostics []Diagnostic

	// ErrorCount is the number of error-severity findings.
	ErrorCount int

	// WarningCount is the number of warning-severity findings.
	WarningCount int
}

// OK reports whether analysis finished without errors.
// Warnings do not fail analysis.
func (r *Result) OK() bool { return r.ErrorCount == 0 }

// analyzer holds the walk state.
type analyzer struct {
	table  *SymbolTable
	result *Result
}

// Analyze checks the program and returns the accumulated result.
func Analyze(program *ast.Program) *Result {
	a := &analyzer{
		table:  NewSymbolTable(),
		result: &Result{},
	}
	a.result.Table = a.table

	for _, stmt := range program.Statements {
		a.stmt(stmt)
	}
	return a.result
}

// errorf records an error-severity diagnostic.
func (a *analyzer) errorf(pos ast.Position, format string, args ...any) {
	a.result.Diagnostics = append(a.result.Diagnostics, Diagnostic{
		Pos:      pos,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
	a.result.ErrorCount++
}

// warnf records a warning-severity diagnostic.
func (a *analyzer) warnf(pos ast.Position, format string, args ...any) {
	a.result.Diagnostics = append(a.result.Diagnostics, Diagnostic{
		Pos:      pos,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	})
	a.result.WarningCount++
}

// compatible wraps types.Compatible, additionally letting Error through so a
// single bad subexpression does not cascade into follow-on diagnostics.
func compatible(a, b types.DataType) bool {
	if a == types.Error || b == types.Error {
		return true
	}
	return types.Compatible(a, b)
}

// numericOrUnknown reports whether t can stand where a number is required.
func numericOrUnknown(t types.DataType) bool {
	return t.IsNumeric() || t == types.Unknown || t == types.Error
}

// stmt analyzes a single statement.
func (a *analyzer) stmt(node ast.Statement) {
	switch node := node.(type) {
	case *ast.VarDecl:
		a.varDecl(node)

	case *ast.FuncDecl:
		a.funcDecl(node)

	case *ast.Block:
		a.table.EnterScope()
		for _, s := range node.Statements {
			a.stmt(s)
		}
		a.table.ExitScope()

	case *ast.AssignStmt:
		a.assign(node)

	case *ast.IfStmt:
		a.expr(node.Cond)
		a.stmt(node.Then)
		if node.Else != nil {
			a.stmt(node.Else)
		}

	case *ast.WhileStmt:
		cond := a.expr(node.Cond)
		a.checkLoopCond(node.Cond.Position(), cond)
		a.loopBody(node.Body)

	case *ast.RepeatStmt:
		count := a.expr(node.Count)
		if !numericOrUnknown(count) {
			a.errorf(node.Count.Position(), "repeat count must be a number, got %s", count)
		}
		a.loopBody(node.Body)

	case *ast.ForEachStmt:
		a.forEach(node)

	case *ast.ReturnStmt:
		a.returnStmt(node)

	case *ast.BreakStmt:
		if !a.table.InLoop() {
			a.errorf(node.Pos, "'stop' used outside a loop")
		}

	case *ast.ContinueStmt:
		if !a.table.InLoop() {
			a.errorf(node.Pos, "'skip' used outside a loop")
		}

	case *ast.DisplayStmt:
		a.expr(node.Value)

	case *ast.AskStmt:
		if node.Prompt != nil {
			a.expr(node.Prompt)
		}
		a.inputTarget(node.Pos, node.Target)

	case *ast.ReadStmt:
		a.inputTarget(node.Pos, node.Target)

	case *ast.SecureZone:
		a.table.EnterSecureScope()
		for _, s := range node.Body.Statements {
			a.stmt(s)
		}
		a.table.ExitScope()
	}
}

// checkLoopCond warns when a loop condition is not a flag. Numeric
// conditions are accepted silently.
func (a *analyzer) checkLoopCond(pos ast.Position, cond types.DataType) {
	switch {
	case cond == types.Flag, cond == types.Unknown, cond == types.Error:
	case cond.IsNumeric():
	default:
		a.warnf(pos, "loop condition is %s, not a flag", cond)
	}
}

// loopBody analyzes a loop body inside a fresh loop scope.
func (a *analyzer) loopBody(body *ast.Block) {
	a.table.EnterLoopScope()
	for _, s := range body.Statements {
		a.stmt(s)
	}
	a.table.ExitScope()
}

// varDecl handles variable and constant declarations.
func (a *analyzer) varDecl(node *ast.VarDecl) {
	var initType types.DataType
	if node.Init != nil {
		initType = a.expr(node.Init)
	}

	kind := VariableSymbol
	if node.Constant {
		kind = ConstantSymbol
	}
	sym := &Symbol{
		Name:        node.Name,
		Kind:        kind,
		Type:        node.DeclType,
		DeclaredAt:  node.Pos,
		Initialized: node.Init != nil,
	}
	if !a.table.Declare(sym) {
		a.errorf(node.Pos, "'%s' is already declared in this scope", node.Name)
		return
	}

	if node.Init != nil && !compatible(initType, node.DeclType) {
		a.errorf(node.Pos, "cannot set %s '%s' to a %s value", node.DeclType, node.Name, initType)
	}
}

// funcDecl declares the function symbol, then analyzes the body in a
// function scope with its parameters.
func (a *analyzer) funcDecl(node *ast.FuncDecl) {
	info := &FunctionInfo{Return: node.ReturnType}
	for _, p := range node.Params {
		info.ParamNames = append(info.ParamNames, p.Name)
		info.ParamTypes = append(info.ParamTypes, p.DeclType)
	}

	sym := &Symbol{
		Name:        node.Name,
		Kind:        FunctionSymbol,
		Type:        types.Function,
		DeclaredAt:  node.Pos,
		Initialized: true,
		Func:        info,
	}
	if !a.table.Declare(sym) {
		a.errorf(node.Pos, "'%s' is already declared in this scope", node.Name)
	}

	a.table.EnterFunctionScope(node.ReturnType)
	for _, p := range node.Params {
		param := &Symbol{
			Name:        p.Name,
			Kind:        ParameterSymbol,
			Type:        p.DeclType,
			DeclaredAt:  p.Pos,
			Initialized: true,
		}
		if !a.table.Declare(param) {
			a.errorf(p.Pos, "duplicate parameter '%s'", p.Name)
		}
	}
	for _, s := range node.Body.Statements {
		a.stmt(s)
	}
	a.table.ExitScope()
}

// assign checks an assignment's target and value.
func (a *analyzer) assign(node *ast.AssignStmt) {
	valueType := a.expr(node.Value)

	switch target := node.Target.(type) {
	case *ast.Ident:
		sym, ok := a.table.Resolve(target.Name)
		if !ok {
			a.errorf(target.Pos, "undefined variable '%s'", target.Name)
			target.Type = types.Error
			return
		}
		target.Type = sym.Type
		if sym.Kind == ConstantSymbol {
			a.errorf(target.Pos, "cannot assign to constant '%s'", target.Name)
			return
		}
		if sym.Kind == FunctionSymbol {
			a.errorf(target.Pos, "cannot assign to function '%s'", target.Name)
			return
		}
		if !compatible(valueType, sym.Type) {
			a.errorf(node.Pos, "cannot set %s '%s' to a %s value", sym.Type, target.Name, valueType)
		}
		sym.Initialized = true

	case *ast.IndexExpr:
		a.expr(target)

	default:
		a.errorf(node.Pos, "invalid assignment target")
	}
}

// returnStmt enforces the return rules against the nearest function scope.
func (a *analyzer) returnStmt(node *ast.ReturnStmt) {
	expected, inFunc := a.table.ExpectedReturn()
	if !inFunc {
		a.errorf(node.Pos, "'give back' used outside a function")
		if node.Value != nil {
			a.expr(node.Value)
		}
		return
	}

	if node.Value != nil {
		valueType := a.expr(node.Value)
		if !compatible(valueType, expected) {
			a.errorf(node.Pos, "function should give back %s, not %s", expected, valueType)
		}
		return
	}
	if expected != types.Nothing && expected != types.Unknown {
		a.errorf(node.Pos, "function should give back %s, but gives back nothing", expected)
	}
}

// forEach analyzes a for-each loop, declaring the iterator in a fresh loop
// scope. Text iteration yields text elements; list element types are not
// tracked, so the iterator stays unknown there.
func (a *analyzer) forEach(node *ast.ForEachStmt) {
	iterable := a.expr(node.Iterable)
	switch iterable {
	case types.List, types.Text, types.Unknown, types.Error:
	default:
		a.errorf(node.Iterable.Position(), "cannot iterate over %s", iterable)
	}

	iterType := types.Unknown
	if iterable == types.Text {
		iterType = types.Text
	}
	node.IterType = iterType

	a.table.EnterLoopScope()
	a.table.Declare(&Symbol{
		Name:        node.Iterator,
		Kind:        VariableSymbol,
		Type:        iterType,
		DeclaredAt:  node.Pos,
		Initialized: true,
	})
	a.stmt(node.Body)
	a.table.ExitScope()
}

// inputTarget validates the destination of an Ask or Read and marks it
// initialized.
func (a *analyzer) inputTarget(pos ast.Position, name string) {
	sym, ok := a.table.Resolve(name)
	if !ok {
		a.errorf(pos, "undefined variable '%s'", name)
		return
	}
	if sym.Kind == ConstantSymbol {
		a.errorf(pos, "cannot read into constant '%s'", name)
		return
	}
	sym.Initialized = true
}

// expr analyzes an expression, annotates its node, and returns its type.
func (a *analyzer) expr(node ast.Expression) types.DataType {
	switch node := node.(type) {
	case *ast.IntLit:
		node.Type = types.Number
		return types.Number

	case *ast.FloatLit:
		node.Type = types.Decimal
		return types.Decimal

	case *ast.StringLit:
		node.Type = types.Text
		return types.Text

	case *ast.BoolLit:
		node.Type = types.Flag
		return types.Flag

	case *ast.Ident:
		return a.ident(node)

	case *ast.BinaryExpr:
		return a.binary(node)

	case *ast.UnaryExpr:
		return a.unary(node)

	case *ast.BetweenExpr:
		return a.between(node)

	case *ast.CallExpr:
		return a.call(node)

	case *ast.IndexExpr:
		return a.index(node)

	case *ast.ListLit:
		for _, el := range node.Elements {
			a.expr(el)
		}
		node.Type = types.List
		return types.List
	}
	return types.Unknown
}

// ident resolves a name reference.
func (a *analyzer) ident(node *ast.Ident) types.DataType {
	sym, ok := a.table.Resolve(node.Name)
	if !ok {
		a.errorf(node.Pos, "undefined variable '%s'", node.Name)
		node.Type = types.Error
		return types.Error
	}
	if sym.Kind == VariableSymbol && !sym.Initialized {
		a.warnf(node.Pos, "'%s' may be used before it is set", node.Name)
	}
	node.Type = sym.Type
	return sym.Type
}

// binary applies the binary operator typing rules.
func (a *analyzer) binary(node *ast.BinaryExpr) types.DataType {
	left := a.expr(node.Left)
	right := a.expr(node.Right)

	switch node.Op {
	case "+", "-", "*", "/", "%", "^":
		// Text joins with "+" only.
		if left == types.Text || right == types.Text {
			if node.Op == "+" {
				node.Type = types.Text
				return types.Text
			}
			a.errorf(node.Pos, "operator '%s' cannot be used with text", node.Op)
			node.Type = types.Error
			return types.Error
		}
		if !numericOrUnknown(left) || !numericOrUnknown(right) {
			a.errorf(node.Pos, "operator '%s' needs numbers, got %s and %s", node.Op, left, right)
			node.Type = types.Error
			return types.Error
		}
		switch {
		case node.Op == "%":
			node.Type = types.Number
		case left == types.Decimal || right == types.Decimal:
			node.Type = types.Decimal
		default:
			node.Type = types.Number
		}
		return node.Type

	case "==", "!=":
		node.Type = types.Flag
		return types.Flag

	case "<", ">", "<=", ">=":
		if !compatible(left, right) {
			a.errorf(node.Pos, "cannot compare %s with %s", left, right)
		}
		node.Type = types.Flag
		return types.Flag

	case "and", "or":
		if (left != types.Flag && left != types.Unknown && left != types.Error) ||
			(right != types.Flag && right != types.Unknown && right != types.Error) {
			a.errorf(node.Pos, "operator '%s' needs flags, got %s and %s", node.Op, left, right)
		}
		node.Type = types.Flag
		return types.Flag
	}

	a.errorf(node.Pos, "unknown operator '%s'", node.Op)
	node.Type = types.Error
	return types.Error
}

// unary applies the unary operator typing rules.
func (a *analyzer) unary(node *ast.UnaryExpr) types.DataType {
	operand := a.expr(node.Operand)

	switch node.Op {
	case "-", "+":
		if !numericOrUnknown(operand) {
			a.errorf(node.Pos, "operator '%s' needs a number, got %s", node.Op, operand)
			node.Type = types.Error
			return types.Error
		}
		if operand.IsNumeric() {
			node.Type = operand
		} else {
			node.Type = types.Number
		}
		return node.Type

	case "not":
		if operand != types.Flag && operand != types.Unknown && operand != types.Error {
			a.errorf(node.Pos, "'not' needs a flag, got %s", operand)
		}
		node.Type = types.Flag
		return types.Flag
	}

	a.errorf(node.Pos, "unknown operator '%s'", node.Op)
	node.Type = types.Error
	return types.Error
}

// between checks the ternary range test: the value and both bounds must be
// numeric, and the result is a flag.
func (a *analyzer) between(node *ast.BetweenExpr) types.DataType {
	value := a.expr(node.Value)
	lower := a.expr(node.Lower)
	upper := a.expr(node.Upper)

	if !numericOrUnknown(value) {
		a.errorf(node.Value.Position(), "'between' needs a number, got %s", value)
	}
	if !numericOrUnknown(lower) || !numericOrUnknown(upper) {
		a.errorf(node.Pos, "'between' bounds must be numbers, got %s and %s", lower, upper)
	}
	node.Type = types.Flag
	return types.Flag
}

// call checks a function call against the callee's signature.
func (a *analyzer) call(node *ast.CallExpr) types.DataType {
	argTypes := make([]types.DataType, 0, len(node.Args))
	for _, arg := range node.Args {
		argTypes = append(argTypes, a.expr(arg))
	}

	sym, ok := a.table.Resolve(node.Name)
	if !ok {
		a.errorf(node.Pos, "undefined function '%s'", node.Name)
		node.Type = types.Error
		return types.Error
	}
	if sym.Kind != FunctionSymbol || sym.Func == nil {
		a.errorf(node.Pos, "'%s' is a %s, not a function", node.Name, sym.Kind)
		node.Type = types.Error
		return types.Error
	}

	info := sym.Func
	if len(node.Args) != len(info.ParamTypes) {
		a.errorf(node.Pos, "'%s' takes %d arguments, got %d", node.Name, len(info.ParamTypes), len(node.Args))
	} else {
		for i, argType := range argTypes {
			if !compatible(argType, info.ParamTypes[i]) {
				a.errorf(node.Args[i].Position(), "argument %d of '%s' should be %s, got %s",
					i+1, node.Name, info.ParamTypes[i], argType)
			}
		}
	}

	node.Type = info.Return
	return info.Return
}

// index checks indexing: text yields text, list elements are untracked.
func (a *analyzer) index(node *ast.IndexExpr) types.DataType {
	left := a.expr(node.Left)
	index := a.expr(node.Index)

	if !numericOrUnknown(index) {
		a.errorf(node.Index.Position(), "index must be a number, got %s", index)
	}

	switch left {
	case types.Text:
		node.Type = types.Text
	case types.List, types.Unknown, types.Error:
		node.Type = types.Unknown
	default:
		a.errorf(node.Left.Position(), "cannot index into %s", left)
		node.Type = types.Error
	}
	return node.Type
}
