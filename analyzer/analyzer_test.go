package analyzer

import (
	"strings"
	"testing"

	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/types"
)

func at(line int) ast.Position { return ast.Position{Line: line, Column: 1} }

func num(v int64) *ast.IntLit { return &ast.IntLit{Pos: at(1), Value: v} }

func str(s string) *ast.StringLit { return &ast.StringLit{Pos: at(1), Value: s} }

func name(n string) *ast.Ident { return &ast.Ident{Pos: at(1), Name: n} }
func block(s ...ast.Statement) *ast.Block {
	return &ast.Block{Pos: at(1), Statements: s}
}

func numDecl(n string, init ast.Expression) *ast.VarDecl {
	return &ast.VarDecl{Pos: at(1), Name: n, DeclType: types.Number, Init: init}
}

// analyzeStatements is a shorthand for analyzing a program built from the
// given statements.
func analyzeStatements(stmts ...ast.Statement) *Result {
	return Analyze(&ast.Program{Statements: stmts})
}

// TestSemanticErrors runs the analyzer over known-bad programs and checks
// the error count and the first message.
func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		desc       string
		program    []ast.Statement
		wantErrors int
		wantFirst  string
	}{
		{
			desc: "assigning text to a number",
			program: []ast.Statement{
				numDecl("x", nil),
				&ast.AssignStmt{Pos: at(2), Target: name("x"), Value: str("hi")},
			},
			wantErrors: 1,
			wantFirst:  "cannot set number 'x' to a text value",
		},
		{
			desc: "stop outside a loop",
			program: []ast.Statement{
				&ast.BreakStmt{Pos: at(1)},
			},
			wantErrors: 1,
			wantFirst:  "'stop' used outside a loop",
		},
		{
			desc: "skip outside a loop",
			program: []ast.Statement{
				&ast.ContinueStmt{Pos: at(1)},
			},
			wantErrors: 1,
			wantFirst:  "'skip' used outside a loop",
		},
		{
			desc: "bare give back from a number function",
			program: []ast.Statement{
				&ast.FuncDecl{
					Pos: at(1), Name: "f", ReturnType: types.Number,
					Body: block(&ast.ReturnStmt{Pos: at(2)}),
				},
			},
			wantErrors: 1,
			wantFirst:  "function should give back number",
		},
		{
			desc: "give back outside a function",
			program: []ast.Statement{
				&ast.ReturnStmt{Pos: at(1), Value: num(1)},
			},
			wantErrors: 1,
			wantFirst:  "'give back' used outside a function",
		},
		{
			desc: "redeclaration in the same scope",
			program: []ast.Statement{
				numDecl("x", nil),
				numDecl("x", nil),
			},
			wantErrors: 1,
			wantFirst:  "'x' is already declared",
		},
		{
			desc: "undefined variable",
			program: []ast.Statement{
				&ast.DisplayStmt{Pos: at(1), Value: name("ghost")},
			},
			wantErrors: 1,
			wantFirst:  "undefined variable 'ghost'",
		},
		{
			desc: "assigning to a constant",
			program: []ast.Statement{
				&ast.VarDecl{Pos: at(1), Name: "pi", DeclType: types.Number, Init: num(3), Constant: true},
				&ast.AssignStmt{Pos: at(2), Target: name("pi"), Value: num(4)},
			},
			wantErrors: 1,
			wantFirst:  "cannot assign to constant 'pi'",
		},
		{
			desc: "reading into a constant",
			program: []ast.Statement{
				&ast.VarDecl{Pos: at(1), Name: "pi", DeclType: types.Number, Init: num(3), Constant: true},
				&ast.ReadStmt{Pos: at(2), Target: "pi"},
			},
			wantErrors: 1,
			wantFirst:  "cannot read into constant 'pi'",
		},
		{
			desc: "text repeat count",
			program: []ast.Statement{
				&ast.RepeatStmt{Pos: at(1), Count: str("three"), Body: block()},
			},
			wantErrors: 1,
			wantFirst:  "repeat count must be a number",
		},
		{
			desc: "wrong argument count",
			program: []ast.Statement{
				&ast.FuncDecl{
					Pos: at(1), Name: "add", ReturnType: types.Number,
					Params: []*ast.ParamDecl{
						{Pos: at(1), Name: "a", DeclType: types.Number},
						{Pos: at(1), Name: "b", DeclType: types.Number},
					},
					Body: block(&ast.ReturnStmt{Pos: at(2), Value: num(0)}),
				},
				&ast.DisplayStmt{Pos: at(4), Value: &ast.CallExpr{
					Pos: at(4), Name: "add", Args: []ast.Expression{num(1)},
				}},
			},
			wantErrors: 1,
			wantFirst:  "'add' takes 2 arguments, got 1",
		},
		{
			desc: "subtracting text",
			program: []ast.Statement{
				&ast.DisplayStmt{Pos: at(1), Value: &ast.BinaryExpr{
					Pos: at(1), Op: "-", Left: str("a"), Right: str("b"),
				}},
			},
			wantErrors: 1,
			wantFirst:  "operator '-' cannot be used with text",
		},
		{
			desc: "iterating a number",
			program: []ast.Statement{
				numDecl("x", num(1)),
				&ast.ForEachStmt{Pos: at(2), Iterator: "c", Iterable: name("x"), Body: block()},
			},
			wantErrors: 1,
			wantFirst:  "cannot iterate over number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := analyzeStatements(tt.program...)
			if result.ErrorCount != tt.wantErrors {
				t.Fatalf("error count: got %d, want %d (diagnostics: %v)",
					result.ErrorCount, tt.wantErrors, result.Diagnostics)
			}
			if tt.wantFirst != "" {
				first := firstError(result)
				if !strings.Contains(first, tt.wantFirst) {
					t.Errorf("first error %q does not contain %q", first, tt.wantFirst)
				}
			}
		})
	}
}

func firstError(r *Result) string {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return d.Message
		}
	}
	return ""
}

// TestAnalysisContinuesAfterErrors checks that every violation in a program
// is collected in one pass.
func TestAnalysisContinuesAfterErrors(t *testing.T) {
	result := analyzeStatements(
		&ast.DisplayStmt{Pos: at(1), Value: name("a")},
		&ast.DisplayStmt{Pos: at(2), Value: name("b")},
		&ast.BreakStmt{Pos: at(3)},
	)
	if result.ErrorCount != 3 {
		t.Errorf("expected all 3 errors to be collected, got %d", result.ErrorCount)
	}
}

// TestWarnings checks that suspicious constructs warn without failing.
func TestWarnings(t *testing.T) {
	t.Run("uninitialized read", func(t *testing.T) {
		result := analyzeStatements(
			numDecl("x", nil),
			&ast.DisplayStmt{Pos: at(2), Value: name("x")},
		)
		if !result.OK() {
			t.Fatalf("expected no errors, got %v", result.Diagnostics)
		}
		if result.WarningCount != 1 {
			t.Errorf("expected 1 warning, got %d", result.WarningCount)
		}
	})

	t.Run("text loop condition", func(t *testing.T) {
		result := analyzeStatements(
			&ast.WhileStmt{Pos: at(1), Cond: str("forever"), Body: block()},
		)
		if !result.OK() {
			t.Fatalf("expected no errors, got %v", result.Diagnostics)
		}
		if result.WarningCount != 1 {
			t.Errorf("expected 1 warning, got %d", result.WarningCount)
		}
	})

	t.Run("numeric loop condition is silent", func(t *testing.T) {
		result := analyzeStatements(
			&ast.WhileStmt{Pos: at(1), Cond: num(1), Body: block()},
		)
		if result.WarningCount != 0 {
			t.Errorf("numeric condition should not warn, got %d warnings", result.WarningCount)
		}
	})
}

// TestTypeAnnotations checks the types the analyzer leaves on expressions.
func TestTypeAnnotations(t *testing.T) {
	mixed := &ast.BinaryExpr{
		Pos:   at(1),
		Op:    "+",
		Left:  num(1),
		Right: &ast.FloatLit{Pos: at(1), Value: 2.5},
	}
	concat := &ast.BinaryExpr{Pos: at(2), Op: "+", Left: str("a"), Right: str("b")}
	comparison := &ast.BinaryExpr{Pos: at(3), Op: "<", Left: num(1), Right: num(2)}
	modulo := &ast.BinaryExpr{Pos: at(4), Op: "%", Left: num(7), Right: num(2)}
	rangeTest := &ast.BetweenExpr{Pos: at(5), Value: num(5), Lower: num(1), Upper: num(9)}

	result := analyzeStatements(
		&ast.DisplayStmt{Pos: at(1), Value: mixed},
		&ast.DisplayStmt{Pos: at(2), Value: concat},
		&ast.DisplayStmt{Pos: at(3), Value: comparison},
		&ast.DisplayStmt{Pos: at(4), Value: modulo},
		&ast.DisplayStmt{Pos: at(5), Value: rangeTest},
	)
	if !result.OK() {
		t.Fatalf("expected clean analysis, got %v", result.Diagnostics)
	}

	checks := []struct {
		desc string
		got  types.DataType
		want types.DataType
	}{
		{"decimal promotion", mixed.Type, types.Decimal},
		{"text join", concat.Type, types.Text},
		{"comparison", comparison.Type, types.Flag},
		{"modulo stays a number", modulo.Type, types.Number},
		{"between", rangeTest.Type, types.Flag},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %s, want %s", c.desc, c.got, c.want)
		}
	}
}

// TestForEachIteratorType checks the iterator's element type: text for text
// iteration, unknown for lists.
func TestForEachIteratorType(t *testing.T) {
	overText := &ast.ForEachStmt{
		Pos: at(2), Iterator: "c", Iterable: name("s"),
		Body: block(),
	}
	result := analyzeStatements(
		&ast.VarDecl{Pos: at(1), Name: "s", DeclType: types.Text, Init: str("abc")},
		overText,
	)
	if !result.OK() {
		t.Fatalf("expected clean analysis, got %v", result.Diagnostics)
	}
	if overText.IterType != types.Text {
		t.Errorf("text iteration should yield text elements, got %s", overText.IterType)
	}

	overList := &ast.ForEachStmt{
		Pos: at(2), Iterator: "n", Iterable: name("xs"),
		Body: block(),
	}
	result = analyzeStatements(
		&ast.VarDecl{Pos: at(1), Name: "xs", DeclType: types.List, Init: &ast.ListLit{Pos: at(1)}},
		overList,
	)
	if !result.OK() {
		t.Fatalf("expected clean analysis, got %v", result.Diagnostics)
	}
	if overList.IterType != types.Unknown {
		t.Errorf("list element types are untracked, got %s", overList.IterType)
	}
}

// TestFunctionScopeRules checks recursion, parameter visibility, and that
// loops do not leak into functions.
func TestFunctionScopeRules(t *testing.T) {
	recursive := &ast.FuncDecl{
		Pos: at(1), Name: "down", ReturnType: types.Number,
		Params: []*ast.ParamDecl{{Pos: at(1), Name: "n", DeclType: types.Number}},
		Body: block(
			&ast.ReturnStmt{Pos: at(2), Value: &ast.CallExpr{
				Pos: at(2), Name: "down",
				Args: []ast.Expression{&ast.BinaryExpr{
					Pos: at(2), Op: "-", Left: name("n"), Right: num(1),
				}},
			}},
		),
	}
	result := analyzeStatements(recursive)
	if !result.OK() {
		t.Errorf("recursive call should resolve, got %v", result.Diagnostics)
	}

	// A function declared inside a loop body cannot break out of the loop.
	loopWithFunc := &ast.WhileStmt{
		Pos:  at(1),
		Cond: &ast.BoolLit{Pos: at(1), Value: true},
		Body: block(&ast.FuncDecl{
			Pos: at(2), Name: "inner", ReturnType: types.Nothing,
			Body: block(&ast.BreakStmt{Pos: at(3)}),
		}),
	}
	result = analyzeStatements(loopWithFunc)
	if result.ErrorCount != 1 {
		t.Errorf("break inside a nested function should error, got %d errors", result.ErrorCount)
	}
}
