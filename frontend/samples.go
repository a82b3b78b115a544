package frontend

import (
	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/types"
)

// Sample is a named, pre-built NatureLang program.
type Sample struct {
	// Name identifies the sample on the command line and in the inspector.
	Name string

	// Description says what the program demonstrates.
	Description string

	// Source is the NatureLang source the AST corresponds to, for display.
	Source string

	// Program is the sample's AST. Build a fresh copy per use via the
	// Samples table; analysis annotates the tree in place.
	Program func() *ast.Program
}

// Samples lists the built-in programs, mirroring the compiler's end-to-end
// scenarios: plain output, arithmetic, folding fodder, range tests,
// functions, and loops.
var Samples = []Sample{
	{
		Name:        "hello",
		Description: "print a greeting",
		Source:      `display "Hello, World!"`,
		Program:     helloProgram,
	},
	{
		Name:        "sum",
		Description: "add two variables",
		Source: `create a number called x and set it to 10
create a number called y and set it to 25
create a number called r
r becomes x plus y
display r`,
		Program: sumProgram,
	},
	{
		Name:        "folding",
		Description: "constant arithmetic, food for the optimizer",
		Source: `create a number called n and set it to 3 plus 4 multiplied by 5
display n`,
		Program: foldingProgram,
	},
	{
		Name:        "between",
		Description: "range test with the between operator",
		Source: `create a number called t and set it to 72
if t is between 65 and 75 then
    display "ok"
end if`,
		Program: betweenProgram,
	},
	{
		Name:        "functions",
		Description: "declare and call a function",
		Source: `function add takes a number and b number gives back number
    give back a plus b
end function
display add(5, 3)`,
		Program: functionsProgram,
	},
	{
		Name:        "repeat",
		Description: "counted loop",
		Source: `create a number called i and set it to 0
repeat 3 times
    i becomes i plus 1
    display i
end repeat`,
		Program: repeatProgram,
	},
	{
		Name:        "foreach",
		Description: "iterate over a list",
		Source: `create a list called nums and set it to [1, 2, 3]
for each n in nums
    display n
end for`,
		Program: forEachProgram,
	},
}

// LookupSample finds a built-in sample by name.
func LookupSample(name string) (Sample, bool) {
	for _, s := range Samples {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

func at(line int) ast.Position { return ast.Position{Line: line, Column: 1} }

func helloProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.DisplayStmt{Pos: at(1), Value: &ast.StringLit{Pos: at(1), Value: "Hello, World!"}},
	}}
}

func sumProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.VarDecl{Pos: at(1), Name: "x", DeclType: types.Number, Init: &ast.IntLit{Pos: at(1), Value: 10}},
		&ast.VarDecl{Pos: at(2), Name: "y", DeclType: types.Number, Init: &ast.IntLit{Pos: at(2), Value: 25}},
		&ast.VarDecl{Pos: at(3), Name: "r", DeclType: types.Number},
		&ast.AssignStmt{
			Pos:    at(4),
			Target: &ast.Ident{Pos: at(4), Name: "r"},
			Value: &ast.BinaryExpr{
				Pos:   at(4),
				Op:    "+",
				Left:  &ast.Ident{Pos: at(4), Name: "x"},
				Right: &ast.Ident{Pos: at(4), Name: "y"},
			},
		},
		&ast.DisplayStmt{Pos: at(5), Value: &ast.Ident{Pos: at(5), Name: "r"}},
	}}
}

func foldingProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.VarDecl{
			Pos:      at(1),
			Name:     "n",
			DeclType: types.Number,
			Init: &ast.BinaryExpr{
				Pos:  at(1),
				Op:   "+",
				Left: &ast.IntLit{Pos: at(1), Value: 3},
				Right: &ast.BinaryExpr{
					Pos:   at(1),
					Op:    "*",
					Left:  &ast.IntLit{Pos: at(1), Value: 4},
					Right: &ast.IntLit{Pos: at(1), Value: 5},
				},
			},
		},
		&ast.DisplayStmt{Pos: at(2), Value: &ast.Ident{Pos: at(2), Name: "n"}},
	}}
}

func betweenProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.VarDecl{Pos: at(1), Name: "t", DeclType: types.Number, Init: &ast.IntLit{Pos: at(1), Value: 72}},
		&ast.IfStmt{
			Pos: at(2),
			Cond: &ast.BetweenExpr{
				Pos:   at(2),
				Value: &ast.Ident{Pos: at(2), Name: "t"},
				Lower: &ast.IntLit{Pos: at(2), Value: 65},
				Upper: &ast.IntLit{Pos: at(2), Value: 75},
			},
			Then: &ast.Block{Pos: at(3), Statements: []ast.Statement{
				&ast.DisplayStmt{Pos: at(3), Value: &ast.StringLit{Pos: at(3), Value: "ok"}},
			}},
		},
	}}
}

func functionsProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.FuncDecl{
			Pos:  at(1),
			Name: "add",
			Params: []*ast.ParamDecl{
				{Pos: at(1), Name: "a", DeclType: types.Number},
				{Pos: at(1), Name: "b", DeclType: types.Number},
			},
			ReturnType: types.Number,
			Body: &ast.Block{Pos: at(2), Statements: []ast.Statement{
				&ast.ReturnStmt{Pos: at(2), Value: &ast.BinaryExpr{
					Pos:   at(2),
					Op:    "+",
					Left:  &ast.Ident{Pos: at(2), Name: "a"},
					Right: &ast.Ident{Pos: at(2), Name: "b"},
				}},
			}},
		},
		&ast.DisplayStmt{Pos: at(4), Value: &ast.CallExpr{
			Pos:  at(4),
			Name: "add",
			Args: []ast.Expression{
				&ast.IntLit{Pos: at(4), Value: 5},
				&ast.IntLit{Pos: at(4), Value: 3},
			},
		}},
	}}
}

func repeatProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.VarDecl{Pos: at(1), Name: "i", DeclType: types.Number, Init: &ast.IntLit{Pos: at(1), Value: 0}},
		&ast.RepeatStmt{
			Pos:   at(2),
			Count: &ast.IntLit{Pos: at(2), Value: 3},
			Body: &ast.Block{Pos: at(3), Statements: []ast.Statement{
				&ast.AssignStmt{
					Pos:    at(3),
					Target: &ast.Ident{Pos: at(3), Name: "i"},
					Value: &ast.BinaryExpr{
						Pos:   at(3),
						Op:    "+",
						Left:  &ast.Ident{Pos: at(3), Name: "i"},
						Right: &ast.IntLit{Pos: at(3), Value: 1},
					},
				},
				&ast.DisplayStmt{Pos: at(4), Value: &ast.Ident{Pos: at(4), Name: "i"}},
			}},
		},
	}}
}

func forEachProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.VarDecl{
			Pos:      at(1),
			Name:     "nums",
			DeclType: types.List,
			Init: &ast.ListLit{Pos: at(1), Elements: []ast.Expression{
				&ast.IntLit{Pos: at(1), Value: 1},
				&ast.IntLit{Pos: at(1), Value: 2},
				&ast.IntLit{Pos: at(1), Value: 3},
			}},
		},
		&ast.ForEachStmt{
			Pos:      at(2),
			Iterator: "n",
			Iterable: &ast.Ident{Pos: at(2), Name: "nums"},
			Body: &ast.Block{Pos: at(3), Statements: []ast.Statement{
				&ast.DisplayStmt{Pos: at(3), Value: &ast.Ident{Pos: at(3), Name: "n"}},
			}},
		},
	}}
}
