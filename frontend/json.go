package frontend

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/types"
)

// jsonNode is the wire shape of one AST node. The "node" tag selects the
// variant; the remaining fields carry that variant's payload and are empty
// elsewhere.
type jsonNode struct {
	Node     string `json:"node"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Op       string `json:"op"`
	Constant bool   `json:"constant"`
	Safe     bool   `json:"safe"`
	Iterator string `json:"iterator"`
	Into     string `json:"into"`

	Value    json.RawMessage `json:"value"`
	Init     *jsonNode       `json:"init"`
	Target   *jsonNode       `json:"target"`
	Cond     *jsonNode       `json:"cond"`
	Then     *jsonNode       `json:"then"`
	Else     *jsonNode       `json:"else"`
	Body     *jsonNode       `json:"body"`
	Count    *jsonNode       `json:"count"`
	Iterable *jsonNode       `json:"iterable"`
	Prompt   *jsonNode       `json:"prompt"`
	Left     *jsonNode       `json:"left"`
	Right    *jsonNode       `json:"right"`
	Operand  *jsonNode       `json:"operand"`
	Lower    *jsonNode       `json:"lower"`
	Upper    *jsonNode       `json:"upper"`
	Index    *jsonNode       `json:"index"`

	Statements []jsonNode `json:"statements"`
	Params     []jsonNode `json:"params"`
	Args       []jsonNode `json:"args"`
	Elements   []jsonNode `json:"elements"`
}

func (n *jsonNode) pos() ast.Position {
	return ast.Position{Line: n.Line, Column: n.Col}
}

// DecodeJSON reads a Program node serialized as JSON and rebuilds the AST.
// This is the interchange format for out-of-process frontends: every node is
// an object with a "node" tag, a position, and the variant's payload.
func DecodeJSON(r io.Reader) (*ast.Program, error) {
	var root jsonNode
	dec := json.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("frontend: decoding AST: %w", err)
	}
	if root.Node != "Program" {
		return nil, fmt.Errorf("frontend: expected Program root, got %q", root.Node)
	}

	prog := &ast.Program{}
	for i := range root.Statements {
		stmt, err := decodeStmt(&root.Statements[i])
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

// parseType maps a wire type name onto a DataType. Empty means unknown.
var wireTypes = map[string]types.DataType{
	"":         types.Unknown,
	"unknown":  types.Unknown,
	"number":   types.Number,
	"decimal":  types.Decimal,
	"text":     types.Text,
	"flag":     types.Flag,
	"list":     types.List,
	"nothing":  types.Nothing,
	"function": types.Function,
}

func parseType(name string) (types.DataType, error) {
	t, ok := wireTypes[name]
	if !ok {
		return types.Unknown, fmt.Errorf("frontend: unknown type name %q", name)
	}
	return t, nil
}

// decodeBlock decodes a node that must be a Block.
func decodeBlock(n *jsonNode) (*ast.Block, error) {
	if n == nil {
		return nil, fmt.Errorf("frontend: missing block")
	}
	if n.Node != "Block" {
		return nil, fmt.Errorf("frontend: expected Block, got %q", n.Node)
	}
	block := &ast.Block{Pos: n.pos()}
	for i := range n.Statements {
		stmt, err := decodeStmt(&n.Statements[i])
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

// decodeStmt decodes one statement node.
func decodeStmt(n *jsonNode) (ast.Statement, error) {
	switch n.Node {
	case "VarDecl":
		declType, err := parseType(n.Type)
		if err != nil {
			return nil, err
		}
		decl := &ast.VarDecl{Pos: n.pos(), Name: n.Name, DeclType: declType, Constant: n.Constant}
		if n.Init != nil {
			init, err := decodeExpr(n.Init)
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		return decl, nil

	case "FuncDecl":
		returnType, err := parseType(n.Type)
		if err != nil {
			return nil, err
		}
		fn := &ast.FuncDecl{Pos: n.pos(), Name: n.Name, ReturnType: returnType}
		for i := range n.Params {
			p := &n.Params[i]
			if p.Node != "ParamDecl" {
				return nil, fmt.Errorf("frontend: expected ParamDecl, got %q", p.Node)
			}
			paramType, err := parseType(p.Type)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, &ast.ParamDecl{Pos: p.pos(), Name: p.Name, DeclType: paramType})
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		fn.Body = body
		return fn, nil

	case "Block":
		return decodeBlock(n)

	case "Assign":
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		value, err := decodeValueExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Pos: n.pos(), Target: target, Value: value}, nil

	case "If":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeBlock(n.Then)
		if err != nil {
			return nil, err
		}
		stmt := &ast.IfStmt{Pos: n.pos(), Cond: cond, Then: then}
		if n.Else != nil {
			other, err := decodeBlock(n.Else)
			if err != nil {
				return nil, err
			}
			stmt.Else = other
		}
		return stmt, nil

	case "While":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Pos: n.pos(), Cond: cond, Body: body}, nil

	case "Repeat":
		count, err := decodeExpr(n.Count)
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.RepeatStmt{Pos: n.pos(), Count: count, Body: body}, nil

	case "ForEach":
		iterable, err := decodeExpr(n.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ForEachStmt{Pos: n.pos(), Iterator: n.Iterator, Iterable: iterable, Body: body}, nil

	case "Return":
		stmt := &ast.ReturnStmt{Pos: n.pos()}
		if len(n.Value) > 0 {
			value, err := decodeValueExpr(n)
			if err != nil {
				return nil, err
			}
			stmt.Value = value
		}
		return stmt, nil

	case "Break":
		return &ast.BreakStmt{Pos: n.pos()}, nil

	case "Continue":
		return &ast.ContinueStmt{Pos: n.pos()}, nil

	case "Display":
		value, err := decodeValueExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.DisplayStmt{Pos: n.pos(), Value: value}, nil

	case "Ask":
		stmt := &ast.AskStmt{Pos: n.pos(), Target: n.Into}
		if n.Prompt != nil {
			prompt, err := decodeExpr(n.Prompt)
			if err != nil {
				return nil, err
			}
			stmt.Prompt = prompt
		}
		return stmt, nil

	case "Read":
		return &ast.ReadStmt{Pos: n.pos(), Target: n.Into}, nil

	case "SecureZone":
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.SecureZone{Pos: n.pos(), Body: body, Safe: n.Safe}, nil
	}

	return nil, fmt.Errorf("frontend: unknown statement node %q", n.Node)
}

// decodeValueExpr decodes the node stored in a statement's "value" field.
func decodeValueExpr(n *jsonNode) (ast.Expression, error) {
	var child jsonNode
	if err := json.Unmarshal(n.Value, &child); err != nil {
		return nil, fmt.Errorf("frontend: decoding value of %s: %w", n.Node, err)
	}
	return decodeExpr(&child)
}

// decodeExpr decodes one expression node.
func decodeExpr(n *jsonNode) (ast.Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("frontend: missing expression")
	}

	switch n.Node {
	case "LiteralInt":
		var v int64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("frontend: bad integer literal: %w", err)
		}
		return &ast.IntLit{Pos: n.pos(), Value: v}, nil

	case "LiteralFloat":
		var v float64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("frontend: bad decimal literal: %w", err)
		}
		return &ast.FloatLit{Pos: n.pos(), Value: v}, nil

	case "LiteralString":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("frontend: bad text literal: %w", err)
		}
		return &ast.StringLit{Pos: n.pos(), Value: v}, nil

	case "LiteralBool":
		var v bool
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("frontend: bad flag literal: %w", err)
		}
		return &ast.BoolLit{Pos: n.pos(), Value: v}, nil

	case "Identifier":
		return &ast.Ident{Pos: n.pos(), Name: n.Name}, nil

	case "BinaryOp":
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Pos: n.pos(), Op: n.Op, Left: left, Right: right}, nil

	case "UnaryOp":
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: n.pos(), Op: n.Op, Operand: operand}, nil

	case "Between":
		value, err := decodeValueExpr(n)
		if err != nil {
			return nil, err
		}
		lower, err := decodeExpr(n.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := decodeExpr(n.Upper)
		if err != nil {
			return nil, err
		}
		return &ast.BetweenExpr{Pos: n.pos(), Value: value, Lower: lower, Upper: upper}, nil

	case "FuncCall":
		call := &ast.CallExpr{Pos: n.pos(), Name: n.Name}
		for i := range n.Args {
			arg, err := decodeExpr(&n.Args[i])
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		return call, nil

	case "Index":
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		index, err := decodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpr{Pos: n.pos(), Left: left, Index: index}, nil

	case "List":
		list := &ast.ListLit{Pos: n.pos()}
		for i := range n.Elements {
			el, err := decodeExpr(&n.Elements[i])
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, el)
		}
		return list, nil
	}

	return nil, fmt.Errorf("frontend: unknown expression node %q", n.Node)
}
