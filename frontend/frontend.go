// Package frontend defines the boundary between the external NatureLang
// frontend and the compiler core.
//
// The lexer and parser live outside this repository: the compiler consumes a
// fully-built AST. This package fixes the hand-off contract (the Frontend
// interface), decodes ASTs delivered as JSON by out-of-process frontends,
// and ships a set of built-in sample programs used by the driver, the
// pipeline inspector, and the end-to-end tests.
package frontend

import "github.com/dr8co/naturec/ast"

// Frontend turns NatureLang source text into an AST. Implementations must
// fill every node's position and leave data types unresolved.
type Frontend interface {
	// Parse builds the AST for the given source.
	Parse(source string) (*ast.Program, error)
}
