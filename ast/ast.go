// Package ast defines the expression and statement tree the interpreter
// walks directly. There is no lexer or parser here: scripts arrive as a
// JSON AST dump (see decode.go), already shaped the way Python's own ast
// module would shape it, and this package just gives those shapes Go types.
package ast

import "github.com/deliteai/nimblecore/token"

// Node is implemented by every expression and statement node.
type Node interface {
	// Pos returns the source line this node was parsed from.
	Pos() token.Pos
	// String returns a short human-readable rendering, used in error
	// messages.
	String() string
}

// Expr is implemented by expression nodes: those that evaluate to a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by statement nodes: those executed for effect.
type Stmt interface {
	Node
	stmtNode()
}

// Ident names a variable, parameter, attribute, or module.
type Ident struct {
	NamePos token.Pos
	Name    string
}

func (n *Ident) Pos() token.Pos { return n.NamePos }
func (n *Ident) String() string { return n.Name }

// Module is one compiled unit: an import name and its top-level body. A
// File may contain several, one per imported script plus the entry module.
type Module struct {
	Name string
	Body []Stmt
}

// File is the root of a decoded task: the entry module plus every module it
// (transitively) imports, keyed by import name.
type File struct {
	Main    *Module
	Modules map[string]*Module
}
