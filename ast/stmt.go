package ast

import "github.com/deliteai/nimblecore/token"

func (*AssignStmt) stmtNode()     {}
func (*AugAssignStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()       {}
func (*ReturnStmt) stmtNode()     {}
func (*BreakStmt) stmtNode()      {}
func (*ContinueStmt) stmtNode()   {}
func (*IfStmt) stmtNode()         {}
func (*WhileStmt) stmtNode()      {}
func (*ForStmt) stmtNode()        {}
func (*AssertStmt) stmtNode()     {}
func (*RaiseStmt) stmtNode()      {}
func (*TryStmt) stmtNode()        {}
func (*FunctionDefStmt) stmtNode() {}
func (*ClassDefStmt) stmtNode()   {}
func (*ImportStmt) stmtNode()     {}
func (*InbuiltStmt) stmtNode()    {}
func (*PassStmt) stmtNode()       {}

// Params is a function's parameter list: required names, names with
// defaults, and an optional trailing *args collector.
type Params struct {
	Names     []string
	Defaults  map[string]Expr // default value expressions for optional params
	VarArgs   string          // name of the *args parameter, "" if none
	Locations []StackLocation // filled in by the scope-resolution pass
}

// AssignStmt evaluates Value then stores it into every target in Targets
// (more than one target means a chained assignment `a = b = value`). Tuple
// targets unpack element-wise.
type AssignStmt struct {
	StmtPos token.Pos
	Targets []Expr
	Value   Expr
}

func (n *AssignStmt) Pos() token.Pos { return n.StmtPos }
func (n *AssignStmt) String() string { return "assign" }

// AugAssignStmt is `target Op= value`, e.g. `x += 1`.
type AugAssignStmt struct {
	StmtPos token.Pos
	Target  Expr
	Op      token.Token
	Value   Expr
}

func (n *AugAssignStmt) Pos() token.Pos { return n.StmtPos }
func (n *AugAssignStmt) String() string { return "aug-assign" }

// ExprStmt evaluates X and discards the result.
type ExprStmt struct {
	StmtPos token.Pos
	X       Expr
}

func (n *ExprStmt) Pos() token.Pos { return n.StmtPos }
func (n *ExprStmt) String() string { return n.X.String() }

// ReturnStmt unwinds the enclosing function body, carrying Value (nil means
// return None).
type ReturnStmt struct {
	StmtPos token.Pos
	Value   Expr
}

func (n *ReturnStmt) Pos() token.Pos { return n.StmtPos }
func (n *ReturnStmt) String() string { return "return" }

// BreakStmt unwinds the nearest enclosing While/For.
type BreakStmt struct{ StmtPos token.Pos }

func (n *BreakStmt) Pos() token.Pos { return n.StmtPos }
func (n *BreakStmt) String() string { return "break" }

// ContinueStmt unwinds to the top of the nearest enclosing While/For.
type ContinueStmt struct{ StmtPos token.Pos }

func (n *ContinueStmt) Pos() token.Pos { return n.StmtPos }
func (n *ContinueStmt) String() string { return "continue" }

// IfStmt runs Body when Test is truthy, else Orelse (which may be empty, or
// itself a single-element []Stmt{*IfStmt} for an `elif`).
type IfStmt struct {
	StmtPos token.Pos
	Test    Expr
	Body    []Stmt
	Orelse  []Stmt
}

func (n *IfStmt) Pos() token.Pos { return n.StmtPos }
func (n *IfStmt) String() string { return "if" }

// WhileStmt loops Body while Test stays truthy.
type WhileStmt struct {
	StmtPos token.Pos
	Test    Expr
	Body    []Stmt
}

func (n *WhileStmt) Pos() token.Pos { return n.StmtPos }
func (n *WhileStmt) String() string { return "while" }

// ForStmt iterates Iter, assigning each element to Target and running Body.
// Iter's size is re-evaluated every iteration since the iterable may mutate
// during the body.
type ForStmt struct {
	StmtPos token.Pos
	Target  Expr
	Iter    Expr
	Body    []Stmt
}

func (n *ForStmt) Pos() token.Pos { return n.StmtPos }
func (n *ForStmt) String() string { return "for" }

// AssertStmt raises when Test is falsy, with Msg (if present) as the
// exception message, else the literal "Assertion failed".
type AssertStmt struct {
	StmtPos token.Pos
	Test    Expr
	Msg     Expr
}

func (n *AssertStmt) Pos() token.Pos { return n.StmtPos }
func (n *AssertStmt) String() string { return "assert" }

// RaiseStmt raises Exc, which must evaluate to an exception value.
type RaiseStmt struct {
	StmtPos token.Pos
	Exc     Expr
}

func (n *RaiseStmt) Pos() token.Pos { return n.StmtPos }
func (n *RaiseStmt) String() string { return "raise" }

// ExceptHandler catches exceptions whose type name matches Type (nil
// matches anything), optionally binding the exception value to Name.
type ExceptHandler struct {
	HandlerPos token.Pos
	Type       Expr // Name expr naming the exception class, or nil for bare except
	Name       string
	Body       []Stmt
}

// TryStmt runs Body; on error the first matching Handlers entry catches,
// then Finally always runs.
type TryStmt struct {
	StmtPos  token.Pos
	Body     []Stmt
	Handlers []ExceptHandler
	Finally  []Stmt
}

func (n *TryStmt) Pos() token.Pos { return n.StmtPos }
func (n *TryStmt) String() string { return "try" }

// Decorator is one `@name(...)` applied to a FunctionDefStmt, left-to-right.
type Decorator struct {
	Name string
	Args []Expr
}

// FunctionDefStmt builds a function value bound to the current stack,
// applies Decorators left-to-right, then stores it at Location.
type FunctionDefStmt struct {
	StmtPos    token.Pos
	Name       string
	Params     *Params
	Body       []Stmt
	Decorators []Decorator
	Location   *StackLocation
	FuncIndex  int // function index unique within its module (not across modules), assigned at bind time
}

func (n *FunctionDefStmt) Pos() token.Pos { return n.StmtPos }
func (n *FunctionDefStmt) String() string { return "def " + n.Name }

// ClassDefStmt creates a class value: Body executes once against a pair of
// sibling scopes (class-level names, method creation), and the resulting
// class-scope bindings are copied into the class's member table.
type ClassDefStmt struct {
	StmtPos token.Pos
	Name     string
	Bases    []Expr
	Body     []Stmt
	Location *StackLocation
	FuncIndex int // frame index the class body executes against, assigned at bind time
}

func (n *ClassDefStmt) Pos() token.Pos { return n.StmtPos }
func (n *ClassDefStmt) String() string { return "class " + n.Name }

// ImportStmt binds Names from Module, which is either a built-in module
// name ("nimblenet", "nimblenetInternalTesting", "regex") or another script
// module in the same task.
type ImportStmt struct {
	StmtPos token.Pos
	Module  string
	Names   []string // empty means bind the module itself under Module
	Locations []StackLocation
}

func (n *ImportStmt) Pos() token.Pos { return n.StmtPos }
func (n *ImportStmt) String() string { return "import " + n.Module }

// PassStmt does nothing; it exists so empty bodies decode cleanly.
type PassStmt struct{ StmtPos token.Pos }

func (n *PassStmt) Pos() token.Pos { return n.StmtPos }
func (n *PassStmt) String() string { return "pass" }

// InbuiltStmt is the implicit first statement of the global body: it binds
// the host/runtime built-in callables into scope before any user code runs.
type InbuiltStmt struct {
	StmtPos token.Pos
	Names   []string
}

func (n *InbuiltStmt) Pos() token.Pos { return n.StmtPos }
func (n *InbuiltStmt) String() string { return "<inbuilt>" }
