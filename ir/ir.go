// Package ir defines the language-neutral tree lowering produces from
// the AST and the compiler walks to emit LLVM IR. Every variant named
// in the surface language's control-flow and operator set appears
// here exactly once; there is no control-flow sugar left by the time
// a tree reaches this package (elif is nested If, x += e is
// Assign(x, BinOp(...)), for..range is an explicit For with its
// start/stop/step spelled out).
package ir

import "github.com/emberlang/emberc/token"

// Expr is any IR expression node.
type Expr interface {
	Pos() token.Token
}

// Stmt is any IR statement node.
type Stmt interface {
	Pos() token.Token
}

// ---- Expressions ----

type Const struct {
	Token token.Token
	Value int64
}

func (c *Const) Pos() token.Token { return c.Token }

type Float struct {
	Token token.Token
	Value float64
}

func (f *Float) Pos() token.Token { return f.Token }

type Bool struct {
	Token token.Token
	Value bool
}

func (b *Bool) Pos() token.Token { return b.Token }

type Str struct {
	Token token.Token
	Value string
}

func (s *Str) Pos() token.Token { return s.Token }

type Var struct {
	Token token.Token
	Name  string
}

func (v *Var) Pos() token.Token { return v.Token }

type List struct {
	Token token.Token
	Elems []Expr
}

func (l *List) Pos() token.Token { return l.Token }

type Index struct {
	Token token.Token
	List  Expr
	Idx   Expr
}

func (i *Index) Pos() token.Token { return i.Token }

type Len struct {
	Token token.Token
	X     Expr
}

func (l *Len) Pos() token.Token { return l.Token }

// BinOp is an arithmetic or bitwise binary operator: + - * / // % & | ^ << >>.
type BinOp struct {
	Token token.Token
	Op    string
	L, R  Expr
}

func (b *BinOp) Pos() token.Token { return b.Token }

// Cmp is one of the six comparison operators, always yielding a Bool.
type Cmp struct {
	Token token.Token
	Op    string
	L, R  Expr
}

func (c *Cmp) Pos() token.Token { return c.Token }

// Logical is `and`/`or`, short-circuiting: the right operand is only
// evaluated when the left doesn't already decide the result.
type Logical struct {
	Token token.Token
	Op    string // "and" | "or"
	L, R  Expr
}

func (l *Logical) Pos() token.Token { return l.Token }

// Unary covers -x, +x, ~x, and boolean `not x`.
type Unary struct {
	Token token.Token
	Op    string
	X     Expr
}

func (u *Unary) Pos() token.Token { return u.Token }

type Call struct {
	Token token.Token
	Name  string
	Args  []Expr
}

func (c *Call) Pos() token.Token { return c.Token }

type Input struct {
	Token token.Token
}

func (i *Input) Pos() token.Token { return i.Token }

// ---- Statements ----

type Assign struct {
	Token token.Token
	Name  string
	Value Expr
}

func (a *Assign) Pos() token.Token { return a.Token }

// Return with a nil Value returns a boxed integer zero (see Function
// Compiler's trailing-return rule; an explicit bare `return` lowers
// the same way).
type Return struct {
	Token token.Token
	Value Expr
}

func (r *Return) Pos() token.Token { return r.Token }

type Print struct {
	Token token.Token
	Args  []Expr
}

func (p *Print) Pos() token.Token { return p.Token }

// ExprStmt is an expression evaluated for effect (any bare expression
// at statement level, e.g. an `input()` or a function call).
type ExprStmt struct {
	Token token.Token
	X     Expr
}

func (e *ExprStmt) Pos() token.Token { return e.Token }

// If has no elif/else sugar: Else holds either another single-element
// []Stmt{*If} (the lowered elif chain) or the plain else body.
type If struct {
	Token token.Token
	Cond  Expr
	Then  []Stmt
	Else  []Stmt
}

func (i *If) Pos() token.Token { return i.Token }

type While struct {
	Token token.Token
	Cond  Expr
	Body  []Stmt
}

func (w *While) Pos() token.Token { return w.Token }

// For is the desugared `for Var in range(...)` loop: Start/Stop/Step
// are evaluated exactly once before the loop (spec §4.5), each as a
// plain Expr; only Var gets a stack slot.
type For struct {
	Token token.Token
	Var   string
	Start Expr
	Stop  Expr
	Step  Expr
	Body  []Stmt
}

func (f *For) Pos() token.Token { return f.Token }

type Break struct {
	Token token.Token
}

func (b *Break) Pos() token.Token { return b.Token }

type Continue struct {
	Token token.Token
}

func (c *Continue) Pos() token.Token { return c.Token }

// Param is one formal parameter; Default is nil for required params.
type Param struct {
	Name    string
	Default Expr
}

type FunctionDef struct {
	Token  token.Token
	Name   string
	Params []*Param
	Body   []Stmt
}

func (f *FunctionDef) Pos() token.Token { return f.Token }

// Program is the top-level IR unit: function definitions plus the
// statements that make up the synthetic main body (spec §4.7).
type Program struct {
	Functions []*FunctionDef
	Main      []Stmt
}
