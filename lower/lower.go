// Package lower desugars an *ast.Program into the IR's exhaustive,
// sugar-free vocabulary: elif becomes nested If-in-Else, augmented
// assignment becomes a plain Assign wrapping a BinOp, and
// `for x in range(...)` becomes an explicit For with its bound/step
// expressions captured once. Any AST construct outside the IR's
// vocabulary is rejected here with a source-positioned error, per
// spec §4.2's "Lowering fails explicitly" clause.
package lower

import (
	"fmt"

	"github.com/emberlang/emberc/ast"
	"github.com/emberlang/emberc/ir"
	"github.com/emberlang/emberc/token"
)

var cmpOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var logicalOps = map[string]bool{"and": true, "or": true}

// Lowerer walks an AST and accumulates *token.CompileError instead of
// panicking, matching the single-error-shape policy of spec §7.
type Lowerer struct {
	Errors []*token.CompileError
}

func New() *Lowerer { return &Lowerer{} }

func (lo *Lowerer) errorf(tok token.Token, format string, args ...interface{}) {
	lo.Errors = append(lo.Errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

// Program lowers a whole *ast.Program, splitting top-level
// FunctionDefs from the statements that form the synthetic main body
// (spec §4.7).
func (lo *Lowerer) Program(prog *ast.Program) *ir.Program {
	out := &ir.Program{}
	for _, stmt := range prog.Statements {
		if fd, ok := stmt.(*ast.FunctionDef); ok {
			if lowered := lo.functionDef(fd); lowered != nil {
				out.Functions = append(out.Functions, lowered)
			}
			continue
		}
		out.Main = append(out.Main, lo.statement(stmt)...)
	}
	return out
}

func (lo *Lowerer) functionDef(fd *ast.FunctionDef) *ir.FunctionDef {
	params := make([]*ir.Param, len(fd.Params))
	for i, p := range fd.Params {
		var def ir.Expr
		if p.Default != nil {
			def = lo.expr(p.Default)
		}
		params[i] = &ir.Param{Name: p.Name, Default: def}
	}
	return &ir.FunctionDef{
		Token:  fd.Token,
		Name:   fd.Name,
		Params: params,
		Body:   lo.block(fd.Body),
	}
}

func (lo *Lowerer) block(stmts []ast.Statement) []ir.Stmt {
	var out []ir.Stmt
	for _, s := range stmts {
		out = append(out, lo.statement(s)...)
	}
	return out
}

// statement lowers one ast.Statement into zero or more ir.Stmt (a
// FunctionDef met at a non-top-level position lowers to nothing, with
// an error, since the surface language has no closures/nested defs).
func (lo *Lowerer) statement(stmt ast.Statement) []ir.Stmt {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return []ir.Stmt{&ir.Assign{Token: s.Token, Name: s.Name, Value: lo.expr(s.Value)}}

	case *ast.AugAssignStatement:
		rhs := &ir.BinOp{
			Token: s.Token,
			Op:    s.Operator,
			L:     &ir.Var{Token: s.Token, Name: s.Name},
			R:     lo.expr(s.Value),
		}
		return []ir.Stmt{&ir.Assign{Token: s.Token, Name: s.Name, Value: rhs}}

	case *ast.ExpressionStatement:
		return []ir.Stmt{&ir.ExprStmt{Token: s.Token, X: lo.expr(s.Expression)}}

	case *ast.PrintStatement:
		args := make([]ir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			args[i] = lo.expr(a)
		}
		return []ir.Stmt{&ir.Print{Token: s.Token, Args: args}}

	case *ast.ReturnStatement:
		var v ir.Expr
		if s.Value != nil {
			v = lo.expr(s.Value)
		}
		return []ir.Stmt{&ir.Return{Token: s.Token, Value: v}}

	case *ast.BreakStatement:
		return []ir.Stmt{&ir.Break{Token: s.Token}}

	case *ast.ContinueStatement:
		return []ir.Stmt{&ir.Continue{Token: s.Token}}

	case *ast.IfStatement:
		return []ir.Stmt{lo.ifStatement(s)}

	case *ast.WhileStatement:
		return []ir.Stmt{&ir.While{Token: s.Token, Cond: lo.expr(s.Condition), Body: lo.block(s.Body)}}

	case *ast.ForStatement:
		return []ir.Stmt{lo.forStatement(s)}

	case *ast.FunctionDef:
		lo.errorf(s.Token, "nested function definitions are not supported")
		return nil

	default:
		lo.errorf(stmt.Tok(), "unsupported statement form %T", stmt)
		return nil
	}
}

// ifStatement flattens the parser's Then/Elifs/Else lists into nested
// IR Ifs: `if a: A elif b: B else: C` becomes
// If(a, A, [If(b, B, C)]).
func (lo *Lowerer) ifStatement(s *ast.IfStatement) *ir.If {
	// Build from the innermost (final else) outward.
	var elseBody []ir.Stmt
	if s.Else != nil {
		elseBody = lo.block(s.Else)
	}
	for i := len(s.Elifs) - 1; i >= 0; i-- {
		clause := s.Elifs[i]
		elseBody = []ir.Stmt{&ir.If{
			Token: clause.Token,
			Cond:  lo.expr(clause.Condition),
			Then:  lo.block(clause.Body),
			Else:  elseBody,
		}}
	}
	return &ir.If{
		Token: s.Token,
		Cond:  lo.expr(s.Condition),
		Then:  lo.block(s.Then),
		Else:  elseBody,
	}
}

// forStatement lowers `for i in range(a[, b[, c]]): body` to an IR
// For with Start/Stop/Step explicit (spec §4.2/§4.5): range(n) means
// start=0, stop=n, step=1; range(a,b) means step=1; range(a,b,c) is
// literal. A literal negative step is rejected per SPEC_FULL's
// resolution of the §9 open question; a non-literal step is left for
// codegen to switch the loop comparison on sign at runtime.
func (lo *Lowerer) forStatement(s *ast.ForStatement) *ir.For {
	args := s.RangeArgs
	var start, stop, step ir.Expr
	switch len(args) {
	case 1:
		start = &ir.Const{Token: s.Token, Value: 0}
		stop = lo.expr(args[0])
		step = &ir.Const{Token: s.Token, Value: 1}
	case 2:
		start = lo.expr(args[0])
		stop = lo.expr(args[1])
		step = &ir.Const{Token: s.Token, Value: 1}
	case 3:
		start = lo.expr(args[0])
		stop = lo.expr(args[1])
		step = lo.expr(args[2])
		if isNegativeIntLiteral(args[2]) {
			lo.errorf(args[2].Tok(), "range() step must not be a negative literal; use a non-literal expression for a descending range")
		}
	default:
		lo.errorf(s.Token, "range() takes 1 to 3 arguments, got %d", len(args))
		start = &ir.Const{Token: s.Token, Value: 0}
		stop = &ir.Const{Token: s.Token, Value: 0}
		step = &ir.Const{Token: s.Token, Value: 1}
	}
	return &ir.For{Token: s.Token, Var: s.Var, Start: start, Stop: stop, Step: step, Body: lo.block(s.Body)}
}

func (lo *Lowerer) expr(e ast.Expression) ir.Expr {
	switch x := e.(type) {
	case *ast.IntegerLiteral:
		return &ir.Const{Token: x.Token, Value: x.Value}
	case *ast.FloatLiteral:
		return &ir.Float{Token: x.Token, Value: x.Value}
	case *ast.BooleanLiteral:
		return &ir.Bool{Token: x.Token, Value: x.Value}
	case *ast.StringLiteral:
		return &ir.Str{Token: x.Token, Value: x.Value}
	case *ast.Identifier:
		return &ir.Var{Token: x.Token, Name: x.Value}
	case *ast.ListLiteral:
		elems := make([]ir.Expr, len(x.Elements))
		for i, el := range x.Elements {
			elems[i] = lo.expr(el)
		}
		return &ir.List{Token: x.Token, Elems: elems}
	case *ast.IndexExpression:
		return &ir.Index{Token: x.Token, List: lo.expr(x.List), Idx: lo.expr(x.Index)}
	case *ast.PrefixExpression:
		return &ir.Unary{Token: x.Token, Op: x.Operator, X: lo.expr(x.Right)}
	case *ast.InfixExpression:
		return lo.infix(x)
	case *ast.CallExpression:
		return lo.call(x)
	default:
		lo.errorf(e.Tok(), "unsupported expression form %T", e)
		return &ir.Const{Token: e.Tok(), Value: 0}
	}
}

func (lo *Lowerer) infix(x *ast.InfixExpression) ir.Expr {
	l, r := lo.expr(x.Left), lo.expr(x.Right)
	switch {
	case cmpOps[x.Operator]:
		return &ir.Cmp{Token: x.Token, Op: x.Operator, L: l, R: r}
	case logicalOps[x.Operator]:
		return &ir.Logical{Token: x.Token, Op: x.Operator, L: l, R: r}
	default:
		if (x.Operator == "&" || x.Operator == "|" || x.Operator == "^" || x.Operator == "<<" || x.Operator == ">>") && isFloatLiteral(x.Left, x.Right) {
			lo.errorf(x.Token, "bitwise operator %q cannot be applied to a float literal operand", x.Operator)
		}
		return &ir.BinOp{Token: x.Token, Op: x.Operator, L: l, R: r}
	}
}

// isNegativeIntLiteral recognizes both a bare negative literal and the
// surface form the parser actually produces for one: unary minus
// applied to a positive IntegerLiteral (there is no negative-literal
// token, only SUB-as-prefix-operator).
func isNegativeIntLiteral(e ast.Expression) bool {
	if lit, ok := e.(*ast.IntegerLiteral); ok {
		return lit.Value < 0
	}
	if pre, ok := e.(*ast.PrefixExpression); ok && pre.Operator == "-" {
		_, ok := pre.Right.(*ast.IntegerLiteral)
		return ok
	}
	return false
}

func isFloatLiteral(exprs ...ast.Expression) bool {
	for _, e := range exprs {
		if _, ok := e.(*ast.FloatLiteral); ok {
			return true
		}
	}
	return false
}

func (lo *Lowerer) call(x *ast.CallExpression) ir.Expr {
	switch x.Function {
	case "input":
		return &ir.Input{Token: x.Token}
	case "len":
		if len(x.Arguments) != 1 {
			lo.errorf(x.Token, "len() takes exactly 1 argument, got %d", len(x.Arguments))
			return &ir.Const{Token: x.Token, Value: 0}
		}
		return &ir.Len{Token: x.Token, X: lo.expr(x.Arguments[0])}
	default:
		args := make([]ir.Expr, len(x.Arguments))
		for i, a := range x.Arguments {
			args[i] = lo.expr(a)
		}
		return &ir.Call{Token: x.Token, Name: x.Function, Args: args}
	}
}
