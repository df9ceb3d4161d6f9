// Package parser builds an ast.Program from a token stream using a
// recursive-descent driver for statements and precedence climbing
// (Pratt parsing) for expressions.
package parser

import (
	"fmt"
	"strconv"

	"github.com/emberlang/emberc/ast"
	"github.com/emberlang/emberc/lexer"
	"github.com/emberlang/emberc/token"
)

const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	NOT_PREC
	COMPARE
	BITOR_PREC
	BITXOR_PREC
	BITAND_PREC
	SHIFT
	SUM
	PRODUCT
	PREFIX
	CALL_PREC
	INDEX_PREC
)

var precedences = map[token.Type]int{
	token.OR:     OR_PREC,
	token.AND:    AND_PREC,
	token.EQL:    COMPARE,
	token.NEQ:    COMPARE,
	token.LSS:    COMPARE,
	token.LEQ:    COMPARE,
	token.GTR:    COMPARE,
	token.GEQ:    COMPARE,
	token.BITOR:  BITOR_PREC,
	token.BITXOR: BITXOR_PREC,
	token.BITAND: BITAND_PREC,
	token.SHL:    SHIFT,
	token.SHR:    SHIFT,
	token.ADD:    SUM,
	token.SUB:    SUM,
	token.MUL:    PRODUCT,
	token.QUO:    PRODUCT,
	token.IDIV:   PRODUCT,
	token.REM:    PRODUCT,
	token.LPAREN: CALL_PREC,
	token.LBRACK: INDEX_PREC,
}

var augAssignOps = map[token.Type]string{
	token.ADD_ASSIGN:  "+",
	token.SUB_ASSIGN:  "-",
	token.MUL_ASSIGN:  "*",
	token.QUO_ASSIGN:  "/",
	token.IDIV_ASSIGN: "//",
	token.REM_ASSIGN:  "%",
	token.AND_ASSIGN:  "&",
	token.OR_ASSIGN:   "|",
	token.XOR_ASSIGN:  "^",
	token.SHL_ASSIGN:  "<<",
	token.SHR_ASSIGN:  ">>",
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser turns a lexer's token stream into an *ast.Program, collecting
// *token.CompileError instead of panicking so the CLI can report every
// parse error it can find in one pass.
type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []*token.CompileError{}}

	p.prefixParseFns = map[token.Type]prefixParseFn{}
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.LBRACK, p.parseListLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.SUB, p.parsePrefixExpression)
	p.registerPrefix(token.ADD, p.parsePrefixExpression)
	p.registerPrefix(token.BITNOT, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.INPUT, p.parseInputExpression)
	p.registerPrefix(token.LEN, p.parseLenExpression)

	p.infixParseFns = map[token.Type]infixParseFn{}
	for t := range precedences {
		switch t {
		case token.LPAREN:
			p.registerInfix(t, p.parseCallExpression)
		case token.LBRACK:
			p.registerInfix(t, p.parseIndexExpression)
		default:
			p.registerInfix(t, p.parseInfixExpression)
		}
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) Errors() []*token.CompileError { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) errorf(tok token.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) peekError(t token.Type) {
	p.errorf(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	p.errorf(t, "no expression can start with %s", t.Type)
}

// skipNewlines consumes any run of blank NEWLINE tokens, the only
// place the grammar tolerates them outside a statement's terminator.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// Parse consumes the whole token stream and returns the resulting
// *ast.Program. Parse errors are collected, not panicked; callers
// should check Errors() before using the result.
func (p *Parser) Parse() *ast.Program {
	program := &ast.Program{}
	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.skipNewlines()
	}
	return program
}

// parseStatement parses one logical-line statement, NOT consuming the
// trailing NEWLINE (the caller's skipNewlines loop does that).
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.DEF:
		return p.parseFunctionDef()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.BREAK:
		s := &ast.BreakStatement{Token: p.curToken}
		p.endSimpleStatement()
		return s
	case token.CONTINUE:
		s := &ast.ContinueStatement{Token: p.curToken}
		p.endSimpleStatement()
		return s
	case token.RETURN:
		return p.parseReturnStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.IDENT:
		if s := p.tryParseAssignment(); s != nil {
			return s
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// endSimpleStatement advances past the current token and requires
// that a NEWLINE or EOF immediately follow.
func (p *Parser) endSimpleStatement() {
	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.EOF) {
		p.peekError(token.NEWLINE)
	}
	p.nextToken()
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)
	stmt := &ast.ExpressionStatement{Token: tok, Expression: expr}
	p.endSimpleStatement()
	return stmt
}

// tryParseAssignment looks ahead from an IDENT for '=' or an
// augmented-assignment operator; returns nil (without consuming
// anything beyond curToken) if this isn't an assignment, letting the
// caller fall back to parseExpressionStatement.
func (p *Parser) tryParseAssignment() ast.Statement {
	if p.peekTokenIs(token.ASSIGN) {
		name := p.curToken
		p.nextToken() // '='
		p.nextToken() // first token of RHS
		value := p.parseExpression(LOWEST)
		stmt := &ast.AssignStatement{Token: name, Name: name.Literal, Value: value}
		p.endSimpleStatement()
		return stmt
	}
	if op, ok := augAssignOps[p.peekToken.Type]; ok {
		name := p.curToken
		p.nextToken() // the op= token
		p.nextToken() // first token of RHS
		value := p.parseExpression(LOWEST)
		stmt := &ast.AugAssignStatement{Token: name, Name: name.Literal, Operator: op, Value: value}
		p.endSimpleStatement()
		return stmt
	}
	return nil
}

func (p *Parser) parsePrintStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args := p.parseExpressionListUntil(token.RPAREN)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	stmt := &ast.PrintStatement{Token: tok, Arguments: args}
	p.endSimpleStatement()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	tok := p.curToken
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.EOF) {
		p.nextToken()
		return &ast.ReturnStatement{Token: tok}
	}
	p.nextToken()
	val := p.parseExpression(LOWEST)
	stmt := &ast.ReturnStatement{Token: tok, Value: val}
	p.endSimpleStatement()
	return stmt
}

// parseBlock expects either ':' NEWLINE INDENT stmt* DEINDENT, or the
// inline single-statement form ':' stmt (no indented block at all —
// the lexer never opens one since the body never starts a new
// logical line). curToken is left on the token after the block.
func (p *Parser) parseBlock() []ast.Statement {
	if !p.expectPeek(token.COLON) {
		return nil
	}

	if !p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
		stmt := p.parseStatement()
		p.skipNewlines()
		if stmt == nil {
			return nil
		}
		return []ast.Statement{stmt}
	}

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	p.nextToken()
	p.skipNewlines()
	if !p.curTokenIs(token.INDENT) {
		p.errorf(p.curToken, "expected an indented block, got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	p.skipNewlines()

	var body []ast.Statement
	for !p.curTokenIs(token.DEINDENT) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
		p.skipNewlines()
	}
	if p.curTokenIs(token.DEINDENT) {
		p.nextToken()
	} else {
		p.errorf(p.curToken, "expected DEINDENT, got %s", p.curToken.Type)
	}
	return body
}

func (p *Parser) parseIfStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	stmt := &ast.IfStatement{Token: tok, Condition: cond}
	stmt.Then = p.parseBlock()

	for p.curTokenIs(token.ELIF) {
		elifTok := p.curToken
		p.nextToken()
		elifCond := p.parseExpression(LOWEST)
		elifBody := p.parseBlock()
		stmt.Elifs = append(stmt.Elifs, &ast.ElifClause{Token: elifTok, Condition: elifCond, Body: elifBody})
	}

	if p.curTokenIs(token.ELSE) {
		// curToken is ELSE, peek is COLON — the same shape parseBlock
		// expects right after an if/elif's condition expression, so
		// reuse it instead of re-deriving the COLON/NEWLINE/INDENT
		// dance a second time.
		stmt.Else = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	body := p.parseBlock()
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parseForStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	varName := p.curToken.Literal
	if !p.expectPeek(token.IN) {
		return nil
	}
	if !p.expectPeek(token.RANGE) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args := p.parseExpressionListUntil(token.RPAREN)
	if len(args) < 1 || len(args) > 3 {
		p.errorf(tok, "range() takes 1 to 3 arguments, got %d", len(args))
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	body := p.parseBlock()
	return &ast.ForStatement{Token: tok, Var: varName, RangeArgs: args, Body: body}
}

func (p *Parser) parseFunctionDef() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	var params []*ast.Param
	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		params = append(params, p.parseParam())
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			params = append(params, p.parseParam())
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	body := p.parseBlock()
	return &ast.FunctionDef{Token: tok, Name: name, Params: params, Body: body}
}

func (p *Parser) parseParam() *ast.Param {
	if !p.curTokenIs(token.IDENT) {
		p.errorf(p.curToken, "expected parameter name, got %s", p.curToken.Type)
		return &ast.Param{}
	}
	param := &ast.Param{Name: p.curToken.Literal}
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		param.Default = p.parseExpression(LOWEST)
	}
	return param
}

func (p *Parser) parseExpressionListUntil(end token.Type) []ast.Expression {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	return list
}

// ---- expressions ----

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	left := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf(p.curToken, "invalid integer literal %q", p.curToken.Literal)
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "invalid float literal %q", p.curToken.Literal)
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curToken.Type == token.TRUE}
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.curToken
	elems := p.parseExpressionListUntil(token.RBRACK)
	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return &ast.ListLiteral{Token: tok, Elements: elems}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	op := tok.Literal
	precedence := PREFIX
	if tok.Type == token.NOT {
		op = "not"
		precedence = NOT_PREC
	}
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.PrefixExpression{Token: tok, Operator: op, Right: right}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	precedence := precedences[tok.Type]
	op := tok.Literal
	if tok.Type == token.AND {
		op = "and"
	} else if tok.Type == token.OR {
		op = "or"
	}
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.InfixExpression{Token: tok, Left: left, Operator: op, Right: right}
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	ident, ok := fn.(*ast.Identifier)
	if !ok {
		p.errorf(p.curToken, "expression is not callable")
		return nil
	}
	tok := p.curToken
	args := p.parseExpressionListUntil(token.RPAREN)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: ident.Value, Arguments: args}
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken()
	idx := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return &ast.IndexExpression{Token: tok, List: left, Index: idx}
}

func (p *Parser) parseInputExpression() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: "input"}
}

func (p *Parser) parseLenExpression() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	// Every argument is kept so lowering can report a wrong arity.
	args := p.parseExpressionListUntil(token.RPAREN)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: "len", Arguments: args}
}
