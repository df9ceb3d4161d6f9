package parser

import (
	"testing"

	"github.com/emberlang/emberc/ast"
	"github.com/emberlang/emberc/lexer"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	l := lexer.New(input)
	p := New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors for input: %s", input)
	return prog
}

func TestParseAssignment(t *testing.T) {
	prog := mustParse(t, "x = 5\n")
	require.Len(t, prog.Statements, 1)
	stmt, ok := prog.Statements[0].(*ast.AssignStatement)
	require.True(t, ok, "expected *ast.AssignStatement, got %T", prog.Statements[0])
	require.Equal(t, "x", stmt.Name)
	lit, ok := stmt.Value.(*ast.IntegerLiteral)
	require.True(t, ok)
	require.Equal(t, int64(5), lit.Value)
}

func TestParseAugAssign(t *testing.T) {
	prog := mustParse(t, "x += 1\n")
	stmt, ok := prog.Statements[0].(*ast.AugAssignStatement)
	require.True(t, ok, "expected *ast.AugAssignStatement, got %T", prog.Statements[0])
	require.Equal(t, "+", stmt.Operator)
}

func TestParseInfixPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x = 1 + 2 * 3", "(1 + (2 * 3))"},
		{"x = (1 + 2) * 3", "((1 + 2) * 3)"},
		{"x = a and b or c", "((a and b) or c)"},
		{"x = 1 < 2 and 3 > 4", "((1 < 2) and (3 > 4))"},
		{"x = not 1 == 2", "(not (1 == 2))"},
		{"x = not a and not b", "((not a) and (not b))"},
	}
	for _, tt := range tests {
		prog := mustParse(t, tt.input+"\n")
		stmt := prog.Statements[0].(*ast.AssignStatement)
		require.Equal(t, tt.want, stmt.Value.String())
	}
}

func TestParseIfElifElse(t *testing.T) {
	input := "if a:\n  x = 1\nelif b:\n  x = 2\nelse:\n  x = 3\n"
	prog := mustParse(t, input)
	stmt, ok := prog.Statements[0].(*ast.IfStatement)
	require.True(t, ok)
	require.Len(t, stmt.Then, 1)
	require.Len(t, stmt.Elifs, 1)
	require.Len(t, stmt.Else, 1)
}

func TestParseWhile(t *testing.T) {
	prog := mustParse(t, "while x < 10:\n  x += 1\n")
	stmt, ok := prog.Statements[0].(*ast.WhileStatement)
	require.True(t, ok)
	require.Len(t, stmt.Body, 1)
}

func TestParseForRange(t *testing.T) {
	prog := mustParse(t, "for i in range(0, 10, 2):\n  print(i)\n")
	stmt, ok := prog.Statements[0].(*ast.ForStatement)
	require.True(t, ok)
	require.Equal(t, "i", stmt.Var)
	require.Len(t, stmt.RangeArgs, 3)
}

func TestParseForRangeArgCount(t *testing.T) {
	l := lexer.New("for i in range(1, 2, 3, 4):\n  pass\n")
	p := New(l)
	p.Parse()
	require.NotEmpty(t, p.Errors())
}

func TestParseFunctionDefWithDefault(t *testing.T) {
	prog := mustParse(t, "def f(a, b=2):\n  return a + b\n")
	fd, ok := prog.Statements[0].(*ast.FunctionDef)
	require.True(t, ok)
	require.Equal(t, "f", fd.Name)
	require.Len(t, fd.Params, 2)
	require.Nil(t, fd.Params[0].Default)
	require.NotNil(t, fd.Params[1].Default)
}

func TestParseListAndIndex(t *testing.T) {
	prog := mustParse(t, "xs = [1, 2, 3]\ny = xs[0]\n")
	require.Len(t, prog.Statements, 2)
	_, ok := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.ListLiteral)
	require.True(t, ok)
	_, ok = prog.Statements[1].(*ast.AssignStatement).Value.(*ast.IndexExpression)
	require.True(t, ok)
}

func TestParseCallBuiltins(t *testing.T) {
	prog := mustParse(t, "x = len(\"hi\")\ny = input()\n")
	call1 := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.CallExpression)
	require.Equal(t, "len", call1.Function)
	call2 := prog.Statements[1].(*ast.AssignStatement).Value.(*ast.CallExpression)
	require.Equal(t, "input", call2.Function)
}

func TestParseBareReturn(t *testing.T) {
	prog := mustParse(t, "def f():\n  return\n")
	fd := prog.Statements[0].(*ast.FunctionDef)
	ret := fd.Body[0].(*ast.ReturnStatement)
	require.Nil(t, ret.Value)
}

func TestParseErrorUnexpectedToken(t *testing.T) {
	l := lexer.New("x = )\n")
	p := New(l)
	p.Parse()
	require.NotEmpty(t, p.Errors())
}
