package lower

import (
	"testing"

	"github.com/emberlang/emberc/ir"
	"github.com/emberlang/emberc/lexer"
	"github.com/emberlang/emberc/parser"
	"github.com/stretchr/testify/require"
)

func mustLower(t *testing.T, input string) *ir.Program {
	t.Helper()
	l := lexer.New(input)
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors for input: %s", input)
	lo := New()
	out := lo.Program(prog)
	require.Empty(t, lo.Errors, "unexpected lowering errors for input: %s", input)
	return out
}

func TestLowerElifChainsToNestedIf(t *testing.T) {
	prog := mustLower(t, "if a:\n  x = 1\nelif b:\n  x = 2\nelse:\n  x = 3\n")
	require.Len(t, prog.Main, 1)
	top, ok := prog.Main[0].(*ir.If)
	require.True(t, ok)
	require.Len(t, top.Else, 1)
	nested, ok := top.Else[0].(*ir.If)
	require.True(t, ok, "expected elif to lower to a nested If, got %T", top.Else[0])
	require.Len(t, nested.Else, 1)
	_, ok = nested.Else[0].(*ir.Assign)
	require.True(t, ok, "expected final else body to survive as an Assign")
}

func TestLowerAugAssignExpandsToAssignOfBinOp(t *testing.T) {
	prog := mustLower(t, "x += 5\n")
	require.Len(t, prog.Main, 1)
	assign, ok := prog.Main[0].(*ir.Assign)
	require.True(t, ok)
	require.Equal(t, "x", assign.Name)
	bin, ok := assign.Value.(*ir.BinOp)
	require.True(t, ok, "expected augmented assign to lower to Assign(BinOp), got %T", assign.Value)
	require.Equal(t, "+", bin.Op)
	v, ok := bin.L.(*ir.Var)
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
}

func TestLowerForRangeOneArgDefaultsStartAndStep(t *testing.T) {
	prog := mustLower(t, "for i in range(10):\n  print(i)\n")
	f, ok := prog.Main[0].(*ir.For)
	require.True(t, ok)
	start, ok := f.Start.(*ir.Const)
	require.True(t, ok)
	require.Equal(t, int64(0), start.Value)
	step, ok := f.Step.(*ir.Const)
	require.True(t, ok)
	require.Equal(t, int64(1), step.Value)
	stop, ok := f.Stop.(*ir.Const)
	require.True(t, ok)
	require.Equal(t, int64(10), stop.Value)
}

func TestLowerForRangeTwoArgsDefaultsStep(t *testing.T) {
	prog := mustLower(t, "for i in range(2, 10):\n  print(i)\n")
	f := prog.Main[0].(*ir.For)
	start := f.Start.(*ir.Const)
	require.Equal(t, int64(2), start.Value)
	step := f.Step.(*ir.Const)
	require.Equal(t, int64(1), step.Value)
}

func TestLowerForRangeThreeArgsKeepsLiteralStep(t *testing.T) {
	prog := mustLower(t, "for i in range(0, 10, 2):\n  print(i)\n")
	f := prog.Main[0].(*ir.For)
	step := f.Step.(*ir.Const)
	require.Equal(t, int64(2), step.Value)
}

func TestLowerForRangeNegativeLiteralStepRejected(t *testing.T) {
	l := lexer.New("for i in range(10, 0, -1):\n  print(i)\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())
	lo := New()
	lo.Program(prog)
	require.NotEmpty(t, lo.Errors)
}

func TestLowerForRangeNonLiteralNegativeStepAccepted(t *testing.T) {
	prog := mustLower(t, "step = 0 - 1\nfor i in range(10, 0, step):\n  print(i)\n")
	require.Len(t, prog.Main, 2)
	_, ok := prog.Main[1].(*ir.For)
	require.True(t, ok)
}

func TestLowerBitwiseOnFloatLiteralRejected(t *testing.T) {
	l := lexer.New("x = 1.5 & 2\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())
	lo := New()
	lo.Program(prog)
	require.NotEmpty(t, lo.Errors)
}

func TestLowerBitwiseOnIntLiteralsAccepted(t *testing.T) {
	prog := mustLower(t, "x = 1 & 2\n")
	assign := prog.Main[0].(*ir.Assign)
	_, ok := assign.Value.(*ir.BinOp)
	require.True(t, ok)
}

func TestLowerComparisonAndLogicalOperatorsUseDedicatedNodes(t *testing.T) {
	prog := mustLower(t, "x = a < b and c == d\n")
	assign := prog.Main[0].(*ir.Assign)
	logical, ok := assign.Value.(*ir.Logical)
	require.True(t, ok, "expected top-level 'and' to lower to Logical, got %T", assign.Value)
	require.Equal(t, "and", logical.Op)
	_, ok = logical.L.(*ir.Cmp)
	require.True(t, ok, "expected '<' to lower to Cmp")
	_, ok = logical.R.(*ir.Cmp)
	require.True(t, ok, "expected '==' to lower to Cmp")
}

func TestLowerLenCallArityChecked(t *testing.T) {
	l := lexer.New("x = len(1, 2)\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())
	lo := New()
	lo.Program(prog)
	require.NotEmpty(t, lo.Errors)
}

func TestLowerFunctionDefSplitsFromMain(t *testing.T) {
	prog := mustLower(t, "def add(a, b):\n  return a + b\nx = add(1, 2)\n")
	require.Len(t, prog.Functions, 1)
	require.Equal(t, "add", prog.Functions[0].Name)
	require.Len(t, prog.Main, 1)
}

func TestLowerFunctionDefaultParamLowered(t *testing.T) {
	prog := mustLower(t, "def f(a, b=3):\n  return a + b\n")
	fd := prog.Functions[0]
	require.Nil(t, fd.Params[0].Default)
	require.NotNil(t, fd.Params[1].Default)
	c, ok := fd.Params[1].Default.(*ir.Const)
	require.True(t, ok)
	require.Equal(t, int64(3), c.Value)
}

func TestLowerNestedFunctionDefRejected(t *testing.T) {
	l := lexer.New("def outer():\n  def inner():\n    return 1\n  return inner()\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())
	lo := New()
	lo.Program(prog)
	require.NotEmpty(t, lo.Errors)
}

func TestLowerBareReturnHasNilValue(t *testing.T) {
	prog := mustLower(t, "def f():\n  return\n")
	fd := prog.Functions[0]
	ret := fd.Body[0].(*ir.Return)
	require.Nil(t, ret.Value)
}
