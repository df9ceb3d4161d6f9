package compiler

import (
	"strings"
	"testing"

	"github.com/emberlang/emberc/lexer"
	"github.com/emberlang/emberc/lower"
	"github.com/emberlang/emberc/parser"
	"github.com/stretchr/testify/require"
)

// compileSource runs the full front end (lexer -> parser -> lower)
// then hands the resulting IR to a fresh *Compiler, failing the test
// on any parse/lowering/codegen error, matching the teacher's
// compileScriptAndCodeIR helper in compiler_test.go.
func compileSource(t *testing.T, src string) *Compiler {
	t.Helper()

	l := lexer.New(src)
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors for: %s", src)

	lo := lower.New()
	irProg := lo.Program(prog)
	require.Empty(t, lo.Errors, "unexpected lowering errors for: %s", src)

	c := NewCompiler("test")
	c.CompileProgram(irProg)
	require.Empty(t, c.Errors, "unexpected codegen errors for: %s", src)
	return c
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	c := compileSource(t, "print(1 + 2 * 3)\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "ember_print_value")
	require.Contains(t, ir, "define i32 @main")
}

func TestCompileStringConcatenation(t *testing.T) {
	c := compileSource(t, "s1 = \"Hello\"\ns2 = \" World\"\nprint(s1 + s2)\nprint(len(s1 + s2))\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "@malloc")
	require.Contains(t, ir, "@memcpy")
	require.Contains(t, ir, "@strlen")
	require.Contains(t, ir, "@free")
}

func TestCompileListLiteralIndexAndLen(t *testing.T) {
	c := compileSource(t, "xs = [10, 20, 30]\nprint(xs)\nprint(xs[1])\nprint(len(xs))\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "list_count_slot")
	require.Contains(t, ir, "list_elem_slot")
}

func TestCompileRecursiveFunction(t *testing.T) {
	src := "def f(n):\n  if n <= 1: return n\n  return f(n-1) + f(n-2)\nprint(f(10))\n"
	c := compileSource(t, src)
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "define i64 @f(i64")
	require.Contains(t, ir, "call i64 @f")
}

func TestCompileMutualRecursionEitherDeclarationOrder(t *testing.T) {
	forward := "def isEven(n):\n  if n == 0: return True\n  return isOdd(n-1)\ndef isOdd(n):\n  if n == 0: return False\n  return isEven(n-1)\nprint(isEven(10))\n"
	backward := "def isOdd(n):\n  if n == 0: return False\n  return isEven(n-1)\ndef isEven(n):\n  if n == 0: return True\n  return isOdd(n-1)\nprint(isOdd(9))\n"

	for _, src := range []string{forward, backward} {
		c := compileSource(t, src)
		ir := c.IR()
		require.Contains(t, ir, "define i64 @isEven(i64")
		require.Contains(t, ir, "define i64 @isOdd(i64")
		c.Dispose()
	}
}

func TestCompileForRangeBreakContinue(t *testing.T) {
	src := "for i in range(5):\n  if i == 3: break\n  if i == 1: continue\n  print(i)\n"
	c := compileSource(t, src)
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "for_cond")
	require.Contains(t, ir, "for_body")
	require.Contains(t, ir, "for_step")
	require.Contains(t, ir, "for_exit")
}

func TestCompileIfElifElse(t *testing.T) {
	src := "x = 2\nif x == 1:\n  print(1)\nelif x == 2:\n  print(2)\nelse:\n  print(3)\n"
	c := compileSource(t, src)
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "if_then")
	require.Contains(t, ir, "if_else")
}

func TestCompileDefaultArgumentFilledFromCallerScope(t *testing.T) {
	src := "def greet(times=2):\n  return times\nprint(greet())\nprint(greet(5))\n"
	c := compileSource(t, src)
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "define i64 @greet(i64")
}

func TestCompileDivisionAlwaysProducesFloatLane(t *testing.T) {
	// Operands come from variables so the LLVM builder cannot fold the
	// division away into a constant.
	c := compileSource(t, "a = 4\nb = 2\nprint(a / b)\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "fdiv")
}

func TestCompileBitwiseStaysInIntegerLane(t *testing.T) {
	c := compileSource(t, "a = 6\nb = 3\nx = a & b\nprint(x)\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "band")
	require.NotContains(t, ir, "fneg")
}

// Floor division must round toward negative infinity, not toward zero
// (-7 // 2 is -4, not -3), so the IR needs the sign-disagreement
// adjustment on top of a plain truncating sdiv. The operands are
// variables so the builder cannot fold the whole expression to a constant.
func TestCompileFloorDivisionAdjustsTowardNegativeInfinity(t *testing.T) {
	c := compileSource(t, "a = -7\nb = 2\nprint(a // b)\n")
	defer c.Dispose()
	ir := c.IR()
	require.True(t, strContainsAll(ir, "idiv", "irem", "needs_floor", "floordiv"))
}

func TestCompileUndefinedVariableIsCodegenError(t *testing.T) {
	l := lexer.New("print(nope)\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())

	lo := lower.New()
	irProg := lo.Program(prog)
	require.Empty(t, lo.Errors)

	c := NewCompiler("test")
	defer c.Dispose()
	c.CompileProgram(irProg)
	require.NotEmpty(t, c.Errors)
	require.Contains(t, c.Errors[0].Msg, "undefined variable")
}

func TestCompileUndefinedFunctionIsCodegenError(t *testing.T) {
	l := lexer.New("print(mystery(1))\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())

	lo := lower.New()
	irProg := lo.Program(prog)
	require.Empty(t, lo.Errors)

	c := NewCompiler("test")
	defer c.Dispose()
	c.CompileProgram(irProg)
	require.NotEmpty(t, c.Errors)
	require.Contains(t, c.Errors[0].Msg, "undefined function")
}

func TestCompileBreakOutsideLoopIsCodegenError(t *testing.T) {
	l := lexer.New("break\n")
	p := parser.New(l)
	prog := p.Parse()
	require.Empty(t, p.Errors())

	lo := lower.New()
	irProg := lo.Program(prog)
	require.Empty(t, lo.Errors)

	c := NewCompiler("test")
	defer c.Dispose()
	c.CompileProgram(irProg)
	require.NotEmpty(t, c.Errors)
	require.Contains(t, c.Errors[0].Msg, "break outside a loop")
}

func TestCompileEmptyMainReturnsZero(t *testing.T) {
	c := compileSource(t, "x = 1\n")
	defer c.Dispose()
	ir := c.IR()
	require.Contains(t, ir, "ret i32 0")
}

func TestCompileTopLevelStringIsFreedAtMainReturn(t *testing.T) {
	c := compileSource(t, "s = \"hi\"\nprint(s)\n")
	defer c.Dispose()
	ir := c.IR()
	// The free must appear in the entry block, after the print call,
	// right before main's terminal return (spec §4.5 arena discipline).
	idxFree := strings.LastIndex(ir, "call void @free")
	idxRet := strings.LastIndex(ir, "ret i32 0")
	require.Greater(t, idxRet, idxFree, "free must precede main's terminal return")
}

func strContainsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func TestCompileModuleDeclaresRuntimeSurface(t *testing.T) {
	c := compileSource(t, "print(1)\n")
	defer c.Dispose()
	ir := c.IR()
	require.True(t, strContainsAll(ir, "ember_print_value", "ember_print_space", "ember_print_newline", "ember_input_f64"))
}
