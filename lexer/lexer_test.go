package lexer

import (
	"testing"

	"github.com/emberlang/emberc/token"
	"github.com/stretchr/testify/require"
)

type expectedToken struct {
	typ     token.Type
	literal string
}

func collect(t *testing.T, input string) []expectedToken {
	t.Helper()
	l := New(input)
	var out []expectedToken
	for {
		tok := l.NextToken()
		out = append(out, expectedToken{tok.Type, tok.Literal})
		if tok.Type == token.EOF {
			return out
		}
	}
}

func TestNextTokenBasics(t *testing.T) {
	input := `x = 5
y = 3.14
print(x, y)
`
	want := []expectedToken{
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.NEWLINE, ""},
		{token.IDENT, "y"},
		{token.ASSIGN, "="},
		{token.FLOAT, "3.14"},
		{token.NEWLINE, ""},
		{token.PRINT, "print"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	}
	got := collect(t, input)
	require.Len(t, got, len(want))
	for i, w := range want {
		require.Equalf(t, w.typ, got[i].typ, "token %d: type", i)
	}
}

func TestIndentationEmitsIndentDeindent(t *testing.T) {
	input := "if True:\n  x = 1\ny = 2\n"
	got := collect(t, input)

	var types []token.Type
	for _, tok := range got {
		types = append(types, tok.typ)
	}
	require.Contains(t, types, token.INDENT)
	require.Contains(t, types, token.DEINDENT)
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\t\"c\""` + "\n")
	tok := l.NextToken()
	require.Equal(t, token.STRING, tok.Type)
	require.Equal(t, "a\nb\t\"c\"", tok.Literal)
}

func TestAugmentedAssignOperators(t *testing.T) {
	input := "x += 1\nx //= 2\nx <<= 3\n"
	got := collect(t, input)
	var types []token.Type
	for _, tok := range got {
		types = append(types, tok.typ)
	}
	require.Contains(t, types, token.ADD_ASSIGN)
	require.Contains(t, types, token.IDIV_ASSIGN)
	require.Contains(t, types, token.SHL_ASSIGN)
}

func TestCommentsAndBlankLinesDoNotAffectIndentStack(t *testing.T) {
	input := "x = 1\n# a comment\n\ny = 2\n"
	got := collect(t, input)
	var types []token.Type
	for _, tok := range got {
		types = append(types, tok.typ)
	}
	require.NotContains(t, types, token.INDENT)
	require.NotContains(t, types, token.DEINDENT)
}
