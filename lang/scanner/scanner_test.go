package scanner_test

import (
	"testing"

	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []scanner.Tok {
	t.Helper()
	s := scanner.New([]byte(src))
	var toks []scanner.Tok
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){};,.-+*/! != = == > >= < <=")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMI,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.STAR, token.SLASH,
		token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ, token.GT, token.GT_EQ,
		token.LT, token.LT_EQ, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d", i)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "and class else false for fun if nil or print return super this true var while x classy")
	want := []token.Token{
		token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
		token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
		token.THIS, token.TRUE, token.VAR, token.WHILE, token.IDENT, token.IDENT,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d", i)
	}
	require.Equal(t, "x", string(toks[16].Lexeme))
	require.Equal(t, "classy", string(toks[17].Lexeme))
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "123 1.5 2.")
	require.Equal(t, token.NUMBER, toks[0].Type)
	require.Equal(t, "123", string(toks[0].Lexeme))
	require.Equal(t, token.NUMBER, toks[1].Type)
	require.Equal(t, "1.5", string(toks[1].Lexeme))
	// trailing dot is not consumed: "2" then "."
	require.Equal(t, token.NUMBER, toks[2].Type)
	require.Equal(t, "2", string(toks[2].Lexeme))
	require.Equal(t, token.DOT, toks[3].Type)
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(t, `"hello" "multi
line"`)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, `"hello"`, string(toks[0].Lexeme))
	require.Equal(t, token.STRING, toks[1].Type)
	require.Equal(t, 2, toks[1].Line)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Equal(t, token.ILLEGAL, toks[0].Type)
	require.Contains(t, string(toks[0].Lexeme), "unterminated")
}

func TestScanCommentsAndWhitespace(t *testing.T) {
	toks := scanAll(t, "// a comment\nvar x = 1; // trailing\nprint x;")
	require.Equal(t, token.VAR, toks[0].Type)
	require.Equal(t, 2, toks[0].Line)
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "var a = 1;\n\n\nprint a;")
	// last meaningful token before EOF should be on line 4
	require.Equal(t, token.PRINT, toks[5].Type)
	require.Equal(t, 4, toks[5].Line)
}
