package parser_test

import (
	"testing"

	"github.com/sfcsim/formula/pkg/parser"
)

// Helper functions

func lexAll(t *testing.T, input string) []parser.Token {
	t.Helper()
	l := parser.NewLexer(input)
	var tokens []parser.Token
	for {
		tok := l.Next()
		if tok.Type == parser.TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
		if len(tokens) > 1000 {
			t.Fatalf("lexer did not terminate on %q", input)
		}
	}
}

func checkTokens(t *testing.T, input string, want []parser.Token) {
	t.Helper()
	got := lexAll(t, input)
	if len(got) != len(want) {
		t.Fatalf("lex %q: got %d tokens %v, want %d", input, len(got), got, len(want))
	}
	for i := range want {
		if got[i].Type != want[i].Type {
			t.Errorf("lex %q: token %d type %s, want %s", input, i, got[i].Type, want[i].Type)
		}
		if got[i].Value != want[i].Value {
			t.Errorf("lex %q: token %d value %q, want %q", input, i, got[i].Value, want[i].Value)
		}
	}
}

func tok(tt parser.TokenType, v string) parser.Token {
	return parser.Token{Type: tt, Value: v}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
	}{
		{"integer", "42", "42"},
		{"decimal", "3.14", "3.14"},
		{"leading dot", ".5", ".5"},
		{"exponent", "1e10", "1e10"},
		{"negative exponent", "2.5e-3", "2.5e-3"},
		{"positive exponent", "1E+6", "1E+6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, tt.input, []parser.Token{tok(parser.TokenNumber, tt.value)})
		})
	}
}

func TestLexIdentifiers(t *testing.T) {
	// Decorated names lex as single identifiers, so subscripted and
	// superscripted variables round-trip.
	tests := []struct {
		name  string
		input string
		value string
	}{
		{"simple", "volume", "volume"},
		{"underscore", "Z_1", "Z_1"},
		{"greek", `\beta`, `\beta`},
		{"subscript braces", "Z_{banks}", "Z_{banks}"},
		{"superscript", "x^2", "x^2"},
		{"leading underscore", "_a", "_a"},
		{"digits", "k2", "k2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, tt.input, []parser.Token{tok(parser.TokenIdent, tt.value)})
		})
	}
}

func TestLexOperators(t *testing.T) {
	checkTokens(t, "1+2*3/4^5", []parser.Token{
		tok(parser.TokenNumber, "1"),
		tok(parser.TokenPlus, "+"),
		tok(parser.TokenNumber, "2"),
		tok(parser.TokenMult, "*"),
		tok(parser.TokenNumber, "3"),
		tok(parser.TokenDiv, "/"),
		tok(parser.TokenNumber, "4"),
		tok(parser.TokenPow, "^"),
		tok(parser.TokenNumber, "5"),
	})
}

func TestLexMultiCharOperators(t *testing.T) {
	// Two-character operators are matched greedily.
	tests := []struct {
		input string
		tt    parser.TokenType
	}{
		{"||", parser.TokenOr},
		{"&&", parser.TokenAnd},
		{"==", parser.TokenEqual},
		{"!=", parser.TokenNotEqual},
		{"<=", parser.TokenLessEqual},
		{">=", parser.TokenGreaterEqual},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			checkTokens(t, "1"+tt.input+"2", []parser.Token{
				tok(parser.TokenNumber, "1"),
				tok(tt.tt, tt.input),
				tok(parser.TokenNumber, "2"),
			})
		})
	}
}

func TestLexComparisonVsShift(t *testing.T) {
	checkTokens(t, "a<b >c", []parser.Token{
		tok(parser.TokenIdent, "a"),
		tok(parser.TokenLess, "<"),
		tok(parser.TokenIdent, "b"),
		tok(parser.TokenGreater, ">"),
		tok(parser.TokenIdent, "c"),
	})
}

func TestLexSkipsSpaces(t *testing.T) {
	checkTokens(t, "  1 \t+\n 2  ", []parser.Token{
		tok(parser.TokenNumber, "1"),
		tok(parser.TokenPlus, "+"),
		tok(parser.TokenNumber, "2"),
	})
}

func TestLexIllegal(t *testing.T) {
	// Characters the language has no use for become their own token;
	// the lexer itself never fails.
	got := lexAll(t, "1 @ 2")
	if len(got) != 3 {
		t.Fatalf("got %d tokens, want 3", len(got))
	}
	if got[1].Type != parser.TokenIllegal || got[1].Value != "@" {
		t.Errorf("got %v, want illegal token %q", got[1], "@")
	}
}

func TestLexPositions(t *testing.T) {
	got := lexAll(t, "ab + cd")
	wantPos := []int{0, 3, 5}
	for i, p := range wantPos {
		if got[i].Position != p {
			t.Errorf("token %d position %d, want %d", i, got[i].Position, p)
		}
	}
}
