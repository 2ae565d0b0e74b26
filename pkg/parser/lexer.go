package parser

import "unicode/utf8"

const eof = -1

// Lexer converts a formula string into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go"
// technique. The lexer itself never fails: characters the language has no
// use for become TokenIllegal and are rejected by the parser.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input, skipping spaces.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls.
func (l *Lexer) Next() Token {
	l.acceptAll(isSpace)
	l.ignore()

	ch := l.nextRune()
	if ch == eof {
		return l.eofToken()
	}

	// Two-character operators are matched greedily: ||, &&, ==, !=, <=, >=
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// Numbers may start with a digit or a bare decimal point (".5").
	if isDigit(ch) || ch == '.' {
		l.backup()
		return l.scanNumber()
	}

	// Identifiers start with a letter, underscore, or backslash (Greek
	// names such as \beta) and may carry LaTeX-style decorations, so
	// Z_{banks} and x^2 round-trip as single names.
	if isIdentStart(ch) {
		l.backup()
		return l.scanIdent()
	}

	return l.newToken(TokenIllegal)
}

// scanNumber reads a number literal from the current position.
// Format: digits with an optional decimal point and an optional exponent
// (e/E with optional sign). The text is validated by the parser via
// strconv, so a malformed number such as "2e" surfaces as a compile error
// rather than a lexer error.
func (l *Lexer) scanNumber() Token {
	l.acceptAll(func(r rune) bool { return isDigit(r) || r == '.' })

	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		l.acceptAll(isDigit)
	}

	return l.newToken(TokenNumber)
}

// scanIdent reads an identifier from the current position.
func (l *Lexer) scanIdent() Token {
	l.accept(isIdentStart)
	l.acceptAll(isIdentPart)
	return l.newToken(TokenIdent)
}

// Helper methods

func (l *Lexer) eofToken() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// Character classification functions

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentStart(r rune) bool {
	return isLetter(r) || r == '_' || r == '\\'
}

func isIdentPart(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_' || r == '\\' ||
		r == '^' || r == '{' || r == '}'
}
