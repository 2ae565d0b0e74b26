// Package parser compiles formula text into a syntax tree.
//
// The parser is a hand-written recursive descent parser with one function
// per precedence level, mirroring the language's grammar:
//
//	ternary        ?:        (right-associative)
//	or             ||
//	and            &&
//	equality       ==        (at most one)
//	relational     < > <= >= != (non-chaining: at most one)
//	additive       + -
//	multiplicative * /
//	unary          + - !
//	power          ^         (left-associative)
//	primary        literal, name, (expr), function call
//
// Built-in function names are matched case-insensitively; user variable
// names are case-sensitive. Identifiers that are not built-ins or reserved
// words compile to named references resolved by the host at evaluation
// time.
//
// Parsing is a pure function of the input text and the configured lag
// capacity: each lag() call is assigned a buffer slot from a parser-local
// counter, returned on the Expression, so the same textual call always maps
// to the same circular buffer across evaluations.
package parser

import "github.com/sfcsim/formula/pkg/types"

// DefaultMaxLagBuffers is the default number of lag() calls allowed in one
// formula. Each occupies a fixed-capacity history buffer in the
// evaluation state.
const DefaultMaxLagBuffers = 10

// Parse parses a formula and returns the compiled Expression.
//
// The first syntax error encountered is returned; later tokens are still
// consumed so the parser fails with the most useful message, but an
// expression that produced an error must not be evaluated.
func Parse(text string) (*types.Expression, error) {
	p := NewParser(text)
	return p.Parse()
}

// Compile is an alias for Parse, provided for API consistency.
func Compile(text string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(text, opts...)
	return p.Parse()
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxLagBuffers bounds the number of lag() calls per formula.
	MaxLagBuffers int
}

// WithMaxLagBuffers sets the lag-buffer capacity the parse is checked
// against. States evaluating the resulting expression must be built with
// at least Expression.LagSlots buffers.
func WithMaxLagBuffers(n int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxLagBuffers = n
	}
}
