package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sfcsim/formula/pkg/types"
)

// Parser builds a syntax tree from a token stream. The first error
// encountered is retained; the parser keeps consuming tokens to produce a
// best-effort tree, but Parse returns the error and no expression.
type Parser struct {
	lexer    *Lexer
	source   string
	current  Token
	err      *types.Error
	lagSlots int
	opts     CompileOptions
}

// NewParser creates a new parser for the given formula text.
func NewParser(text string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxLagBuffers: DefaultMaxLagBuffers,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer:  NewLexer(text),
		source: text,
		opts:   options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire formula and returns the compiled expression.
// An empty formula compiles to the constant 0.
func (p *Parser) Parse() (*types.Expression, error) {
	if p.current.Type == TokenEOF {
		return types.NewExpression(types.Literal{Value: 0}, p.source, 0), nil
	}

	root := p.parseTernary()

	if p.current.Type != TokenEOF {
		p.setError(types.ErrUnexpectedToken, fmt.Sprintf("unexpected token: %s", p.current.Value))
	}

	if p.err != nil {
		return nil, p.err
	}

	return types.NewExpression(root, p.source, p.lagSlots), nil
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.current = p.lexer.Next()
}

// skip consumes the current token if it matches the given type.
func (p *Parser) skip(tt TokenType) bool {
	if p.current.Type != tt {
		return false
	}
	p.advance()
	return true
}

// expect consumes the current token if it matches, and records an error
// otherwise. Either way parsing continues.
func (p *Parser) expect(tt TokenType) {
	if !p.skip(tt) {
		p.setError(types.ErrUnexpectedToken,
			fmt.Sprintf("expected %s, got %s", tt.String(), p.tokenDesc()))
	}
}

// setError records the first error encountered during the parse.
func (p *Parser) setError(code types.ErrorCode, message string) {
	if p.err == nil {
		p.err = types.NewError(code, message, p.current.Position).WithToken(p.current.Value)
	}
}

func (p *Parser) tokenDesc() string {
	if p.current.Type == TokenEOF {
		return "end of input"
	}
	return p.current.Value
}

// Precedence ladder, lowest level first.

// parseTernary parses cond ? a : b. The false branch re-enters this level,
// making the operator right-associative.
func (p *Parser) parseTernary() types.Node {
	e := p.parseOr()
	if p.skip(TokenQuestion) {
		then := p.parseOr()
		p.expect(TokenColon)
		els := p.parseTernary()
		return types.Cond{If: e, Then: then, Else: els}
	}
	return e
}

func (p *Parser) parseOr() types.Node {
	e := p.parseAnd()
	for p.skip(TokenOr) {
		e = types.Binary{Op: types.OpOr, L: e, R: p.parseAnd()}
	}
	return e
}

func (p *Parser) parseAnd() types.Node {
	e := p.parseEquality()
	for p.skip(TokenAnd) {
		e = types.Binary{Op: types.OpAnd, L: e, R: p.parseEquality()}
	}
	return e
}

func (p *Parser) parseEquality() types.Node {
	e := p.parseRelational()
	if p.skip(TokenEqual) {
		return types.Binary{Op: types.OpEq, L: e, R: p.parseRelational()}
	}
	return e
}

// parseRelational parses at most one comparison; relational operators do
// not chain.
func (p *Parser) parseRelational() types.Node {
	e := p.parseAdditive()
	switch {
	case p.skip(TokenLessEqual):
		return types.Binary{Op: types.OpLe, L: e, R: p.parseAdditive()}
	case p.skip(TokenGreaterEqual):
		return types.Binary{Op: types.OpGe, L: e, R: p.parseAdditive()}
	case p.skip(TokenNotEqual):
		return types.Binary{Op: types.OpNe, L: e, R: p.parseAdditive()}
	case p.skip(TokenLess):
		return types.Binary{Op: types.OpLt, L: e, R: p.parseAdditive()}
	case p.skip(TokenGreater):
		return types.Binary{Op: types.OpGt, L: e, R: p.parseAdditive()}
	}
	return e
}

func (p *Parser) parseAdditive() types.Node {
	e := p.parseMultiplicative()
	for {
		switch {
		case p.skip(TokenPlus):
			e = types.Binary{Op: types.OpAdd, L: e, R: p.parseMultiplicative()}
		case p.skip(TokenMinus):
			e = types.Binary{Op: types.OpSub, L: e, R: p.parseMultiplicative()}
		default:
			return e
		}
	}
}

func (p *Parser) parseMultiplicative() types.Node {
	e := p.parseUnary()
	for {
		switch {
		case p.skip(TokenMult):
			e = types.Binary{Op: types.OpMul, L: e, R: p.parseUnary()}
		case p.skip(TokenDiv):
			e = types.Binary{Op: types.OpDiv, L: e, R: p.parseUnary()}
		default:
			return e
		}
	}
}

func (p *Parser) parseUnary() types.Node {
	p.skip(TokenPlus) // unary plus is a no-op
	if p.skip(TokenNot) {
		return types.Unary{Op: types.OpNot, X: p.parseUnary()}
	}
	if p.skip(TokenMinus) {
		return types.Unary{Op: types.OpNeg, X: p.parseUnary()}
	}
	return p.parsePower()
}

// parsePower parses x ^ y ^ z as (x ^ y) ^ z. Power is deliberately
// left-associative: saved formulas depend on this, so it must not be
// "fixed" to the mathematical convention.
func (p *Parser) parsePower() types.Node {
	e := p.parsePrimary()
	for p.skip(TokenPow) {
		e = types.Binary{Op: types.OpPow, L: e, R: p.parsePrimary()}
	}
	return e
}

func (p *Parser) parsePrimary() types.Node {
	if p.skip(TokenParenOpen) {
		e := p.parseTernary()
		p.expect(TokenParenClose)
		return e
	}

	switch p.current.Type {
	case TokenIdent:
		return p.parseIdent()
	case TokenNumber:
		return p.parseNumber()
	case TokenEOF:
		p.setError(types.ErrUnexpectedEnd, "unexpected end of input")
		return types.Literal{Value: 0}
	default:
		p.setError(types.ErrBadToken, fmt.Sprintf("unrecognized token: %s", p.current.Value))
		return types.Literal{Value: 0}
	}
}

func (p *Parser) parseNumber() types.Node {
	v, err := strconv.ParseFloat(p.current.Value, 64)
	if err != nil {
		p.setError(types.ErrBadToken, fmt.Sprintf("unrecognized token: %s", p.current.Value))
		v = 0
	}
	p.advance()
	return types.Literal{Value: v}
}

// parseIdent disambiguates an identifier: reserved word, register,
// built-in function, or named external reference.
func (p *Parser) parseIdent() types.Node {
	name := p.current.Value
	lower := strings.ToLower(name)

	// Reserved words, case-insensitive.
	switch lower {
	case "t":
		p.advance()
		return types.Time{}
	case "pi":
		p.advance()
		return types.Literal{Value: math.Pi}
	case "lastoutput":
		p.advance()
		return types.LastOutput{}
	case "timestep":
		p.advance()
		return types.TimeStep{}
	}

	// Register spellings. The underscore prefix keeps single-letter
	// variable names (C, I, H...) available as ordinary references.
	if n, ok := registerNode(lower); ok {
		p.advance()
		return n
	}

	// Stateful time-domain operators.
	switch lower {
	case "integrate":
		p.advance()
		return types.Integrate{X: p.parseParenArg()}
	case "diff":
		p.advance()
		return types.Diff{X: p.parseParenArg()}
	case "last":
		p.advance()
		return types.Last{X: p.parseParenArg()}
	case "lag":
		p.advance()
		return p.parseLag()
	}

	// Pure built-in functions.
	if b, ok := builtins[lower]; ok {
		p.advance()
		return p.parseCall(lower, b)
	}

	// Anything else is a named reference resolved by the host.
	p.advance()
	return types.Ref{Name: name}
}

// registerNode maps the register spellings to their nodes:
// _a.._i, _lasta.._lasti, _dadt.._didt, and the bare dadt.._didt forms.
func registerNode(lower string) (types.Node, bool) {
	reg := func(c byte) (int, bool) {
		if c >= 'a' && c <= 'i' {
			return int(c - 'a'), true
		}
		return 0, false
	}

	switch {
	case len(lower) == 2 && lower[0] == '_':
		if i, ok := reg(lower[1]); ok {
			return types.Register{Index: i}, true
		}
	case len(lower) == 6 && strings.HasPrefix(lower, "_last"):
		if i, ok := reg(lower[5]); ok {
			return types.RegisterLast{Index: i}, true
		}
	case len(lower) == 5 && lower[0] == '_' && lower[1] == 'd' && strings.HasSuffix(lower, "dt"):
		if i, ok := reg(lower[2]); ok {
			return types.RegisterRate{Index: i}, true
		}
	case len(lower) == 4 && lower[0] == 'd' && strings.HasSuffix(lower, "dt"):
		if i, ok := reg(lower[1]); ok {
			return types.RegisterRate{Index: i}, true
		}
	}
	return nil, false
}

// builtin describes a pure function's dispatch code and arity bounds.
type builtin struct {
	fn       types.Func
	binOp    types.Op // set for the two-argument functions that lower to a binary node
	min, max int
}

var builtins = map[string]builtin{
	"sin":   {fn: types.FuncSin, min: 1, max: 1},
	"cos":   {fn: types.FuncCos, min: 1, max: 1},
	"tan":   {fn: types.FuncTan, min: 1, max: 1},
	"asin":  {fn: types.FuncAsin, min: 1, max: 1},
	"acos":  {fn: types.FuncAcos, min: 1, max: 1},
	"atan":  {fn: types.FuncAtan, min: 1, max: 1},
	"sinh":  {fn: types.FuncSinh, min: 1, max: 1},
	"cosh":  {fn: types.FuncCosh, min: 1, max: 1},
	"tanh":  {fn: types.FuncTanh, min: 1, max: 1},
	"abs":   {fn: types.FuncAbs, min: 1, max: 1},
	"exp":   {fn: types.FuncExp, min: 1, max: 1},
	"log":   {fn: types.FuncLog, min: 1, max: 1},
	"sqrt":  {fn: types.FuncSqrt, min: 1, max: 1},
	"floor": {fn: types.FuncFloor, min: 1, max: 1},
	"ceil":  {fn: types.FuncCeil, min: 1, max: 1},
	"tri":   {fn: types.FuncTri, min: 1, max: 1},
	"saw":   {fn: types.FuncSaw, min: 1, max: 1},

	"min": {fn: types.FuncMin, min: 2, max: 1000},
	"max": {fn: types.FuncMax, min: 2, max: 1000},

	// pwl needs the input plus at least one complete (x, y) breakpoint;
	// a lone x0 with no y0 would have nothing to evaluate to.
	"pwl": {fn: types.FuncPwl, min: 3, max: 1000},

	"mod":  {binOp: types.OpMod, min: 2, max: 2},
	"pwr":  {binOp: types.OpPwr, min: 2, max: 2},
	"pwrs": {binOp: types.OpPwrs, min: 2, max: 2},

	"step":   {fn: types.FuncStep, min: 1, max: 2},
	"select": {fn: types.FuncSelect, min: 3, max: 3},
	"clamp":  {fn: types.FuncClamp, min: 3, max: 3},
}

// parseParenArg parses a single parenthesized argument.
func (p *Parser) parseParenArg() types.Node {
	p.expect(TokenParenOpen)
	e := p.parseTernary()
	p.expect(TokenParenClose)
	return e
}

// parseCall parses a built-in function's argument list and checks arity.
func (p *Parser) parseCall(name string, b builtin) types.Node {
	p.expect(TokenParenOpen)
	args := []types.Node{p.parseTernary()}
	for p.skip(TokenComma) {
		args = append(args, p.parseTernary())
	}
	p.expect(TokenParenClose)

	if len(args) < b.min || len(args) > b.max {
		p.setError(types.ErrArity,
			fmt.Sprintf("bad number of arguments for %s: %d", name, len(args)))
	}

	if b.binOp != types.OpInvalid {
		r := types.Node(types.Literal{Value: 0})
		if len(args) > 1 {
			r = args[1]
		}
		return types.Binary{Op: b.binOp, L: args[0], R: r}
	}

	return types.Call{Fn: b.fn, Args: args}
}

// parseLag parses lag(value, delay) and assigns the call its buffer slot
// from the parser-local counter. Exceeding the configured capacity is a
// compile error.
func (p *Parser) parseLag() types.Node {
	p.expect(TokenParenOpen)
	x := p.parseTernary()
	p.expect(TokenComma)
	d := p.parseTernary()
	p.expect(TokenParenClose)

	slot := p.lagSlots
	p.lagSlots++
	if slot >= p.opts.MaxLagBuffers {
		p.setError(types.ErrTooManyLags,
			fmt.Sprintf("too many lag() calls in expression (max %d)", p.opts.MaxLagBuffers))
		slot = p.opts.MaxLagBuffers - 1
	}

	return types.Lag{X: x, Delay: d, Slot: slot}
}
