// Package types defines the core types of the formula engine:
//   - Node: syntax tree nodes, one variant per operator category
//   - Expression: a compiled formula
//   - Error: structured compile-time errors
package types

// Expression is a compiled formula.
//
// An Expression is produced once by the parser and evaluated many times,
// typically once per solver sub-iteration. The tree itself is immutable;
// all per-instance mutable state (registers, integral accumulators, lag
// buffers) lives in the evaluator's State, so one Expression could in
// principle be shared by several states.
type Expression struct {
	root     Node
	source   string
	lagSlots int
}

// NewExpression creates an Expression from a parsed tree. lagSlots is the
// number of lag-buffer slots the parser assigned; a State evaluating this
// expression must be created with at least that many buffers.
func NewExpression(root Node, source string, lagSlots int) *Expression {
	return &Expression{
		root:     root,
		source:   source,
		lagSlots: lagSlots,
	}
}

// Root returns the root node of the syntax tree.
func (e *Expression) Root() Node {
	return e.root
}

// Source returns the formula text the expression was compiled from.
func (e *Expression) Source() string {
	return e.source
}

// LagSlots returns the number of lag buffers the expression uses.
func (e *Expression) LagSlots() int {
	return e.lagSlots
}

// String returns the original formula text.
func (e *Expression) String() string {
	return e.source
}
