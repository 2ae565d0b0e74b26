// Package analysis implements static passes over compiled formulas.
//
// Hosts consult these once per compiled expression (not per evaluation) to
// pick a stamping strategy: a constant formula can be folded and stamped
// once, a bare reference collapses to a rename with no solver row at all,
// and a linear combination stamps as a cheap linear controlled source
// instead of requiring full non-linear iteration.
package analysis

import (
	"math"

	"github.com/sfcsim/formula/pkg/evaluator"
	"github.com/sfcsim/formula/pkg/types"
)

// IsConstant reports whether the expression contains only literals combined
// with pure operators, so it never needs re-evaluation once folded. Named
// references, time, the timestep, registers and the stateful time-domain
// operators all disqualify it.
func IsConstant(expr *types.Expression) bool {
	if expr == nil || expr.Root() == nil {
		return false
	}
	return isConstantNode(expr.Root())
}

func isConstantNode(n types.Node) bool {
	switch n := n.(type) {
	case types.Literal:
		return true
	case types.Unary:
		return isConstantNode(n.X)
	case types.Binary:
		return isConstantNode(n.L) && isConstantNode(n.R)
	case types.Call:
		for _, a := range n.Args {
			if !isConstantNode(a) {
				return false
			}
		}
		return true
	case types.Cond:
		return isConstantNode(n.If) && isConstantNode(n.Then) && isConstantNode(n.Else)
	default:
		// Ref, Time, TimeStep, LastOutput, registers, integrate, diff,
		// last, lag.
		return false
	}
}

// Alias reports whether the expression is a bare named reference, returning
// the referenced name. Such a formula is a pure rename of another quantity.
func Alias(expr *types.Expression) (string, bool) {
	if expr == nil {
		return "", false
	}
	if ref, ok := expr.Root().(types.Ref); ok {
		return ref.Name, true
	}
	return "", false
}

// LinearTerms attempts to express the formula as a weighted sum of named
// references plus a constant. On success it returns the coefficient per
// name and the constant term. It fails (ok=false) for anything non-linear:
// products or quotients of two references, transcendental functions of a
// reference, and all time-dependent or stateful operators.
func LinearTerms(expr *types.Expression) (terms map[string]float64, constant float64, ok bool) {
	if expr == nil || expr.Root() == nil {
		return nil, 0, false
	}

	lz := &linearizer{terms: make(map[string]float64)}
	if !lz.walk(expr.Root(), 1) {
		return nil, 0, false
	}
	return lz.terms, lz.constant, true
}

type linearizer struct {
	terms    map[string]float64
	constant float64
}

// walk accumulates the subtree scaled by mult into the running terms.
func (lz *linearizer) walk(n types.Node, mult float64) bool {
	switch n := n.(type) {
	case types.Literal:
		lz.constant += mult * n.Value
		return true

	case types.Ref:
		lz.terms[n.Name] += mult
		return true

	case types.Unary:
		if n.Op == types.OpNeg {
			return lz.walk(n.X, -mult)
		}

	case types.Binary:
		switch n.Op {
		case types.OpAdd:
			return lz.walk(n.L, mult) && lz.walk(n.R, mult)
		case types.OpSub:
			return lz.walk(n.L, mult) && lz.walk(n.R, -mult)
		case types.OpMul:
			// One side must fold to a scalar multiplier.
			if isConstantNode(n.L) {
				return lz.walk(n.R, mult*fold(n.L))
			}
			if isConstantNode(n.R) {
				return lz.walk(n.L, mult*fold(n.R))
			}
			return false
		case types.OpDiv:
			if !isConstantNode(n.R) {
				return false
			}
			c := fold(n.R)
			if math.Abs(c) < 1e-12 {
				return false
			}
			return lz.walk(n.L, mult/c)
		}
	}

	// Whatever else it is, it is linear only if it folds to a constant.
	if isConstantNode(n) {
		lz.constant += mult * fold(n)
		return true
	}
	return false
}

// fold evaluates a constant subtree. The node has already passed
// isConstantNode, so a resolver-less evaluator and a throwaway state
// suffice.
func fold(n types.Node) float64 {
	ev := evaluator.New()
	return ev.Eval(types.NewExpression(n, "", 0), evaluator.NewState(0))
}
