package evaluator

import (
	"math"

	"github.com/sfcsim/formula/pkg/types"
)

// Eval evaluates a compiled expression against a state and returns the
// result. It never fails: degenerate conditions evaluate to 0.
//
// A re-entrancy guard makes nested evaluation return 0 immediately: if a
// resolver callback winds up evaluating an expression on the same
// Evaluator (a formula that, through the host registry, depends on
// itself), the inner evaluation short-circuits instead of recursing
// without bound.
func (e *Evaluator) Eval(expr *types.Expression, s *State) float64 {
	if expr == nil || expr.Root() == nil {
		return 0
	}
	if e.evaluating {
		return 0
	}
	e.evaluating = true
	defer func() { e.evaluating = false }()

	return e.eval(expr.Root(), s)
}

func (e *Evaluator) eval(n types.Node, s *State) float64 {
	switch n := n.(type) {
	case types.Literal:
		return n.Value

	case types.Ref:
		return e.resolveRef(n.Name)

	case types.Time:
		return s.T

	case types.TimeStep:
		return e.timeStep

	case types.LastOutput:
		return s.LastOutput

	case types.Register:
		return s.Values[n.Index]

	case types.RegisterLast:
		return s.LastValues[n.Index]

	case types.RegisterRate:
		return guardedDiv(s.Values[n.Index]-s.LastValues[n.Index], e.timeStep)

	case types.Unary:
		x := e.eval(n.X, s)
		if n.Op == types.OpNot {
			return b2f(x == 0)
		}
		return -x

	case types.Binary:
		return e.evalBinary(n, s)

	case types.Call:
		return e.evalCall(n, s)

	case types.Cond:
		if e.eval(n.If, s) != 0 {
			return e.eval(n.Then, s)
		}
		return e.eval(n.Else, s)

	case types.Integrate:
		// Record the pending input and return the value the integral
		// will have once this timestep commits, so the enclosing
		// fixed-point iteration converges toward a self-consistent
		// value. The accumulator itself advances only in Commit.
		x := e.eval(n.X, s)
		s.pendingIntInput = x
		return s.lastIntOutput + e.timeStep*x

	case types.Diff:
		// The subtrahend is the committed input from the previous
		// timestep, not the previous sub-iteration's, so the result
		// varies between sub-iterations only through x itself.
		x := e.eval(n.X, s)
		s.pendingDiffInput = x
		if !s.diffInitialized {
			return 0
		}
		return guardedDiv(x-s.lastDiffInput, e.timeStep)

	case types.Last:
		return e.evalLast(n, s)

	case types.Lag:
		return e.evalLag(n, s)
	}

	return 0
}

func (e *Evaluator) evalBinary(n types.Binary, s *State) float64 {
	// The logical operators short-circuit; everything else evaluates
	// both sides.
	switch n.Op {
	case types.OpAnd:
		if e.eval(n.L, s) == 0 {
			return 0
		}
		return b2f(e.eval(n.R, s) != 0)
	case types.OpOr:
		if e.eval(n.L, s) != 0 {
			return 1
		}
		return b2f(e.eval(n.R, s) != 0)
	}

	l := e.eval(n.L, s)
	r := e.eval(n.R, s)

	switch n.Op {
	case types.OpAdd:
		return l + r
	case types.OpSub:
		return l - r
	case types.OpMul:
		return l * r
	case types.OpDiv:
		return guardedDiv(l, r)
	case types.OpPow:
		return math.Pow(l, r)
	case types.OpMod:
		if math.Abs(r) < nearZero {
			return 0
		}
		return math.Mod(l, r)
	case types.OpPwr:
		return math.Pow(math.Abs(l), r)
	case types.OpPwrs:
		if l < 0 {
			return -math.Pow(-l, r)
		}
		return math.Pow(l, r)
	case types.OpEq:
		return b2f(l == r)
	case types.OpNe:
		return b2f(l != r)
	case types.OpLt:
		return b2f(l < r)
	case types.OpGt:
		return b2f(l > r)
	case types.OpLe:
		return b2f(l <= r)
	case types.OpGe:
		return b2f(l >= r)
	}
	return 0
}

func (e *Evaluator) evalCall(n types.Call, s *State) float64 {
	args := n.Args

	switch n.Fn {
	case types.FuncSin:
		return math.Sin(e.eval(args[0], s))
	case types.FuncCos:
		return math.Cos(e.eval(args[0], s))
	case types.FuncTan:
		return math.Tan(e.eval(args[0], s))
	case types.FuncAsin:
		return math.Asin(e.eval(args[0], s))
	case types.FuncAcos:
		return math.Acos(e.eval(args[0], s))
	case types.FuncAtan:
		return math.Atan(e.eval(args[0], s))
	case types.FuncSinh:
		return math.Sinh(e.eval(args[0], s))
	case types.FuncCosh:
		return math.Cosh(e.eval(args[0], s))
	case types.FuncTanh:
		return math.Tanh(e.eval(args[0], s))
	case types.FuncAbs:
		return math.Abs(e.eval(args[0], s))
	case types.FuncExp:
		return math.Exp(e.eval(args[0], s))
	case types.FuncLog:
		return math.Log(e.eval(args[0], s))
	case types.FuncSqrt:
		return math.Sqrt(e.eval(args[0], s))
	case types.FuncFloor:
		return math.Floor(e.eval(args[0], s))
	case types.FuncCeil:
		return math.Ceil(e.eval(args[0], s))

	case types.FuncTri:
		// Triangle wave, period 2*pi, range -1..1.
		x := posmod(e.eval(args[0], s), 2*math.Pi) / math.Pi
		if x < 1 {
			return -1 + x*2
		}
		return 3 - x*2

	case types.FuncSaw:
		// Sawtooth wave, period 2*pi, range -1..1.
		return posmod(e.eval(args[0], s), 2*math.Pi)/math.Pi - 1

	case types.FuncMin:
		x := e.eval(args[0], s)
		for _, a := range args[1:] {
			x = math.Min(x, e.eval(a, s))
		}
		return x

	case types.FuncMax:
		x := e.eval(args[0], s)
		for _, a := range args[1:] {
			x = math.Max(x, e.eval(a, s))
		}
		return x

	case types.FuncClamp:
		return math.Min(math.Max(e.eval(args[0], s), e.eval(args[1], s)), e.eval(args[2], s))

	case types.FuncStep:
		x := e.eval(args[0], s)
		if len(args) == 1 {
			return b2f(x >= 0)
		}
		if x > e.eval(args[1], s) || x < 0 {
			return 0
		}
		return 1

	case types.FuncSelect:
		if e.eval(args[0], s) <= 0 {
			return e.eval(args[2], s)
		}
		return e.eval(args[1], s)

	case types.FuncPwl:
		return e.evalPwl(args, s)
	}

	return 0
}

// evalPwl evaluates pwl(x, x0, y0, x1, y1, ...): y0 below the first
// breakpoint, linear interpolation within a segment, and the last y beyond
// the final breakpoint.
func (e *Evaluator) evalPwl(args []types.Node, s *State) float64 {
	x := e.eval(args[0], s)
	x0 := e.eval(args[1], s)
	y0 := e.eval(args[2], s)
	if x < x0 {
		return y0
	}
	if len(args) < 5 {
		return y0
	}
	x1 := e.eval(args[3], s)
	y1 := e.eval(args[4], s)
	i := 5
	for {
		if x < x1 {
			return y0 + (x-x0)*(y1-y0)/(x1-x0)
		}
		if i+1 >= len(args) {
			break
		}
		x0, y0 = x1, y1
		x1 = e.eval(args[i], s)
		y1 = e.eval(args[i+1], s)
		i += 2
	}
	return y1
}

// evalLast returns the previous timestep's converged value of a named
// reference, falling back to its registered initial value on the first
// timestep, else 0. The argument must be a bare reference; anything else
// evaluates to 0.
func (e *Evaluator) evalLast(n types.Last, s *State) float64 {
	ref, ok := n.X.(types.Ref)
	if !ok || e.resolver == nil {
		return 0
	}
	if v, ok := e.resolver.ResolvePrevious(ref.Name); ok {
		return v
	}
	if v, ok := e.resolveInitial(ref.Name); ok {
		return v
	}
	return 0
}

// evalLag reads the delay line for lag(x, delay): a moving average of the
// committed samples in [t-delay, t], blended with the registered initial
// value for the part of the window that reaches before the simulation
// start. Averaging over the window instead of sampling a single point
// keeps the read stable against sub-iteration jitter.
func (e *Evaluator) evalLag(n types.Lag, s *State) float64 {
	x := e.eval(n.X, s)
	d := e.eval(n.Delay, s)

	if n.Slot < 0 || n.Slot >= len(s.lags) {
		// State built with fewer buffers than the expression needs.
		return x
	}
	b := &s.lags[n.Slot]
	b.pending = x
	b.armed = true

	if d <= 0 {
		return x
	}

	lo := s.T - d
	sum, count := b.window(lo, s.T)

	if lo < 0 {
		// The window reaches before the simulation start; pad with the
		// initial value in proportion to the missing part.
		init := 0.0
		if ref, ok := n.X.(types.Ref); ok {
			if v, ok := e.resolveInitial(ref.Name); ok {
				init = v
			}
		}
		if count == 0 {
			return init
		}
		pad := -lo / d
		return pad*init + (1-pad)*(sum/float64(count))
	}

	if count == 0 {
		return x
	}
	return sum / float64(count)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// posmod is the remainder of x/y shifted into [0, y).
func posmod(x, y float64) float64 {
	x = math.Mod(x, y)
	if x < 0 {
		x += y
	}
	return x
}
