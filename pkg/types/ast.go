package types

import "strconv"

// Node is a node of a compiled formula's syntax tree. Nodes are immutable
// after construction and owned exclusively by their parent; the whole tree
// is owned by the [Expression] returned from the parser. All mutable
// evaluation state lives outside the tree, in the evaluator's State.
type Node interface {
	node()
}

// Op identifies a unary or binary operator.
type Op uint8

const (
	OpInvalid Op = iota

	// Unary
	OpNeg // -x
	OpNot // !x

	// Arithmetic
	OpAdd // +
	OpSub // -
	OpMul // *
	OpDiv // / (near-zero divisor yields 0)
	OpPow // ^ (left-associative)
	OpMod // mod(x, y) (near-zero divisor yields 0)

	// pwr(x, y) = |x|^y, pwrs(x, y) = sign(x)*|x|^y
	OpPwr
	OpPwrs

	// Comparison (1 or 0)
	OpEq // ==
	OpNe // !=
	OpLt // <
	OpGt // >
	OpLe // <=
	OpGe // >=

	// Logical (1 or 0, short-circuiting)
	OpAnd // &&
	OpOr  // ||
)

// String returns the source spelling of the operator.
func (op Op) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpMod:
		return "mod"
	case OpPwr:
		return "pwr"
	case OpPwrs:
		return "pwrs"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "(invalid)"
	}
}

// Func identifies a pure built-in function carried by a Call node.
// The stateful time-domain operators (integrate, diff, last, lag) have
// dedicated node types instead.
type Func uint8

const (
	FuncInvalid Func = iota

	FuncSin
	FuncCos
	FuncTan
	FuncAsin
	FuncAcos
	FuncAtan
	FuncSinh
	FuncCosh
	FuncTanh
	FuncAbs
	FuncExp
	FuncLog
	FuncSqrt
	FuncFloor
	FuncCeil
	FuncTri // triangle wave, period 2*pi, range -1..1
	FuncSaw // sawtooth wave, period 2*pi, range -1..1

	FuncMin    // min(a, b, ...)
	FuncMax    // max(a, b, ...)
	FuncPwl    // pwl(x, x0, y0, x1, y1, ...)
	FuncStep   // step(x) or step(x, limit)
	FuncSelect // select(x, a, b): b when x <= 0, else a
	FuncClamp  // clamp(x, lo, hi)
)

// String returns the source spelling of the function.
func (f Func) String() string {
	switch f {
	case FuncSin:
		return "sin"
	case FuncCos:
		return "cos"
	case FuncTan:
		return "tan"
	case FuncAsin:
		return "asin"
	case FuncAcos:
		return "acos"
	case FuncAtan:
		return "atan"
	case FuncSinh:
		return "sinh"
	case FuncCosh:
		return "cosh"
	case FuncTanh:
		return "tanh"
	case FuncAbs:
		return "abs"
	case FuncExp:
		return "exp"
	case FuncLog:
		return "log"
	case FuncSqrt:
		return "sqrt"
	case FuncFloor:
		return "floor"
	case FuncCeil:
		return "ceil"
	case FuncTri:
		return "tri"
	case FuncSaw:
		return "saw"
	case FuncMin:
		return "min"
	case FuncMax:
		return "max"
	case FuncPwl:
		return "pwl"
	case FuncStep:
		return "step"
	case FuncSelect:
		return "select"
	case FuncClamp:
		return "clamp"
	default:
		return "(invalid)"
	}
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// Ref is a named external reference, resolved by the host at evaluation
// time (a labeled circuit node, a slider, or a computed quantity).
type Ref struct {
	Name string
}

// Time evaluates to the current simulation time.
type Time struct{}

// TimeStep evaluates to the host's timestep size.
type TimeStep struct{}

// LastOutput evaluates to the owning element's previous-timestep output.
type LastOutput struct{}

// Register evaluates to general-purpose register _a.._i (Index 0..8).
type Register struct {
	Index int
}

// RegisterLast evaluates to a register's previous-timestep snapshot
// (_lasta.._lasti).
type RegisterLast struct {
	Index int
}

// RegisterRate evaluates to a register's discrete rate of change across the
// current timestep (_dadt.._didt).
type RegisterRate struct {
	Index int
}

// Unary applies OpNeg or OpNot to X.
type Unary struct {
	Op Op
	X  Node
}

// Binary applies a binary operator to L and R.
type Binary struct {
	Op   Op
	L, R Node
}

// Call applies a pure built-in function to its arguments.
type Call struct {
	Fn   Func
	Args []Node
}

// Cond is the ternary operator: If != 0 picks Then, else Else. Only the
// chosen branch is evaluated.
type Cond struct {
	If, Then, Else Node
}

// Integrate is the running forward-Euler integral of X. Evaluation records
// X as the pending input and returns the value the integral will have once
// the current timestep commits; the accumulator advances only on commit.
type Integrate struct {
	X Node
}

// Diff is the discrete derivative of X against the last committed input.
type Diff struct {
	X Node
}

// Last returns the previous timestep's converged value of a named
// reference. X is expected to be a bare Ref; anything else evaluates to 0.
type Last struct {
	X Node
}

// Lag is the delay operator lag(x, delay). Slot is the lag-buffer index
// assigned at parse time, so the same textual lag() call always reads and
// writes the same circular buffer across repeated evaluations.
type Lag struct {
	X, Delay Node
	Slot     int
}

func (Literal) node()      {}
func (Ref) node()          {}
func (Time) node()         {}
func (TimeStep) node()     {}
func (LastOutput) node()   {}
func (Register) node()     {}
func (RegisterLast) node() {}
func (RegisterRate) node() {}
func (Unary) node()        {}
func (Binary) node()       {}
func (Call) node()         {}
func (Cond) node()         {}
func (Integrate) node()    {}
func (Diff) node()         {}
func (Last) node()         {}
func (Lag) node()          {}

// String returns the literal's value, mainly for tests and debug output.
func (l Literal) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

func (r Ref) String() string {
	return r.Name
}
