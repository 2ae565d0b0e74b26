package evaluator

import "math"

const (
	// NumRegisters is the number of general-purpose registers (_a.._i).
	NumRegisters = 9

	// LagBufferSize is the maximum number of committed (time, value)
	// samples each lag buffer retains.
	LagBufferSize = 10000

	// eulerRegister is the register pre-loaded with Euler's number (_e).
	eulerRegister = 4
)

// lagBuffer is a fixed-capacity circular history of committed
// (time, value) samples backing one lag() call.
type lagBuffer struct {
	times  []float64
	values []float64
	head   int // next write position
	count  int // number of valid entries

	pending    float64 // value recorded by the most recent evaluation
	armed      bool    // true once the lag() call has been evaluated
	lastCommit float64 // time of the last committed sample; NaN before the first
}

func (b *lagBuffer) reset() {
	b.head = 0
	b.count = 0
	b.pending = 0
	b.armed = false
	b.lastCommit = math.NaN()
}

// push appends a committed sample, overwriting the oldest once full.
func (b *lagBuffer) push(t, v float64) {
	if b.times == nil {
		b.times = make([]float64, LagBufferSize)
		b.values = make([]float64, LagBufferSize)
	}
	b.times[b.head] = t
	b.values[b.head] = v
	b.head = (b.head + 1) % LagBufferSize
	if b.count < LagBufferSize {
		b.count++
	}
}

// window sums the committed samples whose time falls in [lo, hi].
// Samples are stored in time order, so the backwards walk stops at the
// first sample older than lo.
func (b *lagBuffer) window(lo, hi float64) (sum float64, n int) {
	for i := 0; i < b.count; i++ {
		idx := (b.head - 1 - i + LagBufferSize) % LagBufferSize
		t := b.times[idx]
		if t < lo {
			break
		}
		if t > hi {
			continue
		}
		sum += b.values[idx]
		n++
	}
	return sum, n
}

// State is the mutable evaluation state of one formula instance. It is
// owned by exactly one caller sequence (compile, many evaluations, one
// commit per timestep, or reset) and is never shared between formulas.
//
// The host sets T before each evaluation and calls Commit exactly once per
// timestep after the surrounding non-linear solve has converged. Evaluation
// only writes the pending fields, so re-evaluating the same timestep any
// number of sub-iterations never advances committed state.
type State struct {
	// T is the current simulation time, set by the host before each
	// evaluation.
	T float64

	// Values are the general-purpose registers _a.._i. LastValues is
	// their previous-timestep snapshot, taken by UpdateLastValues.
	Values     [NumRegisters]float64
	LastValues [NumRegisters]float64

	// LastOutput is the owning element's previous-timestep output.
	LastOutput float64

	pendingIntInput float64
	lastIntOutput   float64
	lastIntTime     float64

	pendingDiffInput float64
	lastDiffInput    float64
	diffInitialized  bool

	lags []lagBuffer
}

// NewState creates a State with the given number of lag buffers.
// Register _e starts at Euler's number.
func NewState(lagSlots int) *State {
	s := &State{
		lastIntTime: -1,
		lags:        make([]lagBuffer, lagSlots),
	}
	s.Values[eulerRegister] = math.E
	for i := range s.lags {
		s.lags[i].lastCommit = math.NaN()
	}
	return s
}

// Commit finalizes the current timestep's time-domain state: it advances
// the running integral by timeStep times the pending input, promotes the
// pending derivative input to the committed one, and appends each armed lag
// buffer's pending value to its history.
//
// Commit is keyed on S.T: committing the same time twice is a no-op, so a
// host that calls it defensively cannot double-advance anything.
func (s *State) Commit(timeStep float64) {
	if s.T != s.lastIntTime {
		s.lastIntOutput += timeStep * s.pendingIntInput
		s.lastIntTime = s.T
	}

	s.lastDiffInput = s.pendingDiffInput
	s.diffInitialized = true

	for i := range s.lags {
		b := &s.lags[i]
		if b.armed && s.T != b.lastCommit {
			b.push(s.T, b.pending)
			b.lastCommit = s.T
		}
	}
}

// UpdateLastValues snapshots the registers and records the element's
// output, making them available as _lasta.._lasti and lastoutput in the
// next timestep. Hosts call this once per timestep alongside Commit.
func (s *State) UpdateLastValues(output float64) {
	s.LastOutput = output
	s.LastValues = s.Values
}

// Reset returns the state to its initial condition, as when the simulation
// is restarted.
func (s *State) Reset() {
	s.T = 0
	s.Values = [NumRegisters]float64{}
	s.Values[eulerRegister] = math.E
	s.LastValues = [NumRegisters]float64{}
	s.LastOutput = 0
	s.pendingIntInput = 0
	s.lastIntOutput = 0
	s.lastIntTime = -1
	s.pendingDiffInput = 0
	s.lastDiffInput = 0
	s.diffInitialized = false
	for i := range s.lags {
		s.lags[i].reset()
	}
}

// LagSlots returns the number of lag buffers the state carries.
func (s *State) LagSlots() int {
	return len(s.lags)
}

// CommittedIntegral returns the running integral's committed value, i.e.
// the sum as of the last Commit. The value an evaluation returns for
// integrate(x) is this plus timeStep*x.
func (s *State) CommittedIntegral() float64 {
	return s.lastIntOutput
}
