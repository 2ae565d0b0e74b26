package evaluator_test

import (
	"math"
	"testing"

	"github.com/sfcsim/formula/pkg/evaluator"
)

func TestIntegrateAccumulatesOnCommit(t *testing.T) {
	expr := compile(t, "integrate(x)")
	r := mapResolver{current: map[string]float64{"x": 2}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	// The evaluation result anticipates the commit; the accumulator
	// itself has not moved yet.
	closeTo(t, ev.Eval(expr, st), 0.2)
	closeTo(t, st.CommittedIntegral(), 0)

	// Re-evaluating within the same timestep changes nothing.
	closeTo(t, ev.Eval(expr, st), 0.2)
	closeTo(t, ev.Eval(expr, st), 0.2)
	closeTo(t, st.CommittedIntegral(), 0)

	for i := 0; i < 5; i++ {
		st.T = float64(i) * 0.1
		ev.Eval(expr, st)
		st.Commit(0.1)
	}
	closeTo(t, st.CommittedIntegral(), 1.0)

	// After five commits of 2 for 0.1 each, the next evaluation reads
	// 1.0 plus its own anticipated slice.
	closeTo(t, ev.Eval(expr, st), 1.2)
}

func TestCommitSameTimeIsNoOp(t *testing.T) {
	expr := compile(t, "integrate(x)")
	r := mapResolver{current: map[string]float64{"x": 2}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	ev.Eval(expr, st)
	st.Commit(0.1)
	closeTo(t, st.CommittedIntegral(), 0.2)

	// A defensive second commit at the same time must not advance.
	st.Commit(0.1)
	closeTo(t, st.CommittedIntegral(), 0.2)

	st.T = 0.1
	ev.Eval(expr, st)
	st.Commit(0.1)
	closeTo(t, st.CommittedIntegral(), 0.4)
}

func TestDiffDerivative(t *testing.T) {
	expr := compile(t, "diff(x)")
	vals := map[string]float64{"x": 5}
	ev := evaluator.New(evaluator.WithResolver(mapResolver{current: vals}), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	// No committed baseline yet: the derivative reads 0.
	closeTo(t, ev.Eval(expr, st), 0)
	st.Commit(0.1)

	// Against the committed input 5, an input of 7 over dt=0.1 is 20.
	st.T = 0.1
	vals["x"] = 7
	closeTo(t, ev.Eval(expr, st), 20)

	// Sub-iterations see the same baseline, not each other.
	closeTo(t, ev.Eval(expr, st), 20)
	vals["x"] = 6
	closeTo(t, ev.Eval(expr, st), 10)
}

func TestDiffZeroTimestep(t *testing.T) {
	expr := compile(t, "diff(x)")
	vals := map[string]float64{"x": 5}
	ev := evaluator.New(evaluator.WithResolver(mapResolver{current: vals}))
	st := evaluator.NewState(expr.LagSlots())

	ev.Eval(expr, st)
	st.Commit(0)
	vals["x"] = 7
	// A degenerate timestep cannot produce an infinite rate.
	closeTo(t, ev.Eval(expr, st), 0)
}

func TestLagDelayLine(t *testing.T) {
	expr := compile(t, "lag(x,1)")
	r := mapResolver{current: map[string]float64{"x": 7, "x_init": 42}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.25))
	st := evaluator.NewState(expr.LagSlots())

	for i := 0; i <= 8; i++ {
		st.T = float64(i) * 0.25
		got := ev.Eval(expr, st)
		switch st.T {
		case 0:
			// No history: the whole window predates the start, so the
			// initial value stands in.
			closeTo(t, got, 42)
		case 0.5:
			// Half the window predates the start: blend of the initial
			// value and the average of the committed samples.
			closeTo(t, got, 0.5*42+0.5*7)
		case 2:
			// The window is fully inside the simulated range.
			closeTo(t, got, 7)
		}
		st.Commit(0.25)
	}
}

func TestLagZeroDelayPassesThrough(t *testing.T) {
	expr := compile(t, "lag(x,0)")
	r := mapResolver{current: map[string]float64{"x": 3}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	closeTo(t, ev.Eval(expr, st), 3)
}

func TestLagWithoutInitialValue(t *testing.T) {
	expr := compile(t, "lag(x,1)")
	r := mapResolver{current: map[string]float64{"x": 5}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.25))
	st := evaluator.NewState(expr.LagSlots())

	// No registered initial value: the pre-start portion reads 0.
	closeTo(t, ev.Eval(expr, st), 0)
}

func TestUpdateLastValues(t *testing.T) {
	st := evaluator.NewState(0)
	st.Values[0] = 5
	st.Values[3] = -2
	st.UpdateLastValues(9)

	if st.LastValues[0] != 5 || st.LastValues[3] != -2 {
		t.Errorf("LastValues = %v, want registers snapshotted", st.LastValues)
	}
	closeTo(t, st.LastOutput, 9)

	// The snapshot is a copy, not a reference.
	st.Values[0] = 100
	closeTo(t, st.LastValues[0], 5)
}

func TestStateReset(t *testing.T) {
	expr := compile(t, "integrate(x) + lag(x,1)")
	r := mapResolver{current: map[string]float64{"x": 2}}
	ev := evaluator.New(evaluator.WithResolver(r), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	for i := 0; i < 3; i++ {
		st.T = float64(i) * 0.1
		v := ev.Eval(expr, st)
		st.Commit(0.1)
		st.UpdateLastValues(v)
	}
	st.Values[0] = 5

	st.Reset()

	closeTo(t, st.T, 0)
	closeTo(t, st.CommittedIntegral(), 0)
	closeTo(t, st.Values[0], 0)
	closeTo(t, st.LastOutput, 0)
	if st.LagSlots() != 1 {
		t.Errorf("LagSlots = %d, want 1", st.LagSlots())
	}

	// Register _e is re-seeded with Euler's number.
	closeTo(t, st.Values[4], math.E)

	// The first post-reset commit advances again from zero.
	closeTo(t, ev.Eval(compile(t, "integrate(x)"), st), 0.2)
}
