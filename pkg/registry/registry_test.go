package registry_test

import (
	"sort"
	"testing"

	"github.com/sfcsim/formula/pkg/evaluator"
	"github.com/sfcsim/formula/pkg/parser"
	"github.com/sfcsim/formula/pkg/registry"
)

func TestRegistryViews(t *testing.T) {
	reg := registry.New()
	reg.Set("x", 1)

	// Nothing committed yet: only the current view sees the value.
	if v, ok := reg.Resolve("x"); !ok || v != 1 {
		t.Errorf("Resolve(x) = %v, %v; want 1, true", v, ok)
	}
	if _, ok := reg.ResolveConverged("x"); ok {
		t.Error("ResolveConverged(x) resolved before any commit")
	}
	if _, ok := reg.ResolvePrevious("x"); ok {
		t.Error("ResolvePrevious(x) resolved before any commit")
	}

	reg.Commit()
	reg.Set("x", 2)

	// Current drifts with sub-iterations; the snapshots hold the
	// committed value.
	if v, _ := reg.Resolve("x"); v != 2 {
		t.Errorf("Resolve(x) = %v, want 2", v)
	}
	if v, _ := reg.ResolveConverged("x"); v != 1 {
		t.Errorf("ResolveConverged(x) = %v, want 1", v)
	}
	if v, _ := reg.ResolvePrevious("x"); v != 1 {
		t.Errorf("ResolvePrevious(x) = %v, want 1", v)
	}
}

func TestRegistryInitialValues(t *testing.T) {
	reg := registry.New()
	reg.SetInitial("H", 42)

	if v, ok := reg.Resolve("H_init"); !ok || v != 42 {
		t.Errorf("Resolve(H_init) = %v, %v; want 42, true", v, ok)
	}
}

func TestRegistryReset(t *testing.T) {
	reg := registry.New()
	reg.Set("x", 1)
	reg.Commit()
	reg.Reset()

	if _, ok := reg.Resolve("x"); ok {
		t.Error("Resolve(x) resolved after reset")
	}
	if _, ok := reg.ResolvePrevious("x"); ok {
		t.Error("ResolvePrevious(x) resolved after reset")
	}
}

func TestRegistryNames(t *testing.T) {
	reg := registry.New()
	reg.Set("b", 2)
	reg.Set("a", 1)

	got := reg.Names()
	sort.Strings(got)
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

// A counter defined as its own previous value plus one must advance by
// exactly one per committed timestep, no matter how many sub-iterations
// re-evaluate it in between.
func TestRegistryRecurrence(t *testing.T) {
	expr, err := parser.Parse("last(H) + 1")
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	reg.SetInitial("H", 0)
	ev := evaluator.New(evaluator.WithResolver(reg), evaluator.WithTimeStep(0.1))
	st := evaluator.NewState(expr.LagSlots())

	for step := 0; step < 5; step++ {
		st.T = float64(step) * 0.1

		// Several sub-iterations per timestep, all landing on the same
		// value because last() reads the committed snapshot.
		var v float64
		for sub := 0; sub < 3; sub++ {
			v = ev.Eval(expr, st)
			reg.Set("H", v)
		}

		if want := float64(step + 1); v != want {
			t.Fatalf("step %d: H = %v, want %v", step, v, want)
		}

		st.Commit(0.1)
		reg.Commit()
	}
}
