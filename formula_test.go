package formula_test

import (
	"errors"
	"testing"

	"github.com/sfcsim/formula"
	"github.com/sfcsim/formula/pkg/evaluator"
	"github.com/sfcsim/formula/pkg/parser"
	"github.com/sfcsim/formula/pkg/types"
)

func TestCompile(t *testing.T) {
	expr, err := formula.Compile("2+3*4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	ev := evaluator.New()
	if got := ev.Eval(expr, evaluator.NewState(expr.LagSlots())); got != 14 {
		t.Errorf("Eval = %v, want 14", got)
	}
}

func TestCompileError(t *testing.T) {
	_, err := formula.Compile("2+")
	if err == nil {
		t.Fatal("Compile(2+) succeeded, want error")
	}
	var perr *types.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %T is not *types.Error", err)
	}
}

func TestCompileOptions(t *testing.T) {
	_, err := formula.Compile("lag(x,1)+lag(y,1)", parser.WithMaxLagBuffers(1))
	if err == nil {
		t.Fatal("expected lag capacity error")
	}
}

func TestMustCompile(t *testing.T) {
	expr := formula.MustCompile("sin(t)")
	if expr == nil {
		t.Fatal("MustCompile returned nil")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustCompile(2+) did not panic")
		}
	}()
	formula.MustCompile("2+")
}

func TestAnalysisFacade(t *testing.T) {
	if !formula.IsConstant(formula.MustCompile("1+2")) {
		t.Error("IsConstant(1+2) = false, want true")
	}

	if name, ok := formula.Alias(formula.MustCompile("Vout")); !ok || name != "Vout" {
		t.Errorf("Alias(Vout) = %q, %v; want Vout, true", name, ok)
	}

	terms, constant, ok := formula.LinearTerms(formula.MustCompile("2*x+1"))
	if !ok || terms["x"] != 2 || constant != 1 {
		t.Errorf("LinearTerms(2*x+1) = %v, %v, %v", terms, constant, ok)
	}
}

func TestVersion(t *testing.T) {
	if formula.Version() == "" {
		t.Error("Version() is empty")
	}
}
