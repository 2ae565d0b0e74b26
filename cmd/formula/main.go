// Command formula compiles and runs time-domain formulas from the command
// line, mainly for trying out expressions and inspecting how a host would
// classify them.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfcsim/formula"
	"github.com/sfcsim/formula/pkg/evaluator"
	"github.com/sfcsim/formula/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formula",
		Short:         "Compile, evaluate and analyze time-domain formulas",
		Version:       formula.Version(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newEvalCmd())
	root.AddCommand(newAnalyzeCmd())

	return root
}

func newEvalCmd() *cobra.Command {
	var (
		timeStep  float64
		steps     int
		vars      []string
		converged bool
	)

	cmd := &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate a formula, committing once per timestep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := formula.Compile(args[0])
			if err != nil {
				return err
			}

			reg := registry.New()
			if err := setVars(reg, vars); err != nil {
				return err
			}

			ev := evaluator.New(
				evaluator.WithResolver(reg),
				evaluator.WithTimeStep(timeStep),
				evaluator.WithConvergedValues(converged),
			)
			st := evaluator.NewState(expr.LagSlots())

			for i := 0; i < steps; i++ {
				st.T = float64(i) * timeStep
				v := ev.Eval(expr, st)
				fmt.Fprintf(cmd.OutOrStdout(), "t=%-12g %g\n", st.T, v)
				st.Commit(timeStep)
				st.UpdateLastValues(v)
				reg.Commit()
			}

			if names := ev.Unresolved(); len(names) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "unresolved: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&timeStep, "timestep", 0.01, "simulation timestep")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of timesteps to run")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "named value as name=value (repeatable)")
	cmd.Flags().BoolVar(&converged, "converged", false, "resolve references in converged-value mode")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze EXPR",
		Short: "Print the stamping classification of a formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := formula.Compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			// Same priority order a host uses: alias beats constant
			// beats linear beats dynamic.
			if name, ok := formula.Alias(expr); ok {
				fmt.Fprintf(out, "alias %s\n", name)
				return nil
			}

			if formula.IsConstant(expr) {
				ev := evaluator.New()
				v := ev.Eval(expr, evaluator.NewState(expr.LagSlots()))
				fmt.Fprintf(out, "constant %g\n", v)
				return nil
			}

			if terms, constant, ok := formula.LinearTerms(expr); ok {
				names := make([]string, 0, len(terms))
				for name := range terms {
					names = append(names, name)
				}
				sort.Strings(names)
				parts := make([]string, 0, len(names))
				for _, name := range names {
					parts = append(parts, fmt.Sprintf("%g*%s", terms[name], name))
				}
				fmt.Fprintf(out, "linear %s + %g\n", strings.Join(parts, " + "), constant)
				return nil
			}

			fmt.Fprintln(out, "dynamic")
			return nil
		},
	}

	return cmd
}

// setVars loads name=value pairs into the registry as both current values
// and committed snapshots, so references, last() and lag() all see them.
func setVars(reg *registry.Registry, vars []string) error {
	for _, pair := range vars {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid --var %q: %v", pair, err)
		}
		reg.Set(name, v)
	}
	reg.Commit()
	return nil
}
