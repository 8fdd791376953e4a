// Command pdrcheck is the CLI surface of the checker: verify runs the PDR
// engine over a transition system and property, demo runs one of a handful
// of built-in scenarios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/ic3lab/pdrcheck/internal/batch"
	"github.com/ic3lab/pdrcheck/internal/config"
	"github.com/ic3lab/pdrcheck/internal/logging"
	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/smt/refsolver"
	"github.com/ic3lab/pdrcheck/internal/term"
	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

var v = viper.New()

func main() {
	root := &cobra.Command{
		Use:   "pdrcheck",
		Short: "symbolic property-directed reachability model checker",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := config.Resolve(v)
			return logging.Init(opts.Verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	config.BindFlags(root.PersistentFlags(), v)

	root.AddCommand(verifyCmd())
	root.AddCommand(demoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func refFactory(mgr *term.Manager) smt.Solver {
	return refsolver.New(mgr)
}

// verifyTarget is one file's parsed system together with the engine built
// to check it; jobs run concurrently through a batch.Pool, but each keeps
// its own term.Manager and Engine so results can still be read back
// (invariant, dependency dump) once the pool has finished.
type verifyTarget struct {
	path   string
	mgr    *term.Manager
	engine *pdr.Engine
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file> [file...]",
		Short: "check one or more transition systems against their properties",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.Resolve(v)

			targets := make([]*verifyTarget, len(args))
			jobs := make([]batch.Job, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				mgr := term.NewManager()
				sys, err := parseSystem(mgr, string(data))
				if err != nil {
					return fmt.Errorf("parsing %s: %w", path, err)
				}
				engine := pdr.NewEngine(mgr, sys.ts, opts.PDR, refFactory)
				engine.AddProperty(sys.property)

				targets[i] = &verifyTarget{path: path, mgr: mgr, engine: engine}
				jobs[i] = batch.Job{Name: path, Run: engine.Query}
			}

			results, err := batch.NewPool(opts.Jobs).Run(cmd.Context(), jobs)
			if err != nil && len(results) == 0 {
				return err
			}

			exitCode := 0
			for i, r := range results {
				t := targets[i]
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", t.path, r.Err)
					exitCode = 1
					continue
				}
				if len(targets) > 1 {
					fmt.Printf("%s: %s\n", t.path, r.Result)
				} else {
					fmt.Println(r.Result)
				}
				if r.Result == pdr.Invalid && opts.Show.Trace && r.Trace != nil {
					fmt.Println(r.Trace.Format(t.mgr))
				}
				if r.Result == pdr.Valid && opts.PDR.ShowInvariant {
					if inv, ok := t.engine.Invariant(); ok {
						fmt.Println(pdr.FormatFormula(t.mgr, inv))
					}
				}
				if opts.PDR.DumpDependencies {
					for _, dot := range t.engine.DependencyDumps() {
						fmt.Println(dot)
					}
				}
				if opts.Strict && (r.Result == pdr.Unknown || r.Result == pdr.Interrupted) {
					exitCode = 1
				}
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo <scenario>",
		Short: "run one of the built-in demonstration scenarios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, ok := demoScenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown demo scenario %q (known: %v)", args[0], demoScenarioNames())
			}
			logging.Msg(zapcore.InfoLevel, "running demo scenario %s", args[0])
			return runDemo(cmd.Context(), scenario)
		},
	}
	return cmd
}

func runDemo(ctx context.Context, scenario demoScenario) error {
	mgr := term.NewManager()
	ts, property := scenario.build(mgr)
	engine := pdr.NewEngine(mgr, ts, scenario.cfg, refFactory)
	engine.AddProperty(property)

	res, trace, err := engine.Query(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", scenario.name, res)
	if res == pdr.Invalid && trace != nil {
		fmt.Println(trace.Format(mgr))
	}
	if res == pdr.Valid && scenario.cfg.ShowInvariant {
		if inv, ok := engine.Invariant(); ok {
			fmt.Println(pdr.FormatFormula(mgr, inv))
		}
	}
	return nil
}
