// Package config is the viper-backed option bag for pdrcheck: it binds the
// CLI's flag set to a config-file/env-var layer so flag values override
// PDRCHECK_* environment variables, which override pdrcheck.yaml, which
// overrides the engine's own defaults.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

// Options is the resolved set of options for one invocation of the verify
// command.
type Options struct {
	Engine string
	Solver string
	Jobs   int
	Verbose int
	Strict bool
	Show   ShowOptions
	PDR    pdr.Config // engine tunables, bound from the ic3-* flags
}

// ShowOptions groups the output-shaping flags.
type ShowOptions struct {
	Trace bool
}

// BindFlags registers every pdrcheck flag onto fs and binds it into v, so
// that Resolve can later read the layered value (flag > env > config file >
// default) for each option.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("engine", "pdr", "model checking engine to use")
	fs.String("solver", "ref", "SMT backend to use")
	fs.Int("jobs", 0, "batch worker pool size (0 = runtime.NumCPU())")
	fs.CountP("verbosity", "v", "increase log verbosity")
	fs.Bool("strict", false, "exit non-zero on Unknown or Interrupted results")
	fs.Bool("show-trace", false, "print the counterexample trace on Invalid")

	fs.Int("ic3-max", 0, "maximum frame index to search before giving up (0 = unbounded)")
	fs.Int("ic3-induction-max", 0, "maximum k-induction depth to attempt (0 = unlimited)")
	fs.Bool("ic3-show-invariant", false, "print the discovered inductive invariant on Valid")
	fs.Bool("ic3-enable-restarts", false, "at every 8th frame, discard learnt state and end the query as Unknown")
	fs.Bool("ic3-no-initial-state", false, "skip the upfront initial-state property check")
	fs.Bool("ic3-dump-dependencies", false, "dump the parent/refutes dependency graph")

	_ = v.BindPFlags(fs)
	v.SetEnvPrefix("PDRCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName("pdrcheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()
}

// Resolve reads the layered configuration in v into an Options value.
func Resolve(v *viper.Viper) Options {
	return Options{
		Engine:  v.GetString("engine"),
		Solver:  v.GetString("solver"),
		Jobs:    v.GetInt("jobs"),
		Verbose: v.GetInt("verbosity"),
		Strict:  v.GetBool("strict"),
		Show: ShowOptions{
			Trace: v.GetBool("show-trace"),
		},
		PDR: pdr.Config{
			MaxFrame:         v.GetInt("ic3-max"),
			InductionBudget:  v.GetInt("ic3-induction-max"),
			ShowInvariant:    v.GetBool("ic3-show-invariant"),
			EnableRestarts:   v.GetBool("ic3-enable-restarts"),
			NoInitialState:   v.GetBool("ic3-no-initial-state"),
			DumpDependencies: v.GetBool("ic3-dump-dependencies"),
			ReachabilityMax:  1000,
		},
	}
}
