package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsAndResolveDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	vi := viper.New()
	BindFlags(fs, vi)
	require.NoError(t, fs.Parse(nil))

	opts := Resolve(vi)
	assert.Equal(t, "pdr", opts.Engine)
	assert.Equal(t, "ref", opts.Solver)
	assert.False(t, opts.Strict)
	assert.Equal(t, 0, opts.PDR.MaxFrame)
}

func TestBindFlagsOverridesFromFlagSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	vi := viper.New()
	BindFlags(fs, vi)
	require.NoError(t, fs.Parse([]string{"--ic3-max", "42", "--strict", "--solver", "z3"}))

	opts := Resolve(vi)
	assert.Equal(t, 42, opts.PDR.MaxFrame)
	assert.True(t, opts.Strict)
	assert.Equal(t, "z3", opts.Solver)
}
