package hclg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/semiring"
)

// Config holds the tunables of one build.
type Config struct {
	// Tolerance is the slack allowed when comparing a stage's bounds with
	// the previous stage's envelope.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// FinalStageTolerance is how far the self-loop stage may move the bounds
	// before it is flagged Regressed. It never aborts the build.
	FinalStageTolerance float64 `json:"final_stage_tolerance" yaml:"final_stage_tolerance"`

	// SelfLoopScale multiplies the self-loop and forward costs added by asl.
	SelfLoopScale float64 `json:"self_loop_scale" yaml:"self_loop_scale"`

	// MaxDetStates bounds every determinization.
	MaxDetStates int `json:"max_det_states" yaml:"max_det_states"`

	// MaxComposeStates bounds every composition (0 = no limit).
	MaxComposeStates int `json:"max_compose_states" yaml:"max_compose_states"`

	// Delta is the weight quantization step of determinization and minimization.
	Delta float64 `json:"delta" yaml:"delta"`

	// LocalEpsRemoval runs local epsilon removal after disambiguation
	// symbols are stripped.
	LocalEpsRemoval bool `json:"local_eps_removal" yaml:"local_eps_removal"`

	Context ContextConfig `json:"context" yaml:"context"`
}

// ContextConfig is the default context geometry, used when Inputs.Context
// leaves N at 0.
type ContextConfig struct {
	N int `json:"n" yaml:"n"`
	P int `json:"p" yaml:"p"`
}

// DefaultConfig returns triphone geometry and the usual 0.1 self-loop scale.
func DefaultConfig() Config {
	return Config{
		Tolerance:           1e-3,
		FinalStageTolerance: 1.0,
		SelfLoopScale:       0.1,
		MaxDetStates:        fst.DefaultMaxDeterminizeStates,
		Delta:               semiring.DefaultDelta,
		LocalEpsRemoval:     true,
		Context:             ContextConfig{N: 3, P: 1},
	}
}

// Validate reports the first value outside its domain.
func (c Config) Validate() error {
	switch {
	case !finiteNonNegative(c.Tolerance):
		return fmt.Errorf("%w: tolerance %v must be finite and >= 0", ErrInvalidConfig, c.Tolerance)
	case !finiteNonNegative(c.FinalStageTolerance):
		return fmt.Errorf("%w: final_stage_tolerance %v must be finite and >= 0", ErrInvalidConfig, c.FinalStageTolerance)
	case !(c.SelfLoopScale > 0) || math.IsInf(c.SelfLoopScale, 0):
		return fmt.Errorf("%w: self_loop_scale %v must be finite and > 0", ErrInvalidConfig, c.SelfLoopScale)
	case c.MaxDetStates < 1:
		return fmt.Errorf("%w: max_det_states %d < 1", ErrInvalidConfig, c.MaxDetStates)
	case c.MaxComposeStates < 0:
		return fmt.Errorf("%w: max_compose_states %d < 0", ErrInvalidConfig, c.MaxComposeStates)
	case !(c.Delta > 0) || math.IsInf(c.Delta, 0):
		return fmt.Errorf("%w: delta %v must be finite and > 0", ErrInvalidConfig, c.Delta)
	case c.Context.N < 1:
		return fmt.Errorf("%w: context.n %d < 1", ErrInvalidConfig, c.Context.N)
	case c.Context.P < 0 || c.Context.P >= c.Context.N:
		return fmt.Errorf("%w: context.p %d outside [0,%d)", ErrInvalidConfig, c.Context.P, c.Context.N)
	}

	return nil
}

// LoadConfig reads YAML over DefaultConfig: missing keys keep their
// defaults, unknown keys are rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfigFile is LoadConfig on the file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("hclg: open config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
