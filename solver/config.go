package solver

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/standardgalactic/neural-mesh/utils"
)

// Aggregation selects how per-vertex scores combine into a candidate score.
type Aggregation string

const (
	// AggregateSum adds the scores of visible vertices.
	AggregateSum Aggregation = "sum"
	// AggregateMean averages the scores of visible vertices.
	AggregateMean Aggregation = "mean"
)

// RefineConfig controls the continuous refinement stage. Zero iterations disables it.
type RefineConfig struct {
	Iterations   int     `json:"iterations"`
	LearningRate float64 `json:"learning_rate"`
	// Tolerance stops refinement once a step changes the score by less than this.
	Tolerance float64 `json:"tolerance"`
	// Jump is the central difference step for every parameter.
	Jump float64 `json:"jump"`
}

// Config holds the solver settings.
type Config struct {
	// ClutterWeight scales the clutter similarity subtracted from each vertex score. 0
	// ignores clutter.
	ClutterWeight float64      `json:"clutter_weight,omitempty"`
	Aggregation   Aggregation  `json:"aggregation,omitempty"`
	Refine        RefineConfig `json:"refine"`
}

// DefaultConfig returns summed scores, no clutter term and at most 30 gradient steps with a first step of 0.05.
func DefaultConfig() Config {
	return Config{
		Aggregation: AggregateSum,
		Refine: RefineConfig{
			Iterations:   30,
			LearningRate: 0.05,
			Tolerance:    1e-6,
			Jump:         1e-3,
		},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	var err error
	switch cfg.Aggregation {
	case AggregateSum, AggregateMean, "":
	default:
		err = multierr.Append(err, errors.Errorf("unknown aggregation %q", cfg.Aggregation))
	}
	if !utils.IsFinite(cfg.ClutterWeight) || cfg.ClutterWeight < 0 {
		err = multierr.Append(err, errors.Errorf("clutter_weight must be a non-negative number, got %v", cfg.ClutterWeight))
	}
	r := cfg.Refine
	if r.Iterations < 0 {
		err = multierr.Append(err, errors.Errorf("refine.iterations must not be negative, got %d", r.Iterations))
	}
	if r.Iterations > 0 {
		if !(r.LearningRate > 0) {
			err = multierr.Append(err, errors.Errorf("refine.learning_rate must be positive, got %v", r.LearningRate))
		}
		if !(r.Jump > 0) {
			err = multierr.Append(err, errors.Errorf("refine.jump must be positive, got %v", r.Jump))
		}
		if r.Tolerance < 0 {
			err = multierr.Append(err, errors.Errorf("refine.tolerance must not be negative, got %v", r.Tolerance))
		}
	}
	return err
}
