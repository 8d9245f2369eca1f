package srs

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is returned when scheduling parameters are out of range.
var ErrInvalidParams = errors.New("invalid scheduling parameters")

// DefaultWeights are the FSRS v6 default model weights.
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability per rating
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability, hard penalty
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy bonus, short-term
	0.1542, // w[20] decay
}

// weightLowerBounds and weightUpperBounds bound each weight.
var (
	weightLowerBounds = [21]float64{
		0.001, 0.001, 0.001, 0.001,
		1.0, 0.001, 0.001, 0.001,
		0.0, 0.0, 0.001, 0.001,
		0.001, 0.001, 0.0, 0.0,
		1.0, 0.0, 0.0, 0.0,
		0.1,
	}
	weightUpperBounds = [21]float64{
		100.0, 100.0, 100.0, 100.0,
		10.0, 4.0, 4.0, 0.75,
		4.5, 0.8, 3.5, 5.0,
		0.25, 0.9, 4.0, 1.0,
		6.0, 2.0, 2.0, 0.8,
		0.8,
	}
)

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Model weights
	Weights [21]float64 `json:"w"`

	// Target probability of recall when a review falls due
	DesiredRetention float64 `json:"requestRetention"`

	// Short intervals used before a card graduates to review
	LearningSteps   []time.Duration `json:"learningSteps"`
	RelearningSteps []time.Duration `json:"relearningSteps"`

	// Upper bound on any interval, in days
	MaximumInterval int `json:"maximumInterval"`
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults; a non-nil empty step list disables steps.
type ParamsConfig struct {
	Weights          [21]float64
	DesiredRetention float64
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
	MaximumInterval  int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights:          DefaultWeights,
		DesiredRetention: 0.9,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
		MaximumInterval:  36500,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.Weights != [21]float64{} {
		params.Weights = config.Weights
	}
	if config.DesiredRetention != 0 {
		params.DesiredRetention = config.DesiredRetention
	}
	if config.LearningSteps != nil {
		params.LearningSteps = config.LearningSteps
	}
	if config.RelearningSteps != nil {
		params.RelearningSteps = config.RelearningSteps
	}
	if config.MaximumInterval != 0 {
		params.MaximumInterval = config.MaximumInterval
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks every parameter against its allowed range.
func (p *Params) Validate() error {
	for i, w := range p.Weights {
		if w < weightLowerBounds[i] || w > weightUpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParams, i, w, weightLowerBounds[i], weightUpperBounds[i])
		}
	}
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("%w: desired retention %f out of range (0, 1)", ErrInvalidParams, p.DesiredRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval %d must be positive", ErrInvalidParams, p.MaximumInterval)
	}
	for _, steps := range [][]time.Duration{p.LearningSteps, p.RelearningSteps} {
		for _, step := range steps {
			if step <= 0 {
				return fmt.Errorf("%w: step %s must be positive", ErrInvalidParams, step)
			}
		}
	}
	return nil
}
