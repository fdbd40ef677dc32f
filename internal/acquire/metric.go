// internal/acquire/metric.go

// Package acquire ranks candidates by an acquisition metric computed from
// predicted means and variances, and selects the next batch to measure. The
// model contract itself never validates capabilities against the prediction
// method called; the validation of a metric's needs lives here instead.
package acquire

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

// Metric is an acquisition function over predicted mean and variance.
type Metric uint8

const (
	// Greedy ranks by predicted mean alone.
	Greedy Metric = iota
	// UCB ranks by mean + beta*stddev.
	UCB
	// EI ranks by expected improvement over the current best.
	EI
	// PI ranks by probability of improvement over the current best.
	PI
	// Thompson ranks by a sample from each candidate's posterior.
	Thompson
	// Random ranks uniformly at random.
	Random
)

// ParseMetric maps a metric name to its Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "greedy":
		return Greedy, nil
	case "ucb":
		return UCB, nil
	case "ei":
		return EI, nil
	case "pi":
		return PI, nil
	case "thompson":
		return Thompson, nil
	case "random":
		return Random, nil
	default:
		return 0, fmt.Errorf("acquire: unknown metric %q", s)
	}
}

func (m Metric) String() string {
	switch m {
	case Greedy:
		return "greedy"
	case UCB:
		return "ucb"
	case EI:
		return "ei"
	case PI:
		return "pi"
	case Thompson:
		return "thompson"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// Needs returns the model capabilities the metric requires.
func (m Metric) Needs() model.Capabilities {
	switch m {
	case UCB, EI, PI, Thompson:
		return model.CapMeans | model.CapVars
	default:
		return model.CapMeans
	}
}

// Scorer evaluates one acquisition metric. Best is the best score observed
// so far and should be updated by the caller between iterations.
type Scorer struct {
	Metric Metric
	// Beta weighs the exploration term of UCB (default 2).
	Beta float64
	// Xi is the improvement margin of EI and PI.
	Xi float64
	// Best is the best observed objective value so far.
	Best float64

	rng *rand.Rand
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithBeta sets the UCB exploration weight.
func WithBeta(beta float64) ScorerOption {
	return func(s *Scorer) { s.Beta = beta }
}

// WithXi sets the EI/PI improvement margin.
func WithXi(xi float64) ScorerOption {
	return func(s *Scorer) { s.Xi = xi }
}

// WithSeed fixes the random source used by Thompson and Random.
func WithSeed(seed uint64) ScorerOption {
	return func(s *Scorer) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// NewScorer returns a Scorer for the given metric.
func NewScorer(m Metric, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		Metric: m,
		Beta:   2,
		Best:   math.Inf(-1),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the acquisition utility of a candidate from its predicted
// mean and variance. Higher is better.
func (s *Scorer) Score(mean, variance float64) float64 {
	sigma := math.Sqrt(math.Max(variance, 0))
	switch s.Metric {
	case UCB:
		return mean + s.Beta*sigma
	case EI:
		improve := mean - s.Best - s.Xi
		if sigma == 0 {
			return math.Max(improve, 0)
		}
		z := improve / sigma
		return improve*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	case PI:
		improve := mean - s.Best - s.Xi
		if sigma == 0 {
			if improve > 0 {
				return 1
			}
			return 0
		}
		return distuv.UnitNormal.CDF(improve / sigma)
	case Thompson:
		return mean + sigma*s.rng.NormFloat64()
	case Random:
		return s.rng.Float64()
	default:
		return mean
	}
}
