// internal/backend/ensemble/ensemble.go

// Package ensemble provides bootstrap-ensemble uncertainty over any model
// factory: each member trains on a resample of the data, the ensemble mean
// is the member average and the variance is the spread across members.
package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

const defaultSize = 5

// Ensemble is a bootstrap ensemble of models built by a factory.
type Ensemble struct {
	factory func() model.Model
	size    int
	seed    uint64

	proto   model.Model
	members []model.Model
}

// Option configures an Ensemble at construction.
type Option func(*Ensemble)

// WithSize sets the number of members.
func WithSize(n int) Option {
	return func(e *Ensemble) {
		if n > 1 {
			e.size = n
		}
	}
}

// WithSeed fixes the bootstrap resampling seed.
func WithSeed(seed uint64) Option {
	return func(e *Ensemble) { e.seed = seed }
}

// New returns an untrained Ensemble over models produced by factory. The
// factory must produce identically configured instances.
func New(factory func() model.Model, opts ...Option) *Ensemble {
	e := &Ensemble{
		factory: factory,
		size:    defaultSize,
		proto:   factory(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provides always includes variance on top of whatever the members provide.
func (e *Ensemble) Provides() model.Capabilities {
	return e.proto.Provides() | model.CapMeans | model.CapVars
}

func (e *Ensemble) Arch() model.Arch   { return e.proto.Arch() }
func (e *Ensemble) TestBatchSize() int { return e.proto.TestBatchSize() }

// Train fits every member on its own bootstrap resample of ids/ys. With
// retrain or on first use members are built fresh from the factory;
// otherwise existing members are fitted incrementally. Any member failure
// aborts the call and leaves the previously trained members intact.
func (e *Ensemble) Train(ctx context.Context, ids []string, ys []float64, featurize model.Featurizer, retrain bool) error {
	if len(ids) != len(ys) {
		return fmt.Errorf("%w: %d ids, %d targets", model.ErrTrainInput, len(ids), len(ys))
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty training set", model.ErrTrainInput)
	}

	members := e.members
	if retrain || len(members) == 0 {
		members = make([]model.Model, e.size)
		for i := range members {
			members[i] = e.factory()
		}
	}

	rng := rand.New(rand.NewPCG(e.seed, uint64(len(ids))))
	n := len(ids)
	for k, m := range members {
		bootIDs := make([]string, n)
		bootYs := make([]float64, n)
		for i := 0; i < n; i++ {
			j := rng.IntN(n)
			bootIDs[i] = ids[j]
			bootYs[i] = ys[j]
		}
		if err := m.Train(ctx, bootIDs, bootYs, featurize, retrain); err != nil {
			return fmt.Errorf("ensemble member %d: %w", k, err)
		}
	}

	e.members = members
	return nil
}

// Means returns the across-member average prediction for each input.
func (e *Ensemble) Means(ctx context.Context, b model.Batch) ([]float64, error) {
	means, _, err := e.collect(ctx, b)
	return means, err
}

// MeansAndVars returns the member average and the across-member population
// variance for each input.
func (e *Ensemble) MeansAndVars(ctx context.Context, b model.Batch) ([]float64, []float64, error) {
	return e.collect(ctx, b)
}

func (e *Ensemble) collect(ctx context.Context, b model.Batch) ([]float64, []float64, error) {
	if len(e.members) == 0 {
		return nil, nil, model.ErrUntrained
	}

	n := b.Len()
	sum := make([]float64, n)
	sumSq := make([]float64, n)
	for k, m := range e.members {
		ms, err := m.Means(ctx, b)
		if err != nil {
			return nil, nil, fmt.Errorf("ensemble member %d: %w", k, err)
		}
		if len(ms) != n {
			return nil, nil, fmt.Errorf("ensemble member %d returned %d means for %d inputs: %w",
				k, len(ms), n, model.ErrContract)
		}
		for i, v := range ms {
			sum[i] += v
			sumSq[i] += v * v
		}
	}

	size := float64(len(e.members))
	means := make([]float64, n)
	vars := make([]float64, n)
	for i := 0; i < n; i++ {
		mean := sum[i] / size
		means[i] = mean
		variance := sumSq[i]/size - mean*mean
		if variance < 0 {
			variance = 0
		}
		vars[i] = variance
	}
	return means, vars, nil
}

// Ensure Ensemble implements model.Model at compile time
var _ model.Model = (*Ensemble)(nil)
