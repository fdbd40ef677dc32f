// internal/backend/seq/seq.go

// Package seq implements a sequence-consuming linear regressor over hashed
// character n-grams. The model predicts directly on input identifiers:
// features are computed internally, so the featurizer handed to Train is
// never invoked. Training is incremental SGD; an optional inference-time
// dropout turns the model stochastic and yields a sampled variance.
package seq

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

const (
	defaultBatchSize = 512
	defaultNGram     = 3
	defaultEpochs    = 20
	defaultLR        = 0.05
	defaultDecay     = 1e-3

	// dropoutPasses is the number of stochastic forward passes used to
	// estimate the predictive variance when dropout is enabled.
	dropoutPasses = 10
)

// Linear is a sparse linear model keyed by hashed n-grams of the identifier.
type Linear struct {
	batchSize int
	ngram     int
	epochs    int
	lr        float64
	decay     float64
	dropout   float64
	seed      uint64

	w     map[uint64]float64
	bias  float64
	steps int
}

// Option configures a Linear at construction.
type Option func(*Linear)

// WithBatchSize sets the inference micro-batch size.
func WithBatchSize(n int) Option {
	return func(l *Linear) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithNGram sets the longest character n-gram hashed into the feature set.
func WithNGram(n int) Option {
	return func(l *Linear) {
		if n > 0 {
			l.ngram = n
		}
	}
}

// WithEpochs sets the number of SGD passes per Train call.
func WithEpochs(n int) Option {
	return func(l *Linear) {
		if n > 0 {
			l.epochs = n
		}
	}
}

// WithLearningRate sets the initial learning rate and its decay per step.
func WithLearningRate(lr, decay float64) Option {
	return func(l *Linear) {
		if lr > 0 {
			l.lr = lr
		}
		if decay >= 0 {
			l.decay = decay
		}
	}
}

// WithDropout enables inference-time weight dropout at the given rate,
// making predictions stochastic and variance estimation available.
func WithDropout(rate float64, seed uint64) Option {
	return func(l *Linear) {
		if rate > 0 && rate < 1 {
			l.dropout = rate
			l.seed = seed
		}
	}
}

// New returns an untrained Linear.
func New(opts ...Option) *Linear {
	l := &Linear{
		batchSize: defaultBatchSize,
		ngram:     defaultNGram,
		epochs:    defaultEpochs,
		lr:        defaultLR,
		decay:     defaultDecay,
		w:         make(map[uint64]float64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Linear) Provides() model.Capabilities {
	if l.dropout > 0 {
		return model.CapMeans | model.CapVars | model.CapStochastic
	}
	return model.CapMeans
}

func (l *Linear) Arch() model.Arch   { return model.ArchSequence }
func (l *Linear) TestBatchSize() int { return l.batchSize }

// Train runs SGD over the identifiers and their targets. The featurizer is
// ignored: this architecture derives features from the identifier itself.
// retrain=true resets all weights before fitting; otherwise training
// continues from the current weights.
func (l *Linear) Train(_ context.Context, ids []string, ys []float64, _ model.Featurizer, retrain bool) error {
	if len(ids) != len(ys) {
		return fmt.Errorf("%w: %d ids, %d targets", model.ErrTrainInput, len(ids), len(ys))
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty training set", model.ErrTrainInput)
	}

	if retrain {
		l.w = make(map[uint64]float64)
		l.bias = 0
		l.steps = 0
	}

	samples := make([]map[uint64]float64, len(ids))
	for i, id := range ids {
		samples[i] = l.features(id)
	}

	rng := rand.New(rand.NewPCG(l.seed, uint64(l.steps)+1))
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < l.epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, i := range order {
			step := l.lr / (1 + l.decay*float64(l.steps))
			residual := l.predict(samples[i], nil) - ys[i]
			for h, v := range samples[i] {
				l.w[h] -= step * residual * v
			}
			l.bias -= step * residual
			l.steps++
		}
	}
	return nil
}

// Means predicts each identifier in b. With dropout enabled, one stochastic
// pass is taken per input.
func (l *Linear) Means(_ context.Context, b model.Batch) ([]float64, error) {
	if b.IDs == nil {
		return nil, fmt.Errorf("seq: identifier batch required for sequence architecture")
	}
	var rng *rand.Rand
	if l.dropout > 0 {
		rng = rand.New(rand.NewPCG(l.seed, rand.Uint64()))
	}
	means := make([]float64, 0, len(b.IDs))
	for _, id := range b.IDs {
		means = append(means, l.predict(l.features(id), rng))
	}
	return means, nil
}

// MeansAndVars predicts each identifier in b. With dropout enabled, the mean
// and variance are estimated from repeated stochastic passes; otherwise the
// point prediction is returned with zero variance.
func (l *Linear) MeansAndVars(ctx context.Context, b model.Batch) ([]float64, []float64, error) {
	if b.IDs == nil {
		return nil, nil, fmt.Errorf("seq: identifier batch required for sequence architecture")
	}
	if l.dropout == 0 {
		means, err := l.Means(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		return means, make([]float64, len(means)), nil
	}

	rng := rand.New(rand.NewPCG(l.seed, rand.Uint64()))
	means := make([]float64, 0, len(b.IDs))
	vars := make([]float64, 0, len(b.IDs))
	for _, id := range b.IDs {
		fs := l.features(id)
		var sum, sumSq float64
		for p := 0; p < dropoutPasses; p++ {
			y := l.predict(fs, rng)
			sum += y
			sumSq += y * y
		}
		mean := sum / dropoutPasses
		means = append(means, mean)
		vars = append(vars, sumSq/dropoutPasses-mean*mean)
	}
	return means, vars, nil
}

// features hashes every character n-gram of length 1..ngram into a sparse
// count vector.
func (l *Linear) features(id string) map[uint64]float64 {
	fs := make(map[uint64]float64)
	for n := 1; n <= l.ngram; n++ {
		for i := 0; i+n <= len(id); i++ {
			fs[xxhash.Sum64String(id[i:i+n])]++
		}
	}
	return fs
}

// predict evaluates the linear model on a sparse feature vector. With a
// non-nil rng each weight is dropped with probability dropout and survivors
// are rescaled by 1/(1-dropout).
func (l *Linear) predict(fs map[uint64]float64, rng *rand.Rand) float64 {
	y := l.bias
	if rng == nil || l.dropout == 0 {
		for h, v := range fs {
			y += l.w[h] * v
		}
		return y
	}
	scale := 1 / (1 - l.dropout)
	for h, v := range fs {
		if rng.Float64() < l.dropout {
			continue
		}
		y += l.w[h] * v * scale
	}
	return y
}

// Ensure Linear implements model.Model at compile time
var _ model.Model = (*Linear)(nil)
