// internal/backend/gp/gp.go

// Package gp implements exact Gaussian-process regression with an RBF kernel
// over precomputed feature vectors. Training performs a Cholesky
// factorization of the kernel matrix; prediction uses the closed-form
// posterior mean and variance.
package gp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

const (
	defaultBatchSize   = 256
	defaultLengthScale = 1.0
	defaultSignalVar   = 1.0
	defaultNoiseVar    = 1e-4
)

// GP is an exact Gaussian-process regressor. It provides means and vars and
// consumes feature vectors. Every Train call is a full refit: incremental
// fitting has no meaning for an exact GP, so the retrain flag is accepted
// but does not change behavior.
type GP struct {
	batchSize   int
	lengthScale float64
	signalVar   float64
	noiseVar    float64

	// trained state, replaced atomically on a successful fit
	feats   [][]float64
	alpha   *mat.VecDense
	chol    *mat.Cholesky
	yMean   float64
	featDim int
}

// Option configures a GP at construction.
type Option func(*GP)

// WithBatchSize sets the inference micro-batch size.
func WithBatchSize(n int) Option {
	return func(g *GP) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithKernel sets the RBF length scale and signal variance.
func WithKernel(lengthScale, signalVar float64) Option {
	return func(g *GP) {
		if lengthScale > 0 {
			g.lengthScale = lengthScale
		}
		if signalVar > 0 {
			g.signalVar = signalVar
		}
	}
}

// WithNoise sets the observation noise variance added to the kernel diagonal.
func WithNoise(v float64) Option {
	return func(g *GP) {
		if v > 0 {
			g.noiseVar = v
		}
	}
}

// New returns an untrained GP.
func New(opts ...Option) *GP {
	g := &GP{
		batchSize:   defaultBatchSize,
		lengthScale: defaultLengthScale,
		signalVar:   defaultSignalVar,
		noiseVar:    defaultNoiseVar,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GP) Provides() model.Capabilities { return model.CapMeans | model.CapVars }
func (g *GP) Arch() model.Arch             { return model.ArchFeatures }
func (g *GP) TestBatchSize() int           { return g.batchSize }

// Train fits the GP on ids featurized through featurize. On any failure the
// previously trained state is left untouched.
func (g *GP) Train(_ context.Context, ids []string, ys []float64, featurize model.Featurizer, _ bool) error {
	if len(ids) != len(ys) {
		return fmt.Errorf("%w: %d ids, %d targets", model.ErrTrainInput, len(ids), len(ys))
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty training set", model.ErrTrainInput)
	}
	if featurize == nil {
		return fmt.Errorf("%w: featurizer required for feature architecture", model.ErrTrainInput)
	}

	n := len(ids)
	feats := make([][]float64, n)
	for i, id := range ids {
		feats[i] = featurize(id)
		if len(feats[i]) != len(feats[0]) {
			return fmt.Errorf("%w: inconsistent feature lengths %d and %d",
				model.ErrTrainInput, len(feats[0]), len(feats[i]))
		}
	}

	var yMean float64
	for _, y := range ys {
		yMean += y
	}
	yMean /= float64(n)

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := g.kernel(feats[i], feats[j])
			if i == j {
				v += g.noiseVar
			}
			k.SetSym(i, j, v)
		}
	}

	chol := &mat.Cholesky{}
	if ok := chol.Factorize(k); !ok {
		return fmt.Errorf("gp: kernel matrix not positive definite (n=%d, noise=%g)", n, g.noiseVar)
	}

	centered := make([]float64, n)
	for i, y := range ys {
		centered[i] = y - yMean
	}
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, centered)); err != nil {
		return fmt.Errorf("gp: solving for weights: %w", err)
	}

	g.feats = feats
	g.alpha = alpha
	g.chol = chol
	g.yMean = yMean
	g.featDim = len(feats[0])
	return nil
}

// Means returns the posterior mean for each feature vector in b.
func (g *GP) Means(_ context.Context, b model.Batch) ([]float64, error) {
	if g.chol == nil {
		return nil, model.ErrUntrained
	}
	if b.IDs != nil {
		return nil, fmt.Errorf("gp: identifier batch passed to feature architecture")
	}
	means := make([]float64, 0, b.Len())
	for i, x := range b.Feats {
		if len(x) != g.featDim {
			return nil, fmt.Errorf("gp: input %d has %d features, trained on %d", i, len(x), g.featDim)
		}
		kstar := g.crossKernel(x)
		means = append(means, g.yMean+mat.Dot(kstar, g.alpha))
	}
	return means, nil
}

// MeansAndVars returns the posterior mean and variance for each feature
// vector in b. Variances are clamped at zero against numerical noise.
func (g *GP) MeansAndVars(_ context.Context, b model.Batch) ([]float64, []float64, error) {
	if g.chol == nil {
		return nil, nil, model.ErrUntrained
	}
	if b.IDs != nil {
		return nil, nil, fmt.Errorf("gp: identifier batch passed to feature architecture")
	}
	n := len(g.feats)
	means := make([]float64, 0, b.Len())
	vars := make([]float64, 0, b.Len())
	for i, x := range b.Feats {
		if len(x) != g.featDim {
			return nil, nil, fmt.Errorf("gp: input %d has %d features, trained on %d", i, len(x), g.featDim)
		}
		kstar := g.crossKernel(x)
		means = append(means, g.yMean+mat.Dot(kstar, g.alpha))

		v := mat.NewVecDense(n, nil)
		if err := g.chol.SolveVecTo(v, kstar); err != nil {
			return nil, nil, fmt.Errorf("gp: posterior variance solve: %w", err)
		}
		variance := g.signalVar + g.noiseVar - mat.Dot(kstar, v)
		if variance < 0 {
			variance = 0
		}
		vars = append(vars, variance)
	}
	return means, vars, nil
}

// kernel is the RBF covariance between two feature vectors.
func (g *GP) kernel(a, b []float64) float64 {
	var d2 float64
	for i := range a {
		d := a[i] - b[i]
		d2 += d * d
	}
	return g.signalVar * math.Exp(-d2/(2*g.lengthScale*g.lengthScale))
}

func (g *GP) crossKernel(x []float64) *mat.VecDense {
	k := mat.NewVecDense(len(g.feats), nil)
	for i, f := range g.feats {
		k.SetVec(i, g.kernel(x, f))
	}
	return k
}

// Ensure GP implements model.Model at compile time
var _ model.Model = (*GP)(nil)
