// internal/model/modeltest/fake.go

// Package modeltest provides a scriptable model.Model for tests.
package modeltest

import (
	"context"
	"fmt"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

// Fake is a deterministic in-memory model.Model for testing. Predictions are
// a pure function of the input unless MeanFn/VarFn are overridden: features
// predict their element sum, identifiers predict their length. Purity makes
// outputs independent of batch grouping, which the driver tests rely on.
type Fake struct {
	// Caps is the declared capability set (default CapMeans|CapVars).
	Caps model.Capabilities
	// Architecture selects identifier- or feature-consuming behavior.
	Architecture model.Arch
	// BatchSize is returned from TestBatchSize (default 4).
	BatchSize int

	// MeanFn, when set, overrides the per-item mean for input i of a batch.
	MeanFn func(b model.Batch, i int) float64
	// VarFn, when set, overrides the per-item variance (default 1.0).
	VarFn func(b model.Batch, i int) float64

	// Err, when set, is returned from every prediction call.
	Err error
	// FailAfter, when > 0, makes the FailAfter-th prediction call (1-based)
	// and all later ones fail.
	FailAfter int
	// TrainErr, when set, is returned from Train.
	TrainErr error

	// ShortBy, when > 0, truncates prediction results by that many entries
	// to simulate a contract-violating backend.
	ShortBy int

	// TrainCalls counts Train invocations; PredictCalls counts Means and
	// MeansAndVars invocations; BatchSizes records the size of every batch
	// seen by a prediction call.
	TrainCalls   int
	PredictCalls int
	BatchSizes   []int

	// TrainedIDs and TrainedYs hold the arguments of the last Train call;
	// Retrained records its retrain flag.
	TrainedIDs []string
	TrainedYs  []float64
	Retrained  bool
}

// New returns a Fake providing means and vars over features with batch size 4.
func New() *Fake {
	return &Fake{
		Caps:         model.CapMeans | model.CapVars,
		Architecture: model.ArchFeatures,
		BatchSize:    4,
	}
}

// NewSequence returns a Fake that consumes identifiers directly.
func NewSequence() *Fake {
	f := New()
	f.Architecture = model.ArchSequence
	return f
}

func (f *Fake) Provides() model.Capabilities { return f.Caps }
func (f *Fake) Arch() model.Arch             { return f.Architecture }

func (f *Fake) TestBatchSize() int {
	if f.BatchSize == 0 {
		return 4
	}
	return f.BatchSize
}

func (f *Fake) Train(_ context.Context, ids []string, ys []float64, _ model.Featurizer, retrain bool) error {
	f.TrainCalls++
	if f.TrainErr != nil {
		return f.TrainErr
	}
	if len(ids) != len(ys) {
		return fmt.Errorf("%w: %d ids, %d targets", model.ErrTrainInput, len(ids), len(ys))
	}
	f.TrainedIDs = append([]string(nil), ids...)
	f.TrainedYs = append([]float64(nil), ys...)
	f.Retrained = retrain
	return nil
}

func (f *Fake) Means(_ context.Context, b model.Batch) ([]float64, error) {
	if err := f.record(b); err != nil {
		return nil, err
	}
	means := make([]float64, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		means = append(means, f.mean(b, i))
	}
	return f.truncate(means), nil
}

func (f *Fake) MeansAndVars(_ context.Context, b model.Batch) ([]float64, []float64, error) {
	if err := f.record(b); err != nil {
		return nil, nil, err
	}
	means := make([]float64, 0, b.Len())
	vars := make([]float64, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		means = append(means, f.mean(b, i))
		vars = append(vars, f.variance(b, i))
	}
	return f.truncate(means), f.truncate(vars), nil
}

func (f *Fake) record(b model.Batch) error {
	f.PredictCalls++
	f.BatchSizes = append(f.BatchSizes, b.Len())
	if f.Err != nil {
		return f.Err
	}
	if f.FailAfter > 0 && f.PredictCalls >= f.FailAfter {
		return fmt.Errorf("fake prediction failure on call %d", f.PredictCalls)
	}
	return nil
}

func (f *Fake) mean(b model.Batch, i int) float64 {
	if f.MeanFn != nil {
		return f.MeanFn(b, i)
	}
	if b.IDs != nil {
		return float64(len(b.IDs[i]))
	}
	var sum float64
	for _, v := range b.Feats[i] {
		sum += v
	}
	return sum
}

func (f *Fake) variance(b model.Batch, i int) float64 {
	if f.VarFn != nil {
		return f.VarFn(b, i)
	}
	return 1.0
}

func (f *Fake) truncate(xs []float64) []float64 {
	if f.ShortBy > 0 && len(xs) >= f.ShortBy {
		return xs[:len(xs)-f.ShortBy]
	}
	return xs
}

// Ensure Fake implements model.Model at compile time
var _ model.Model = (*Fake)(nil)
