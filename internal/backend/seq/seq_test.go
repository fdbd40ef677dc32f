// internal/backend/seq/seq_test.go
package seq

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

var (
	trainIDs = []string{"aaaa", "aaab", "abbb", "bbbb", "bbba", "baaa"}
	trainYs  = []float64{4, 3, 1, 0, 1, 3} // roughly: number of 'a's
)

func trainedLinear(t *testing.T, opts ...Option) *Linear {
	t.Helper()
	l := New(opts...)
	if err := l.Train(context.Background(), trainIDs, trainYs, nil, false); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return l
}

func TestLinearCapabilities(t *testing.T) {
	l := New()
	if l.Provides() != model.CapMeans {
		t.Errorf("Expected means only, got %s", l.Provides())
	}
	if l.Arch() != model.ArchSequence {
		t.Errorf("Expected sequence architecture, got %s", l.Arch())
	}

	stochastic := New(WithDropout(0.2, 7))
	want := model.CapMeans | model.CapVars | model.CapStochastic
	if stochastic.Provides() != want {
		t.Errorf("Expected %s with dropout, got %s", want, stochastic.Provides())
	}
}

func TestLinearTrainValidation(t *testing.T) {
	l := New()
	err := l.Train(context.Background(), []string{"a"}, []float64{1, 2}, nil, false)
	if !errors.Is(err, model.ErrTrainInput) {
		t.Errorf("Expected ErrTrainInput, got %v", err)
	}
	err = l.Train(context.Background(), nil, nil, nil, false)
	if !errors.Is(err, model.ErrTrainInput) {
		t.Errorf("Expected ErrTrainInput for empty set, got %v", err)
	}
}

func TestLinearFitsTrainingData(t *testing.T) {
	l := trainedLinear(t, WithEpochs(200))

	means, err := l.Means(context.Background(), model.Batch{IDs: trainIDs})
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}
	if len(means) != len(trainIDs) {
		t.Fatalf("Expected %d means, got %d", len(trainIDs), len(means))
	}
	for i, m := range means {
		if math.Abs(m-trainYs[i]) > 0.75 {
			t.Errorf("means[%d] = %f, expected near %f", i, m, trainYs[i])
		}
	}
}

func TestLinearDeterministicWithoutDropout(t *testing.T) {
	l := trainedLinear(t)

	b := model.Batch{IDs: []string{"aabb", "abab"}}
	first, err := l.Means(context.Background(), b)
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}
	second, err := l.Means(context.Background(), b)
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Expected deterministic predictions, got %f then %f", first[i], second[i])
		}
	}
}

func TestLinearZeroVarianceWithoutDropout(t *testing.T) {
	l := trainedLinear(t)

	means, vars, err := l.MeansAndVars(context.Background(), model.Batch{IDs: []string{"aa", "bb"}})
	if err != nil {
		t.Fatalf("MeansAndVars failed: %v", err)
	}
	if len(means) != 2 || len(vars) != 2 {
		t.Fatalf("Expected 2 means and vars, got %d and %d", len(means), len(vars))
	}
	for i, v := range vars {
		if v != 0 {
			t.Errorf("vars[%d] = %f, expected 0 without dropout", i, v)
		}
	}
}

func TestLinearDropoutVariance(t *testing.T) {
	l := trainedLinear(t, WithDropout(0.5, 11), WithEpochs(100))

	_, vars, err := l.MeansAndVars(context.Background(), model.Batch{IDs: []string{"aaaa"}})
	if err != nil {
		t.Fatalf("MeansAndVars failed: %v", err)
	}
	if vars[0] <= 0 {
		t.Errorf("Expected positive sampled variance with dropout, got %f", vars[0])
	}
}

func TestLinearIncrementalVsRetrain(t *testing.T) {
	l := trainedLinear(t)
	base, _ := l.Means(context.Background(), model.Batch{IDs: []string{"aaaa"}})

	// Incremental fitting on shifted targets moves predictions.
	shifted := []float64{14, 13, 11, 10, 11, 13}
	if err := l.Train(context.Background(), trainIDs, shifted, nil, false); err != nil {
		t.Fatalf("Incremental train failed: %v", err)
	}
	moved, _ := l.Means(context.Background(), model.Batch{IDs: []string{"aaaa"}})
	if moved[0] <= base[0] {
		t.Errorf("Expected prediction to move up after incremental fit: %f -> %f", base[0], moved[0])
	}

	// Full retrain on the original targets comes back near the baseline.
	if err := l.Train(context.Background(), trainIDs, trainYs, nil, true); err != nil {
		t.Fatalf("Retrain failed: %v", err)
	}
	back, _ := l.Means(context.Background(), model.Batch{IDs: []string{"aaaa"}})
	if math.Abs(back[0]-base[0]) > 1.0 {
		t.Errorf("Expected retrain to discard incremental state: %f vs %f", back[0], base[0])
	}
}

func TestLinearRejectsFeatureBatch(t *testing.T) {
	l := trainedLinear(t)
	_, err := l.Means(context.Background(), model.Batch{Feats: [][]float64{{1, 2}}})
	if err == nil {
		t.Fatal("Expected error for feature batch, got nil")
	}
}
