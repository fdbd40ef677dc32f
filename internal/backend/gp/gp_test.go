// internal/backend/gp/gp_test.go
package gp

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

// identity featurizer over single-character identifiers "0".."9"
func scalarFeaturizer(id string) []float64 {
	return []float64{float64(id[0] - '0')}
}

func trainedGP(t *testing.T) *GP {
	t.Helper()
	g := New(WithKernel(1.5, 1.0), WithNoise(1e-6))
	ids := []string{"0", "1", "2", "3", "4"}
	ys := []float64{0, 1, 2, 3, 4}
	if err := g.Train(context.Background(), ids, ys, scalarFeaturizer, false); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return g
}

func TestGPCapabilities(t *testing.T) {
	g := New()
	if !g.Provides().Has(model.CapMeans | model.CapVars) {
		t.Errorf("Expected means|vars, got %s", g.Provides())
	}
	if g.Arch() != model.ArchFeatures {
		t.Errorf("Expected feature architecture, got %s", g.Arch())
	}
	if g.TestBatchSize() <= 0 {
		t.Errorf("Expected positive batch size, got %d", g.TestBatchSize())
	}
}

func TestGPUntrained(t *testing.T) {
	g := New()
	_, err := g.Means(context.Background(), model.Batch{Feats: [][]float64{{1}}})
	if !errors.Is(err, model.ErrUntrained) {
		t.Fatalf("Expected ErrUntrained, got %v", err)
	}
	_, _, err = g.MeansAndVars(context.Background(), model.Batch{Feats: [][]float64{{1}}})
	if !errors.Is(err, model.ErrUntrained) {
		t.Fatalf("Expected ErrUntrained, got %v", err)
	}
}

func TestGPTrainInputValidation(t *testing.T) {
	g := New()
	ctx := context.Background()

	err := g.Train(ctx, []string{"0", "1"}, []float64{1}, scalarFeaturizer, false)
	if !errors.Is(err, model.ErrTrainInput) {
		t.Errorf("Expected ErrTrainInput for misaligned inputs, got %v", err)
	}

	err = g.Train(ctx, nil, nil, scalarFeaturizer, false)
	if !errors.Is(err, model.ErrTrainInput) {
		t.Errorf("Expected ErrTrainInput for empty inputs, got %v", err)
	}

	err = g.Train(ctx, []string{"0"}, []float64{1}, nil, false)
	if !errors.Is(err, model.ErrTrainInput) {
		t.Errorf("Expected ErrTrainInput for nil featurizer, got %v", err)
	}
}

func TestGPInterpolatesTrainingPoints(t *testing.T) {
	g := trainedGP(t)

	means, err := g.Means(context.Background(), model.Batch{
		Feats: [][]float64{{0}, {2}, {4}},
	})
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}

	want := []float64{0, 2, 4}
	for i, m := range means {
		if math.Abs(m-want[i]) > 0.05 {
			t.Errorf("means[%d] = %f, expected about %f", i, m, want[i])
		}
	}
}

func TestGPVarianceShrinksAtTrainingPoints(t *testing.T) {
	g := trainedGP(t)

	_, vars, err := g.MeansAndVars(context.Background(), model.Batch{
		Feats: [][]float64{{2}, {50}},
	})
	if err != nil {
		t.Fatalf("MeansAndVars failed: %v", err)
	}

	if vars[0] < 0 || vars[1] < 0 {
		t.Fatalf("Variances must be non-negative, got %v", vars)
	}
	// Variance at a training point must be far below variance far away.
	if vars[0] >= vars[1] {
		t.Errorf("Expected var at training point (%f) below var far away (%f)", vars[0], vars[1])
	}
}

func TestGPOutputLengths(t *testing.T) {
	g := trainedGP(t)

	b := model.Batch{Feats: [][]float64{{0.5}, {1.5}, {2.5}, {3.5}}}
	means, vars, err := g.MeansAndVars(context.Background(), b)
	if err != nil {
		t.Fatalf("MeansAndVars failed: %v", err)
	}
	if len(means) != b.Len() || len(vars) != b.Len() {
		t.Errorf("Expected %d means and vars, got %d and %d", b.Len(), len(means), len(vars))
	}
}

func TestGPFailedTrainPreservesState(t *testing.T) {
	g := trainedGP(t)

	before, err := g.Means(context.Background(), model.Batch{Feats: [][]float64{{1}}})
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}

	// Misaligned refit must fail and leave the old posterior intact.
	if err := g.Train(context.Background(), []string{"7"}, nil, scalarFeaturizer, true); err == nil {
		t.Fatal("Expected training failure, got nil")
	}

	after, err := g.Means(context.Background(), model.Batch{Feats: [][]float64{{1}}})
	if err != nil {
		t.Fatalf("Means after failed train: %v", err)
	}
	if before[0] != after[0] {
		t.Errorf("Trained state changed after failed train: %f != %f", before[0], after[0])
	}
}

func TestGPDimensionMismatch(t *testing.T) {
	g := trainedGP(t)

	_, err := g.Means(context.Background(), model.Batch{Feats: [][]float64{{1, 2, 3}}})
	if err == nil {
		t.Fatal("Expected error for wrong feature length, got nil")
	}
}
