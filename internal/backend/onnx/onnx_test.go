// internal/backend/onnx/onnx_test.go
package onnx

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

func TestModelWithGraph(t *testing.T) {
	// Skip if an ONNX graph or the shared library is not available.
	modelPath := "testdata/regressor.onnx"
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("Skipping: testdata/regressor.onnx not found")
	}

	m, err := New(modelPath)
	if err != nil {
		t.Skipf("Skipping: %v", err)
	}
	defer m.Close()

	if !m.Provides().Has(model.CapMeans) {
		t.Errorf("Expected at least means capability, got %s", m.Provides())
	}
	if m.Arch() != model.ArchFeatures {
		t.Errorf("Expected feature architecture, got %s", m.Arch())
	}

	feats := make([][]float64, 3)
	for i := range feats {
		feats[i] = make([]float64, m.featDim)
	}

	means, err := m.Means(context.Background(), model.Batch{Feats: feats})
	if err != nil {
		t.Fatalf("Means failed: %v", err)
	}
	if len(means) != 3 {
		t.Errorf("Expected 3 means, got %d", len(means))
	}
}

func TestModelIsNotTrainable(t *testing.T) {
	m := &Model{}
	err := m.Train(context.Background(), []string{"a"}, []float64{1}, nil, false)
	if !errors.Is(err, ErrNotTrainable) {
		t.Fatalf("Expected ErrNotTrainable, got %v", err)
	}
}

func TestModelClosedSession(t *testing.T) {
	m := &Model{featDim: 2, batchSize: 4, caps: model.CapMeans}
	_, err := m.Means(context.Background(), model.Batch{Feats: [][]float64{{1, 2}}})
	if err == nil {
		t.Fatal("Expected error from closed session, got nil")
	}
}

func TestModelVarsRequireVarOutput(t *testing.T) {
	m := &Model{featDim: 2, batchSize: 4, caps: model.CapMeans}
	_, _, err := m.MeansAndVars(context.Background(), model.Batch{Feats: [][]float64{{1, 2}}})
	if err == nil {
		t.Fatal("Expected error for missing var output, got nil")
	}
}
