// internal/backend/onnx/onnx.go

// Package onnx serves predictions from a pretrained ONNX graph. The graph
// must expose one "features" input of shape [batch, dim] and a "mean" output;
// an optional "var" output adds variance capability. The backend is
// inference-only: Train always fails.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

const (
	inputName    = "features"
	meanOutput   = "mean"
	varOutput    = "var"
	defaultBatch = 256
)

// ErrNotTrainable is returned from Train: ONNX graphs carry frozen weights.
var ErrNotTrainable = errors.New("onnx: model is inference-only")

// Model wraps an ONNX runtime session for thread-safe batched inference.
type Model struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	featDim   int64
	batchSize int
	caps      model.Capabilities
	outputs   []string
}

// Option configures a Model at construction.
type Option func(*Model)

// WithBatchSize sets the inference micro-batch size.
func WithBatchSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// New loads the ONNX model at modelPath. The capability set is decided by
// probing the graph's outputs: a "mean" output alone provides means, a "var"
// output alongside it adds vars.
func New(modelPath string, opts ...Option) (*Model, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect ONNX model: %w", err)
	}
	if len(inputs) != 1 || inputs[0].Name != inputName {
		return nil, fmt.Errorf("onnx: expected a single %q input, got %d inputs", inputName, len(inputs))
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected input shape [batch, dim], got %v", dims)
	}

	m := &Model{
		featDim:   dims[1],
		batchSize: defaultBatch,
		caps:      model.CapMeans,
		outputs:   []string{meanOutput},
	}
	hasMean := false
	for _, out := range outputs {
		switch out.Name {
		case meanOutput:
			hasMean = true
		case varOutput:
			m.caps |= model.CapVars
			m.outputs = append(m.outputs, varOutput)
		}
	}
	if !hasMean {
		return nil, fmt.Errorf("onnx: model has no %q output", meanOutput)
	}
	for _, opt := range opts {
		opt(m)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		m.outputs,
		nil, // default session options
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	m.session = session
	return m, nil
}

func (m *Model) Provides() model.Capabilities { return m.caps }
func (m *Model) Arch() model.Arch             { return model.ArchFeatures }
func (m *Model) TestBatchSize() int           { return m.batchSize }

// Train always fails: the graph's weights are frozen at export time.
func (m *Model) Train(context.Context, []string, []float64, model.Featurizer, bool) error {
	return ErrNotTrainable
}

// Means runs the graph over the batch and returns the mean output.
func (m *Model) Means(_ context.Context, b model.Batch) ([]float64, error) {
	means, _, err := m.run(b, false)
	return means, err
}

// MeansAndVars runs the graph over the batch and returns the mean and var
// outputs. Fails when the graph has no var output.
func (m *Model) MeansAndVars(_ context.Context, b model.Batch) ([]float64, []float64, error) {
	if !m.caps.Has(model.CapVars) {
		return nil, nil, fmt.Errorf("onnx: model graph has no %q output", varOutput)
	}
	return m.run(b, true)
}

func (m *Model) run(b model.Batch, withVars bool) ([]float64, []float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, nil, fmt.Errorf("onnx: session is closed")
	}
	if b.IDs != nil {
		return nil, nil, fmt.Errorf("onnx: identifier batch passed to feature architecture")
	}

	batch := int64(len(b.Feats))
	if batch == 0 {
		return nil, nil, fmt.Errorf("onnx: empty feature batch")
	}

	// Pack the batch into a single [batch, dim] tensor.
	tensorData := make([]float32, 0, batch*m.featDim)
	for i, x := range b.Feats {
		if int64(len(x)) != m.featDim {
			return nil, nil, fmt.Errorf("onnx: input %d has wrong size: got %d, expected %d", i, len(x), m.featDim)
		}
		for _, v := range x {
			tensorData = append(tensorData, float32(v))
		}
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(batch, m.featDim), tensorData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outTensors := make([]ort.ArbitraryTensor, len(m.outputs))
	for i := range m.outputs {
		t, err := ort.NewTensor(ort.NewShape(batch), make([]float32, batch))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output tensor: %w", err)
		}
		defer t.Destroy()
		outTensors[i] = t
	}

	if err := m.session.Run([]ort.ArbitraryTensor{inputTensor}, outTensors); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}

	means := toFloat64(outTensors[0].(*ort.Tensor[float32]).GetData())
	if !withVars {
		return means, nil, nil
	}
	vars := toFloat64(outTensors[1].(*ort.Tensor[float32]).GetData())
	return means, vars, nil
}

// Close releases the ONNX session resources.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		err := m.session.Destroy()
		m.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return ort.DestroyEnvironment()
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}

// Ensure Model implements model.Model at compile time
var _ model.Model = (*Model)(nil)
