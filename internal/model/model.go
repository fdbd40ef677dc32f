// internal/model/model.go

// Package model defines the contract every predictive backend must satisfy
// and the shared batched-inference driver built on top of it. An exploration
// loop trains, queries, and ranks candidates purely through this interface
// without knowing which architecture sits behind it.
package model

import (
	"context"
	"strings"
)

// Capabilities is the set of prediction capabilities a model declares at
// construction. The set is fixed for the lifetime of an instance.
type Capabilities uint8

const (
	// CapMeans means the model reports a point prediction per input.
	CapMeans Capabilities = 1 << iota
	// CapVars means the model additionally reports a predictive variance.
	CapVars
	// CapStochastic means repeated prediction calls for identical input may
	// yield different outputs (e.g. dropout-based uncertainty).
	CapStochastic
)

// Has reports whether c includes every capability in want.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

func (c Capabilities) String() string {
	var tags []string
	if c.Has(CapMeans) {
		tags = append(tags, "means")
	}
	if c.Has(CapVars) {
		tags = append(tags, "vars")
	}
	if c.Has(CapStochastic) {
		tags = append(tags, "stochastic")
	}
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, "|")
}

// Arch identifies the model family, fixed at construction. The only property
// the driver cares about is whether the family predicts directly on input
// identifiers or on precomputed feature vectors.
type Arch uint8

const (
	// ArchFeatures predicts on precomputed feature vectors.
	ArchFeatures Arch = iota
	// ArchSequence predicts directly on raw input identifiers; feature
	// representations are never required for inference.
	ArchSequence
)

// ConsumesIdentifiers reports whether the architecture consumes raw input
// identifiers instead of feature vectors.
func (a Arch) ConsumesIdentifiers() bool {
	return a == ArchSequence
}

func (a Arch) String() string {
	switch a {
	case ArchFeatures:
		return "features"
	case ArchSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Featurizer maps one input identifier to its feature representation. It must
// be pure: same identifier, same features, no side effects.
type Featurizer func(id string) []float64

// Batch is one inference micro-batch. Exactly one side is populated,
// according to the model's Arch: IDs for identifier-consuming models,
// Feats for feature-consuming ones.
type Batch struct {
	IDs   []string
	Feats [][]float64
}

// Len returns the number of inputs in the batch.
func (b Batch) Len() int {
	if b.IDs != nil {
		return len(b.IDs)
	}
	return len(b.Feats)
}

// Model is the capability surface a backend exposes to the exploration loop.
// Provides, Arch, and TestBatchSize are pure accessors, fixed for the
// instance's lifetime; TestBatchSize is always > 0.
//
// The contract deliberately does not tie Provides to which prediction method
// may be called: a backend lacking CapVars may still implement MeansAndVars
// however it sees fit (constant variance, an error). Callers that care
// should check Provides themselves.
type Model interface {
	// Provides returns the capability set declared at construction.
	Provides() Capabilities

	// Arch returns the architecture family tag.
	Arch() Arch

	// TestBatchSize returns the micro-batch size used when the caller does
	// not pre-batch inputs.
	TestBatchSize() int

	// Train fits the model on ids and their index-aligned regression targets
	// ys. The backend decides when and whether to invoke featurize;
	// identifier-consuming architectures may skip it entirely. retrain=true
	// discards any existing trained state and fits from scratch; false
	// permits incremental fitting where the backend supports it. On failure
	// the previous trained state is left intact.
	Train(ctx context.Context, ids []string, ys []float64, featurize Featurizer, retrain bool) error

	// Means returns the point prediction for each input in b, index-aligned,
	// length b.Len(). Required of every model.
	Means(ctx context.Context, b Batch) ([]float64, error)

	// MeansAndVars returns point predictions and predictive variances, both
	// index-aligned with b and of length b.Len(). Only meaningful when the
	// model provides CapVars.
	MeansAndVars(ctx context.Context, b Batch) ([]float64, []float64, error)
}
