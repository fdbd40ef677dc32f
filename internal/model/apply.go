// internal/model/apply.go
package model

import (
	"context"
	"fmt"
	"iter"
)

// ApplyInput carries the streams and hints for one Apply call.
//
// IDs and Features are positionally aligned views of the same inputs;
// Batches is a pre-batched alternative to Features, used when BatchedSize is
// set. All streams are finite and lazy.
type ApplyInput struct {
	// IDs is the identifier stream. Identifier-consuming models traverse it;
	// all other inputs are ignored for them.
	IDs iter.Seq[string]

	// Features is the feature stream, one vector per input, aligned with IDs.
	Features iter.Seq[[]float64]

	// Batches is a stream of already-formed feature batches. Consulted only
	// when BatchedSize > 0.
	Batches iter.Seq[[][]float64]

	// BatchedSize, when > 0, asserts that Batches yields fixed-size batches
	// of this size and that the driver must not re-batch. Ignored for
	// identifier-consuming models.
	BatchedSize int

	// Total is the total number of individual inputs when known, 0 otherwise.
	// Used only to estimate a batch count for progress reporting.
	Total int

	// WithVars selects the mean+variance prediction path; the default is
	// mean-only.
	WithVars bool

	// Progress, when non-nil, is invoked once per completed batch.
	Progress ProgressFunc
}

// Apply runs batched inference over a stream of inputs.
//
// Identifier-consuming models traverse in.IDs grouped into batches of
// m.TestBatchSize(), overriding any BatchedSize hint. Other models traverse
// in.Batches exactly as supplied when BatchedSize is set, else in.Features
// grouped by m.TestBatchSize().
//
// The returned means have one entry per input consumed, in original order.
// vars is empty unless in.WithVars, in which case it is the same length as
// means and index-aligned. The first failing prediction call aborts the run
// immediately with no partial results and no retry. Iteration is sequential;
// ctx is passed through to backend calls but not polled between batches.
func Apply(ctx context.Context, m Model, in ApplyInput) (means, vars []float64, err error) {
	size := m.TestBatchSize()
	if size <= 0 {
		return nil, nil, fmt.Errorf("model: invalid test batch size %d", size)
	}

	var stream iter.Seq[Batch]
	effective := size
	switch {
	case m.Arch().ConsumesIdentifiers():
		// Sequence models predict directly on the identifier; a caller's
		// pre-batching hint applies to features and is ignored here.
		if in.IDs == nil {
			return nil, nil, fmt.Errorf("model: identifier stream required for %s architecture", m.Arch())
		}
		stream = idBatches(in.IDs, size)
	case in.BatchedSize > 0:
		if in.Batches == nil {
			return nil, nil, fmt.Errorf("model: batched size %d set but no batch stream supplied", in.BatchedSize)
		}
		effective = in.BatchedSize
		stream = featBatches(in.Batches)
	default:
		if in.Features == nil {
			return nil, nil, fmt.Errorf("model: feature stream required for %s architecture", m.Arch())
		}
		stream = rebatched(in.Features, size)
	}

	total := 0
	if in.Total > 0 {
		total = in.Total/effective + 1
	}

	means = []float64{}
	if in.WithVars {
		vars = []float64{}
	}

	n := 0
	for b := range stream {
		n++
		if in.WithVars {
			bm, bv, err := m.MeansAndVars(ctx, b)
			if err != nil {
				return nil, nil, fmt.Errorf("batch %d: %w", n, err)
			}
			if len(bm) != b.Len() || len(bv) != b.Len() {
				return nil, nil, fmt.Errorf("batch %d: got %d means, %d vars for %d inputs: %w",
					n, len(bm), len(bv), b.Len(), ErrContract)
			}
			means = append(means, bm...)
			vars = append(vars, bv...)
		} else {
			bm, err := m.Means(ctx, b)
			if err != nil {
				return nil, nil, fmt.Errorf("batch %d: %w", n, err)
			}
			if len(bm) != b.Len() {
				return nil, nil, fmt.Errorf("batch %d: got %d means for %d inputs: %w",
					n, len(bm), b.Len(), ErrContract)
			}
			means = append(means, bm...)
		}
		if in.Progress != nil {
			in.Progress(Progress{Batch: n, Total: total, Unit: "batch"})
		}
	}

	return means, vars, nil
}

func idBatches(ids iter.Seq[string], size int) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for b := range Batched(ids, size) {
			if !yield(Batch{IDs: b}) {
				return
			}
		}
	}
}

func rebatched(feats iter.Seq[[]float64], size int) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for b := range Batched(feats, size) {
			if !yield(Batch{Feats: b}) {
				return
			}
		}
	}
}

func featBatches(batches iter.Seq[[][]float64]) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for b := range batches {
			if !yield(Batch{Feats: b}) {
				return
			}
		}
	}
}
