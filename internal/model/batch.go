// internal/model/batch.go
package model

import "iter"

// Batched groups a lazy stream into consecutive, non-overlapping batches of
// size n, preserving order. The final batch may be shorter than n. The input
// is never materialized ahead of consumption.
func Batched[T any](seq iter.Seq[T], n int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		batch := make([]T, 0, n)
		for v := range seq {
			batch = append(batch, v)
			if len(batch) == n {
				if !yield(batch) {
					return
				}
				batch = make([]T, 0, n)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// Progress describes one completed inference batch. Total is the estimated
// number of batches, 0 when the input length is unknown; the estimate never
// affects iteration, only display.
type Progress struct {
	Batch int
	Total int
	Unit  string
}

// ProgressFunc observes iteration progress. It is invoked once per completed
// batch and must not influence computed results.
type ProgressFunc func(Progress)
