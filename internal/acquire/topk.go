// internal/acquire/topk.go
package acquire

import "github.com/google/btree"

// Candidate is an identifier with its acquisition score.
type Candidate struct {
	ID    string
	Score float64
}

func lessCandidate(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID < b.ID
}

// TopK is a bounded leaderboard: it retains the k highest-scoring candidates
// seen, skipping excluded identifiers. Memory stays O(k) regardless of how
// many candidates stream through.
type TopK struct {
	k       int
	tree    *btree.BTreeG[Candidate]
	exclude map[string]struct{}
}

// NewTopK returns an empty leaderboard of capacity k.
func NewTopK(k int) *TopK {
	return &TopK{
		k:       k,
		tree:    btree.NewG(16, lessCandidate),
		exclude: make(map[string]struct{}),
	}
}

// Exclude marks identifiers to be ignored by Add, typically those already
// measured.
func (t *TopK) Exclude(ids ...string) {
	for _, id := range ids {
		t.exclude[id] = struct{}{}
	}
}

// Add offers a candidate to the leaderboard.
func (t *TopK) Add(id string, score float64) {
	if t.k <= 0 {
		return
	}
	if _, skip := t.exclude[id]; skip {
		return
	}
	c := Candidate{ID: id, Score: score}
	if t.tree.Len() >= t.k {
		if min, ok := t.tree.Min(); ok && !lessCandidate(min, c) {
			return
		}
	}
	t.tree.ReplaceOrInsert(c)
	if t.tree.Len() > t.k {
		t.tree.DeleteMin()
	}
}

// Len returns the number of retained candidates.
func (t *TopK) Len() int { return t.tree.Len() }

// Candidates returns the retained candidates in descending score order.
func (t *TopK) Candidates() []Candidate {
	out := make([]Candidate, 0, t.tree.Len())
	t.tree.Descend(func(c Candidate) bool {
		out = append(out, c)
		return true
	})
	return out
}

// IDs returns the retained identifiers in descending score order.
func (t *TopK) IDs() []string {
	cs := t.Candidates()
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}
