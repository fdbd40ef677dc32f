// internal/objective/objective.go

// Package objective provides the lookup objective used by the exploration
// loop: a truth table of identifier to score, loaded once from CSV. Scores
// are negated on load when the objective is to be minimized, so callers
// always maximize.
package objective

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Lookup measures candidates against a preloaded truth table.
type Lookup struct {
	scores   map[string]float64
	minimize bool
}

// Option configures a Lookup at load time.
type Option func(*Lookup)

// Minimize negates scores on load so a maximizing caller seeks the minimum.
func Minimize() Option {
	return func(l *Lookup) { l.minimize = true }
}

// NewLookup loads a truth CSV of identifier,score rows, skipping a title
// line when present (detected by an unparseable score field).
func NewLookup(path string, opts ...Option) (*Lookup, error) {
	l := &Lookup{scores: make(map[string]float64)}
	for _, opt := range opts {
		opt(l)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objective: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("objective: reading %s: %w", path, err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("objective: %s line %d: want identifier,score", path, line)
		}
		score, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			if line == 1 {
				continue // title line
			}
			return nil, fmt.Errorf("objective: %s line %d: %w", path, line, err)
		}
		if l.minimize {
			score = -score
		}
		l.scores[rec[0]] = score
	}

	if len(l.scores) == 0 {
		return nil, fmt.Errorf("objective: %s contains no scores", path)
	}
	return l, nil
}

// Size returns the number of entries in the truth table.
func (l *Lookup) Size() int { return len(l.scores) }

// Measure scores the given identifiers. Unknown identifiers are returned
// separately rather than failing the whole batch.
func (l *Lookup) Measure(ids []string) (scores map[string]float64, unknown []string) {
	scores = make(map[string]float64, len(ids))
	for _, id := range ids {
		if s, ok := l.scores[id]; ok {
			scores[id] = s
		} else {
			unknown = append(unknown, id)
		}
	}
	return scores, unknown
}

// Top returns the k best identifiers in the truth table, used to report
// recall of an exploration run against the full library.
func (l *Lookup) Top(k int) []string {
	type entry struct {
		id    string
		score float64
	}
	all := make([]entry, 0, len(l.scores))
	for id, s := range l.scores {
		all = append(all, entry{id, s})
	}
	// insertion-sort the top k; the table is read once per run
	top := make([]entry, 0, k)
	for _, e := range all {
		i := len(top)
		for i > 0 && (top[i-1].score < e.score || (top[i-1].score == e.score && top[i-1].id > e.id)) {
			i--
		}
		if i < k {
			top = append(top, entry{})
			copy(top[i+1:], top[i:])
			top[i] = e
			if len(top) > k {
				top = top[:k]
			}
		}
	}
	ids := make([]string, len(top))
	for i, e := range top {
		ids[i] = e.id
	}
	return ids
}
