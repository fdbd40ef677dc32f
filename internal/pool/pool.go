// internal/pool/pool.go

// Package pool exposes a candidate library stored as a CSV (or gzipped CSV)
// file of input identifiers. The file is never held in memory: every
// traversal re-reads it lazily, so the same pool can be streamed through
// inference any number of times.
package pool

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

// Pool is a re-iterable, lazily read candidate library.
type Pool struct {
	path   string
	sep    rune
	idCol  int
	header bool
	size   int

	err error
}

// Option configures a Pool at open time.
type Option func(*Pool)

// WithDelimiter sets the CSV field delimiter (default ',').
func WithDelimiter(sep rune) Option {
	return func(p *Pool) { p.sep = sep }
}

// WithIDColumn sets the zero-based column holding the identifier.
func WithIDColumn(col int) Option {
	return func(p *Pool) {
		if col >= 0 {
			p.idCol = col
		}
	}
}

// WithoutHeader treats the first row as data rather than a title line.
func WithoutHeader() Option {
	return func(p *Pool) { p.header = false }
}

// Open validates the library file and counts its records so that inference
// over the pool can estimate batch counts for progress display.
func Open(path string, opts ...Option) (*Pool, error) {
	p := &Pool{
		path:   path,
		sep:    ',',
		idCol:  0,
		header: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	n := 0
	err := p.scan(func(string) bool {
		n++
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("pool: reading %s: %w", path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("pool: %s contains no records", path)
	}
	p.size = n
	return p, nil
}

// Size returns the total number of identifiers in the pool.
func (p *Pool) Size() int { return p.size }

// Err returns the error, if any, that cut short the most recent traversal.
func (p *Pool) Err() error { return p.err }

// IDs returns a lazy stream over all identifiers, in file order. The stream
// may be traversed repeatedly; each traversal re-reads the file.
func (p *Pool) IDs() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.err = p.scan(yield)
	}
}

// Features returns a lazy stream of feature representations, positionally
// aligned with IDs.
func (p *Pool) Features(featurize model.Featurizer) iter.Seq[[]float64] {
	return func(yield func([]float64) bool) {
		p.err = p.scan(func(id string) bool {
			return yield(featurize(id))
		})
	}
}

// FeatureBatches returns a lazy pre-batched feature stream with batches of
// the given size, the last possibly short.
func (p *Pool) FeatureBatches(featurize model.Featurizer, size int) iter.Seq[[][]float64] {
	return model.Batched(p.Features(featurize), size)
}

// scan walks the file once, invoking fn per identifier until fn returns
// false or the file ends.
func (p *Pool) scan(fn func(id string) bool) error {
	f, err := os.Open(p.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(p.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		rd = gz
	}

	cr := csv.NewReader(rd)
	cr.Comma = p.sep
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if first && p.header {
			first = false
			continue
		}
		first = false
		if p.idCol >= len(rec) {
			return fmt.Errorf("record has %d fields, identifier column is %d", len(rec), p.idCol)
		}
		if !fn(rec[p.idCol]) {
			return nil
		}
	}
}
