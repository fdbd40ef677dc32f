// internal/featurize/featurize.go

// Package featurize turns input identifiers into fixed-length hashed
// fingerprints for feature-consuming backends.
package featurize

import (
	"github.com/cespare/xxhash/v2"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

const (
	// DefaultBits is the fingerprint length.
	DefaultBits = 2048
	// DefaultRadius is the longest substring hashed into the fingerprint.
	DefaultRadius = 3
)

// Config controls fingerprint generation.
type Config struct {
	// Bits is the number of hash buckets, i.e. the feature vector length.
	Bits int
	// Radius is the maximum substring length folded into the fingerprint;
	// every substring of length 1..Radius contributes one hash.
	Radius int
	// Counts keeps per-bucket occurrence counts instead of clipping to 0/1.
	Counts bool
}

// New returns a pure, deterministic Featurizer: every substring of the
// identifier up to Radius characters is hashed into one of Bits buckets.
// Zero-valued config fields fall back to the package defaults.
func New(cfg Config) model.Featurizer {
	bits := cfg.Bits
	if bits <= 0 {
		bits = DefaultBits
	}
	radius := cfg.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}

	return func(id string) []float64 {
		fp := make([]float64, bits)
		for n := 1; n <= radius; n++ {
			for i := 0; i+n <= len(id); i++ {
				bucket := xxhash.Sum64String(id[i:i+n]) % uint64(bits)
				if cfg.Counts {
					fp[bucket]++
				} else {
					fp[bucket] = 1
				}
			}
		}
		return fp
	}
}
