// internal/model/errors.go
package model

import "errors"

var (
	// ErrContract indicates a backend returned results whose length does not
	// match its input batch. Surfaced immediately, never truncated or padded.
	ErrContract = errors.New("model: result length violates contract")

	// ErrTrainInput indicates malformed training inputs, such as identifier
	// and target sequences of different lengths.
	ErrTrainInput = errors.New("model: malformed training input")

	// ErrUntrained indicates a prediction was requested from a backend that
	// requires training and has none.
	ErrUntrained = errors.New("model: not trained")
)
