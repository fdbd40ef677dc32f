// internal/service/dto.go
package service

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// TrainRequest carries labeled observations for a model fit.
type TrainRequest struct {
	IDs     []string  `json:"ids"`
	Scores  []float64 `json:"scores"`
	Retrain bool      `json:"retrain,omitempty"`
}

// TrainResponse reports a completed fit.
type TrainResponse struct {
	Trained    int     `json:"trained"`
	DurationMs float64 `json:"duration_ms"`
}

// PredictRequest asks for predictions over identifiers or raw feature
// vectors. Exactly one of IDs and Features must be set.
type PredictRequest struct {
	IDs      []string    `json:"ids,omitempty"`
	Features [][]float64 `json:"features,omitempty"`
	WithVars bool        `json:"with_vars,omitempty"`
}

// PredictResponse carries predictions aligned with the request order.
type PredictResponse struct {
	Means []float64 `json:"means"`
	Vars  []float64 `json:"vars,omitempty"`
	// Cached counts predictions served from the cache rather than the model.
	Cached int `json:"cached,omitempty"`
}

// HealthResponse is the body of the health and readiness endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}
