// internal/explore/campaign.go
package explore

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/SyedDaiam9101/prospect/internal/acquire"
)

// Campaign holds the parameters of one exploration run.
type Campaign struct {
	// Name labels the run in logs and the ledger.
	Name string `yaml:"name"`
	// InitSize is the number of randomly drawn candidates measured before
	// any model exists.
	InitSize int `yaml:"init_size"`
	// BatchSize is the number of candidates acquired per iteration.
	BatchSize int `yaml:"batch_size"`
	// MaxIters bounds the number of acquisition iterations after the
	// initial batch.
	MaxIters int `yaml:"max_iters"`
	// Patience stops the run after this many iterations without the best
	// score improving by at least Delta. 0 disables early stopping.
	Patience int     `yaml:"patience"`
	Delta    float64 `yaml:"delta"`
	// Metric names the acquisition metric: greedy, ucb, ei, pi, thompson,
	// random.
	Metric string  `yaml:"metric"`
	Beta   float64 `yaml:"beta"`
	Xi     float64 `yaml:"xi"`
	// Seed fixes all run randomness.
	Seed uint64 `yaml:"seed"`
	// Retrain forces a full refit each iteration instead of incremental
	// fitting.
	Retrain bool `yaml:"retrain"`
	// TopK, when > 0, reports recall of the truth table's top K after the
	// run.
	TopK int `yaml:"top_k"`
}

// DefaultCampaign returns a small greedy campaign.
func DefaultCampaign() Campaign {
	return Campaign{
		Name:      "prospect",
		InitSize:  10,
		BatchSize: 10,
		MaxIters:  10,
		Metric:    "greedy",
		Beta:      2,
		Seed:      42,
	}
}

// LoadCampaign reads a campaign YAML file over the defaults.
func LoadCampaign(path string) (Campaign, error) {
	c := DefaultCampaign()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("campaign: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("campaign: parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the campaign parameters.
func (c *Campaign) Validate() error {
	if c.InitSize <= 0 {
		return fmt.Errorf("campaign: init_size must be positive, got %d", c.InitSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("campaign: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxIters < 0 {
		return fmt.Errorf("campaign: max_iters must be non-negative, got %d", c.MaxIters)
	}
	if c.Patience < 0 {
		return fmt.Errorf("campaign: patience must be non-negative, got %d", c.Patience)
	}
	if _, err := acquire.ParseMetric(c.Metric); err != nil {
		return err
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	RunID      string              `json:"run_id"`
	Campaign   string              `json:"campaign"`
	Metric     string              `json:"metric"`
	Iterations int                 `json:"iterations"`
	Explored   int                 `json:"explored"`
	Best       float64             `json:"best"`
	BestID     string              `json:"best_id"`
	TopKRecall float64             `json:"top_k_recall,omitempty"`
	Top        []acquire.Candidate `json:"top,omitempty"`
}

// Write stores the result as indented JSON.
func (r *Result) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("result: %w", err)
	}
	return nil
}
