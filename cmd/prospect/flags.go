// cmd/prospect/flags.go
package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/SyedDaiam9101/prospect/internal/backend/ensemble"
	"github.com/SyedDaiam9101/prospect/internal/backend/gp"
	"github.com/SyedDaiam9101/prospect/internal/backend/onnx"
	"github.com/SyedDaiam9101/prospect/internal/backend/seq"
	"github.com/SyedDaiam9101/prospect/internal/featurize"
	"github.com/SyedDaiam9101/prospect/internal/logging"
	"github.com/SyedDaiam9101/prospect/internal/model"
)

var (
	modelName    string
	modelPath    string
	batchSize    int64
	dropout      float64
	ensembleSize int64
	fpBits       int64
	fpRadius     int64
	logLevel     string
	logFormat    string
	logFile      string
)

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "surrogate model (gp, seq, ensemble, onnx)",
			Value:       "seq",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "model-path",
			Usage:       "path to ONNX graph (onnx model only)",
			Destination: &modelPath,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Usage:       "inference micro-batch size (0 = backend default)",
			Destination: &batchSize,
		},
		&cli.Float64Flag{
			Name:        "dropout",
			Usage:       "inference dropout rate (seq model only)",
			Destination: &dropout,
		},
		&cli.Int64Flag{
			Name:        "ensemble-size",
			Usage:       "number of ensemble members",
			Value:       5,
			Destination: &ensembleSize,
		},
		&cli.Int64Flag{
			Name:        "fingerprint-bits",
			Usage:       "fingerprint length",
			Value:       2048,
			Destination: &fpBits,
		},
		&cli.Int64Flag{
			Name:        "fingerprint-radius",
			Usage:       "fingerprint substring radius",
			Value:       3,
			Destination: &fpRadius,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "also write logs to this file (rotated)",
			Destination: &logFile,
		},
	}
}

func setupLogging() {
	logging.Setup(logging.Options{
		Level:  logLevel,
		Format: logFormat,
		File:   logFile,
	})
}

// newModel builds the surrogate selected by name. The returned featurizer is
// nil for models that consume identifiers directly.
func newModel(name, path string, batch int, drop float64, members, bits, radius int, seed uint64) (model.Model, model.Featurizer, error) {
	feat := featurize.New(featurize.Config{
		Bits:   bits,
		Radius: radius,
	})

	switch name {
	case "gp":
		return gp.New(gp.WithBatchSize(batch)), feat, nil

	case "seq":
		return seq.New(
			seq.WithBatchSize(batch),
			seq.WithDropout(drop, seed),
		), nil, nil

	case "ensemble":
		m := ensemble.New(
			func() model.Model { return gp.New(gp.WithBatchSize(batch)) },
			ensemble.WithSize(members),
			ensemble.WithSeed(seed),
		)
		return m, feat, nil

	case "onnx":
		if path == "" {
			return nil, nil, fmt.Errorf("onnx model requires --model-path")
		}
		m, err := onnx.New(path, onnx.WithBatchSize(batch))
		if err != nil {
			return nil, nil, err
		}
		return m, feat, nil

	default:
		return nil, nil, fmt.Errorf("unknown model %q (want gp, seq, ensemble or onnx)", name)
	}
}
