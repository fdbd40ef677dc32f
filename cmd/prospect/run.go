// cmd/prospect/run.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/SyedDaiam9101/prospect/internal/cache"
	"github.com/SyedDaiam9101/prospect/internal/explore"
	"github.com/SyedDaiam9101/prospect/internal/ledger"
	"github.com/SyedDaiam9101/prospect/internal/objective"
	"github.com/SyedDaiam9101/prospect/internal/pool"
)

func runCmd() *cli.Command {
	var (
		libraryPath   string
		objectivePath string
		minimize      bool
		noHeader      bool
		campaignPath  string
		metric        string
		initSize      int64
		acquireSize   int64
		maxIters      int64
		topK          int64
		seed          int64
		outPath       string
		ledgerPath    string
		redisAddr     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "library",
			Aliases:     []string{"l"},
			Usage:       "candidate library CSV (plain or gzipped)",
			Required:    true,
			Destination: &libraryPath,
		},
		&cli.StringFlag{
			Name:        "objective",
			Aliases:     []string{"o"},
			Usage:       "objective lookup CSV (id,score)",
			Required:    true,
			Destination: &objectivePath,
		},
		&cli.BoolFlag{
			Name:        "minimize",
			Usage:       "minimize the objective instead of maximizing",
			Destination: &minimize,
		},
		&cli.BoolFlag{
			Name:        "no-header",
			Usage:       "library CSV has no header row",
			Destination: &noHeader,
		},
		&cli.StringFlag{
			Name:        "campaign",
			Aliases:     []string{"c"},
			Usage:       "campaign YAML file",
			Destination: &campaignPath,
		},
		&cli.StringFlag{
			Name:        "metric",
			Usage:       "acquisition metric (greedy, ucb, ei, pi, thompson, random)",
			Destination: &metric,
		},
		&cli.Int64Flag{
			Name:        "init-size",
			Usage:       "size of the random initial batch",
			Destination: &initSize,
		},
		&cli.Int64Flag{
			Name:        "acquire-size",
			Usage:       "candidates acquired per iteration",
			Destination: &acquireSize,
		},
		&cli.Int64Flag{
			Name:        "iters",
			Usage:       "acquisition iteration budget",
			Destination: &maxIters,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "report recall of the objective's top K",
			Destination: &topK,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed",
			Destination: &seed,
		},
		&cli.StringFlag{
			Name:        "out",
			Usage:       "write the run result to this JSON file",
			Destination: &outPath,
		},
		&cli.StringFlag{
			Name:        "ledger",
			Usage:       "record observations in this SQLite file",
			Destination: &ledgerPath,
		},
		&cli.StringFlag{
			Name:        "redis",
			Usage:       "store pool predictions in this Redis instance",
			Destination: &redisAddr,
		},
	}
	flags = append(flags, modelFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Run an exploration campaign over a candidate library",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging()

			cfg := explore.DefaultCampaign()
			if campaignPath != "" {
				var err error
				cfg, err = explore.LoadCampaign(campaignPath)
				if err != nil {
					return err
				}
			}
			if cmd.IsSet("metric") {
				cfg.Metric = metric
			}
			if cmd.IsSet("init-size") {
				cfg.InitSize = int(initSize)
			}
			if cmd.IsSet("acquire-size") {
				cfg.BatchSize = int(acquireSize)
			}
			if cmd.IsSet("iters") {
				cfg.MaxIters = int(maxIters)
			}
			if cmd.IsSet("top-k") {
				cfg.TopK = int(topK)
			}
			if cmd.IsSet("seed") {
				cfg.Seed = uint64(seed)
			}

			var poolOpts []pool.Option
			if noHeader {
				poolOpts = append(poolOpts, pool.WithoutHeader())
			}
			p, err := pool.Open(libraryPath, poolOpts...)
			if err != nil {
				return err
			}

			var objOpts []objective.Option
			if minimize {
				objOpts = append(objOpts, objective.Minimize())
			}
			obj, err := objective.NewLookup(objectivePath, objOpts...)
			if err != nil {
				return err
			}

			mdl, feat, err := newModel(modelName, modelPath,
				int(batchSize), dropout, int(ensembleSize),
				int(fpBits), int(fpRadius), cfg.Seed)
			if err != nil {
				return err
			}

			opts := []explore.Option{explore.WithLogger(slog.Default())}
			if ledgerPath != "" {
				led, err := ledger.Open(ledgerPath)
				if err != nil {
					return err
				}
				defer led.Close()
				opts = append(opts, explore.WithLedger(led))
			}
			if redisAddr != "" {
				c, err := cache.New(redisAddr, time.Hour)
				if err != nil {
					return err
				}
				defer c.Close()
				opts = append(opts, explore.WithCache(c))
			}

			e, err := explore.New(cfg, mdl, p, obj, feat, opts...)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := e.Run(runCtx)
			if err != nil {
				return err
			}

			fmt.Printf("run:      %s\n", result.RunID)
			fmt.Printf("explored: %d of %d\n", result.Explored, p.Size())
			fmt.Printf("best:     %g (%s)\n", result.Best, result.BestID)
			if cfg.TopK > 0 {
				fmt.Printf("recall:   %.2f of top %d\n", result.TopKRecall, cfg.TopK)
			}

			if outPath != "" {
				if err := result.Write(outPath); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
