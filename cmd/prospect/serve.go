// cmd/prospect/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/urfave/cli/v3"

	"github.com/SyedDaiam9101/prospect/internal/cache"
	"github.com/SyedDaiam9101/prospect/internal/config"
	"github.com/SyedDaiam9101/prospect/internal/logging"
	"github.com/SyedDaiam9101/prospect/internal/middleware"
	"github.com/SyedDaiam9101/prospect/internal/service"
	"github.com/SyedDaiam9101/prospect/internal/telemetry"
	"github.com/SyedDaiam9101/prospect/internal/version"
)

func serveCmd() *cli.Command {
	var (
		configPath string
		addr       string
		redisAddr  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config file",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "redis",
			Usage:       "Redis address for the prediction cache",
			Destination: &redisAddr,
		},
	}
	flags = append(flags, modelFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the model over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadServeConfig(cmd, configPath, addr, redisAddr)
			if err != nil {
				return err
			}

			log := logging.Setup(logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				File:   cfg.LogFile,
			})
			log.Info("starting server",
				"version", version.String(), "addr", cfg.Addr,
				"model", cfg.Model, "redis", cfg.Redis)

			if cfg.OTELEnabled {
				shutdown, err := telemetry.Init("prospect", version.Resolve().Version, cfg.OTELEndpoint)
				if err != nil {
					log.Warn("tracer initialization failed", "error", err)
				} else {
					defer func() {
						sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
						defer cancel()
						if err := shutdown(sctx); err != nil {
							log.Warn("tracer shutdown failed", "error", err)
						}
					}()
				}
			}

			mdl, feat, err := newModel(cfg.Model, cfg.ModelPath,
				cfg.TestBatchSize, cfg.Dropout, cfg.EnsembleSize,
				cfg.FingerprintBits, cfg.FingerprintRadius, uint64(time.Now().UnixNano()))
			if err != nil {
				return err
			}
			if closer, ok := mdl.(interface{ Close() error }); ok {
				defer closer.Close()
			}

			opts := []service.Option{service.WithLogger(log)}
			if cfg.Redis != "" {
				c, err := cache.New(cfg.Redis, cfg.CacheTTL)
				if err != nil {
					log.Warn("cache unavailable, continuing without it", "error", err)
				} else {
					defer c.Close()
					opts = append(opts, service.WithCache(c))
				}
			}

			srv := service.New(mdl, feat, opts...)
			if cfg.Model == "onnx" {
				// Frozen graphs serve predictions without a train call.
				srv.SetReady()
			}

			e := echo.New()
			e.Use(middleware.RequestID())
			e.Use(middleware.Metrics())
			srv.Register(e)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("listening", "addr", cfg.Addr)
			sc := echo.StartConfig{Address: cfg.Addr}
			return sc.Start(runCtx, e)
		},
	}
}

// loadServeConfig merges the config file, environment and command line.
// Flags win over the environment, the environment over the file.
func loadServeConfig(cmd *cli.Command, configPath, addr, redisAddr string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadWithConfigFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if addr != "" {
		cfg.Addr = addr
	}
	if redisAddr != "" {
		cfg.Redis = redisAddr
	}
	if cmd.IsSet("model") {
		cfg.Model = modelName
	}
	if cmd.IsSet("model-path") {
		cfg.ModelPath = modelPath
	}
	if cmd.IsSet("batch-size") {
		cfg.TestBatchSize = int(batchSize)
	}
	if cmd.IsSet("dropout") {
		cfg.Dropout = dropout
	}
	if cmd.IsSet("ensemble-size") {
		cfg.EnsembleSize = int(ensembleSize)
	}
	if cmd.IsSet("fingerprint-bits") {
		cfg.FingerprintBits = int(fpBits)
	}
	if cmd.IsSet("fingerprint-radius") {
		cfg.FingerprintRadius = int(fpRadius)
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = logFormat
	}
	if cmd.IsSet("log-file") {
		cfg.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
