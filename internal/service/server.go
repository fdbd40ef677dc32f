// internal/service/server.go
package service

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/SyedDaiam9101/prospect/internal/cache"
	"github.com/SyedDaiam9101/prospect/internal/metrics"
	"github.com/SyedDaiam9101/prospect/internal/middleware"
	"github.com/SyedDaiam9101/prospect/internal/model"
	"github.com/SyedDaiam9101/prospect/internal/version"
)

// Server exposes a surrogate model over HTTP: a train endpoint that fits it
// on labeled observations and a predict endpoint that runs batched inference.
type Server struct {
	mdl       model.Model
	featurize model.Featurizer
	cache     *cache.Cache
	log       *slog.Logger
	tracer    trace.Tracer

	// mu serializes training against inference. Backends are not safe for
	// concurrent fit and predict.
	mu    sync.RWMutex
	ready atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithCache enables the prediction cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a server around a model. The featurizer is used to embed
// identifiers for feature-consuming architectures and may be nil for
// sequence architectures.
func New(mdl model.Model, featurize model.Featurizer, opts ...Option) *Server {
	s := &Server{
		mdl:       mdl,
		featurize: featurize,
		log:       slog.Default(),
		tracer:    otel.Tracer("prospect/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReady marks the server ready to serve predictions without a prior
// train call. Used for inference-only models loaded at startup.
func (s *Server) SetReady() {
	s.ready.Store(true)
	metrics.SetHealthy()
}

// Register mounts all routes on the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/train", s.handleTrain)
	e.POST("/v1/predict", s.handlePredict)
	e.GET("/healthz", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/version", s.handleVersion)
	e.GET("/metrics", func(c *echo.Context) error {
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

func (s *Server) handleTrain(c *echo.Context) error {
	req, err := decodeJSON[TrainRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "%v", err)
	}
	if len(req.IDs) == 0 {
		return writeBadRequest(c, "ids must not be empty")
	}
	if len(req.IDs) != len(req.Scores) {
		return writeBadRequest(c, "got %d ids but %d scores", len(req.IDs), len(req.Scores))
	}

	ctx, span := s.tracer.Start(c.Request().Context(), "service.train")
	defer span.End()
	requestID := middleware.GetRequestID(ctx)

	s.mu.Lock()
	start := time.Now()
	err = s.mdl.Train(ctx, req.IDs, req.Scores, s.featurize, req.Retrain)
	duration := time.Since(start)
	s.mu.Unlock()
	metrics.RecordTrainDuration(duration.Seconds())

	if err != nil {
		span.RecordError(err)
		s.log.Error("training failed", "request", requestID, "observations", len(req.IDs), "error", err)
		return writeModelError(c, err)
	}
	s.ready.Store(true)
	metrics.SetHealthy()
	s.log.Info("model trained", "request", requestID, "observations", len(req.IDs), "duration", duration)

	return c.JSON(http.StatusOK, TrainResponse{
		Trained:    len(req.IDs),
		DurationMs: float64(duration.Microseconds()) / 1000.0,
	})
}

func (s *Server) handlePredict(c *echo.Context) error {
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "%v", err)
	}
	if len(req.IDs) == 0 && len(req.Features) == 0 {
		return writeBadRequest(c, "one of ids or features is required")
	}
	if len(req.IDs) > 0 && len(req.Features) > 0 {
		return writeBadRequest(c, "ids and features are mutually exclusive")
	}
	if s.mdl.Arch().ConsumesIdentifiers() && len(req.IDs) == 0 {
		return writeBadRequest(c, "%s models predict from ids", s.mdl.Arch())
	}
	if req.WithVars && !s.mdl.Provides().Has(model.CapVars) {
		return writeBadRequest(c, "model provides %s, not variances", s.mdl.Provides())
	}
	if len(req.IDs) > 0 && !s.mdl.Arch().ConsumesIdentifiers() && s.featurize == nil {
		return writeInternal(c, "no featurizer configured for id lookups")
	}

	ctx, span := s.tracer.Start(c.Request().Context(), "service.predict")
	defer span.End()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()
	metrics.RecordInferenceBatch(max(len(req.IDs), len(req.Features)))

	resp, err := s.predict(ctx, &req)
	metrics.RecordInferenceLatency(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		s.log.Error("prediction failed", "request", requestID, "error", err)
		return writeModelError(c, err)
	}

	s.log.Debug("prediction served",
		"request", requestID, "n", len(resp.Means), "cached", resp.Cached,
		"duration", time.Since(start))
	return c.JSON(http.StatusOK, resp)
}

// predict resolves the request against the cache where possible and runs the
// model over whatever remains.
func (s *Server) predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil || len(req.IDs) == 0 {
		means, vars, err := s.apply(ctx, req.IDs, req.Features, req.WithVars)
		if err != nil {
			return nil, err
		}
		return &PredictResponse{Means: means, Vars: vars}, nil
	}

	hits, err := s.cache.GetMany(ctx, req.IDs)
	if err != nil {
		s.log.Warn("cache lookup failed", "error", err)
		hits = nil
	}

	missing := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if _, ok := hits[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		// Always compute variances for cached entries when the model has
		// them, so a later with_vars request can be served from the cache.
		wantVars := req.WithVars || s.mdl.Provides().Has(model.CapVars)
		means, vars, err := s.apply(ctx, missing, nil, wantVars)
		if err != nil {
			return nil, err
		}
		fresh := make(map[string]cache.Prediction, len(missing))
		for i, id := range missing {
			p := cache.Prediction{Mean: means[i]}
			if len(vars) > 0 {
				p.Var = vars[i]
			}
			fresh[id] = p
		}
		if err := s.cache.SetMany(ctx, fresh); err != nil {
			s.log.Warn("cache store failed", "error", err)
		}
		if hits == nil {
			hits = fresh
		} else {
			for id, p := range fresh {
				hits[id] = p
			}
		}
	}

	resp := &PredictResponse{
		Means:  make([]float64, len(req.IDs)),
		Cached: len(req.IDs) - len(missing),
	}
	if req.WithVars {
		resp.Vars = make([]float64, len(req.IDs))
	}
	for i, id := range req.IDs {
		p := hits[id]
		resp.Means[i] = p.Mean
		if req.WithVars {
			resp.Vars[i] = p.Var
		}
	}
	return resp, nil
}

// apply runs the batched inference driver over the request payload.
func (s *Server) apply(ctx context.Context, ids []string, features [][]float64, withVars bool) ([]float64, []float64, error) {
	in := model.ApplyInput{WithVars: withVars}
	switch {
	case len(ids) > 0:
		in.IDs = slices.Values(ids)
		in.Total = len(ids)
		if !s.mdl.Arch().ConsumesIdentifiers() {
			in.Features = func(yield func([]float64) bool) {
				for _, id := range ids {
					if !yield(s.featurize(id)) {
						return
					}
				}
			}
		}
	default:
		in.Features = slices.Values(features)
		in.Total = len(features)
	}
	return model.Apply(ctx, s.mdl, in)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleReady(c *echo.Context) error {
	if !s.ready.Load() {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ready"})
}

func (s *Server) handleVersion(c *echo.Context) error {
	return c.JSON(http.StatusOK, version.Resolve())
}
