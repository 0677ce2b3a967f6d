// Package sut implements a minimal stand-in system under test: an HTTP
// server exposing the Query Catalogue's six endpoints plus /health, each
// responding after an artificial delay drawn from a configurable latency
// profile. It is not part of the benchmarking core and is never consulted
// by the Comparison Engine or Threshold Evaluator — those only ever see
// HTTP responses. Grounded on the teacher's echo-based
// NewEchoServer/RunServer pattern, trimmed to what a demo/test backend
// needs: no registry auto-registration, no CORS/API-key middleware.
package sut

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"benchkit/catalogue"
	"benchkit/common"
	"benchkit/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rngSource is a mutex-guarded *rand.Rand: echo handlers run concurrently,
// so the simulator's latency/error draws need the same single-writer
// discipline the Dataset Selector uses.
type rngSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newRNGSource() *rngSource {
	return &rngSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *rngSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// LatencyProfile draws a per-request artificial delay: baseMs plus uniform
// jitter in [0, jitterMs), with optional per-kind overrides so a single
// kind can be made pathologically slow (spec.md §8 Scenario B).
type LatencyProfile struct {
	Name      string
	BaseMs    float64
	JitterMs  float64
	Overrides map[string]float64 // kind id -> base latency override, ms
}

// BuiltinProfiles names a handful of ready-made profiles. "slow-mode_s"
// reproduces the stub SUT spec.md §8 Scenario B describes: every kind
// answers quickly except mode_s, which is pushed well past its p99
// threshold.
var BuiltinProfiles = map[string]LatencyProfile{
	"fast":        {Name: "fast", BaseMs: 2, JitterMs: 1},
	"typical":     {Name: "typical", BaseMs: 20, JitterMs: 10},
	"slow":        {Name: "slow", BaseMs: 200, JitterMs: 50},
	"slow-mode_s": {Name: "slow-mode_s", BaseMs: 5, JitterMs: 2, Overrides: map[string]float64{"mode_s": 150}},
}

func (p LatencyProfile) latencyFor(kindID string, rng *rngSource) time.Duration {
	base := p.BaseMs
	if override, ok := p.Overrides[kindID]; ok {
		base = override
	}
	jitter := 0.0
	if p.JitterMs > 0 {
		jitter = rng.Float64() * p.JitterMs
	}
	return time.Duration((base + jitter) * float64(time.Millisecond))
}

// Config controls a simulator instance.
type Config struct {
	Port      int
	Profile   LatencyProfile
	ErrorRate float64 // fraction of requests (0-1) answered with 500, for FAIL scenarios
	RateLimit float64 // requests/sec self-throttle; 0 disables it
	DBPrefix  string
}

// NewServer builds an echo server implementing the Query Catalogue's
// endpoints over cfg's latency profile and error rate.
func NewServer(cfg Config, cat *catalogue.Catalogue, log *common.ContextLogger) *echo.Echo {
	if log == nil {
		log = common.NewContextLogger(nil, nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	serverCfg := config.LoadServerConfig("")
	e.Server.ReadTimeout = serverCfg.ReadTimeout
	e.Server.WriteTimeout = serverCfg.WriteTimeout

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(cfg.RateLimit),
		)))
	}

	rng := newRNGSource()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	for _, kind := range cat.Kinds() {
		path := kind.PathTemplate
		if cfg.DBPrefix != "" {
			path = "/" + cfg.DBPrefix + path
		}
		routePath := echoPath(path)
		handler := simulateHandler(kind.ID, cfg, rng, log)

		switch kind.Method {
		case http.MethodGet:
			e.GET(routePath, handler)
		case http.MethodPost:
			e.POST(routePath, handler)
		default:
			e.Add(kind.Method, routePath, handler)
		}
	}

	return e
}

// echoPath rewrites a QueryKind's "{v}" path template placeholder into
// echo's ":v" route-parameter syntax.
func echoPath(template string) string {
	return strings.ReplaceAll(template, "{v}", ":v")
}

func simulateHandler(kindID string, cfg Config, rng *rngSource, log *common.ContextLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		time.Sleep(cfg.Profile.latencyFor(kindID, rng))

		if cfg.ErrorRate > 0 && rng.Float64() < cfg.ErrorRate {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "simulated failure"})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"kind": kindID,
			"v":    c.Param("v"),
		})
	}
}

// Run starts the simulator and blocks until ctx is cancelled, then shuts
// down within the configured shutdown timeout.
func Run(ctx context.Context, cfg Config, cat *catalogue.Catalogue, log *common.ContextLogger) error {
	e := NewServer(cfg, cat, log)

	serverCfg := config.LoadServerConfig("")
	port := cfg.Port
	if port == 0 {
		port = serverCfg.Port
	}

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("SUT simulator stopped unexpectedly")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
