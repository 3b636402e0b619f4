// Package http serves the forecast JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"runway/internal/core"
	"runway/internal/forecast"
	"runway/internal/log"
	"runway/internal/middleware/ratelimit"
	"runway/internal/middleware/trace"
)

// ForecastAPI is the service surface the handlers call.
// *services.ForecastService satisfies it.
type ForecastAPI interface {
	Forecast(ctx context.Context, req forecast.Request) ([]core.WeeklyForecast, error)
	SaveARForecast(ctx context.Context, f core.ARForecast) error
	SaveCashBalance(ctx context.Context, b core.CashBalance) error
	Categories(ctx context.Context) ([]core.DisplayCategory, error)
}

type Server struct {
	http.Server
	svc          ForecastAPI
	rateLimiter  *ratelimit.Limiter
	traceMW      *trace.Middleware
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server listening on addr.
func NewServer(addr string, svc ForecastAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:         svc,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		traceMW:     trace.NewMiddleware(clientIP),
		started:     time.Now(),
	}

	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/ar-forecasts", s.handleARForecasts)
	mux.HandleFunc("/api/cash-balances", s.handleCashBalances)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/healthz", s.handleHealth)

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	handler := s.traceMW.Middleware(
		log.Middleware(logger)(
			s.rateLimiter.Middleware(clientIP)(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
