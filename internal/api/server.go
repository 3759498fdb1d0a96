// Package api configures and exposes the HTTP server, routes, metrics, docs
// and related middleware for the porch service.
package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"

	"github.com/mgcam/npg-porch/internal/api/handler"
	"github.com/mgcam/npg-porch/internal/config"
	"github.com/mgcam/npg-porch/pkg/controller"
)

// openAPISpec contains the embedded OpenAPI specification of the porch API.
//
//go:embed specs/openapi.yaml
var openAPISpec []byte

// Options holds configuration for the HTTP server. It is typically created
// from a config.Config via NewOptions. All durations configure server
// timeouts; zero values fall back to the net/http defaults where applicable.
type Options struct {
	// HandlerOptions configures request handling.
	HandlerOptions handler.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application
// configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		HandlerOptions: handler.NewOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

// Deps groups the dependencies of the HTTP server.
type Deps struct {
	handler.Deps
}

// NewServer wires up and returns a configured *http.Server using the
// provided Options. It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - Embedded OpenAPI spec and Swagger UI
// - porch API routes with bearer token authentication
// - pprof endpoints for profiling
// It also wraps the router with CORS, logging and metrics middlewares and
// applies a request timeout.
func NewServer(deps Deps, opts Options) *http.Server {
	router := mux.NewRouter()

	// prometheus metrics
	router.Handle(opts.MetricsPath, promhttp.Handler())

	// openapi spec file
	router.HandleFunc("/specs/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openAPISpec)
	})
	// swagger playground
	router.PathPrefix("/docs/").Handler(v5emb.New(
		"Pipeline Orchestration Tracking",
		"/specs/openapi.yaml",
		"/docs/",
	))

	// pprof
	router.PathPrefix("/debug/pprof/").Handler(
		http.StripPrefix("/debug/pprof", controller.PprofMux()))

	// api
	handler.New(deps.Deps, opts.HandlerOptions).Register(router)

	// per route metrics
	router.Use(controller.WithMetrics)

	// cors
	h := controller.WithCORS(router)

	// logger
	h = controller.WithLogger(h)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           http.TimeoutHandler(h, opts.RequestTimeout, `{"error":"request timed out"}`),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
}
