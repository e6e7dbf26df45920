package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/Josh050608/orim-convert/common"
	"github.com/Josh050608/orim-convert/metrics"
)

// RouteRegistrar is implemented by components that contribute routes to the
// server's router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds the HTTP server parameters.
type Config struct {
	// ListenAddr is the address the API listens on.
	ListenAddr string

	// MetricsAddr is the address of the metrics listener. Empty disables
	// the metrics server.
	MetricsAddr string

	// EnablePprof mounts the pprof debugging API under /debug.
	EnablePprof bool

	// Log is the structured logger; nil means slog.Default.
	Log *slog.Logger

	// DrainDuration is how long to stay up after /drain before load
	// balancers are assumed to have noticed.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests on
	// shutdown.
	GracefulShutdownDuration time.Duration

	// ReadTimeout and WriteTimeout bound request reads and response
	// writes.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP shell shared by the engine binaries.
type Server struct {
	cfg     *Config
	log     *slog.Logger
	isReady atomic.Bool

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
}

// New assembles a server from the config and the given route registrars.
func New(cfg *Config, registrars ...RouteRegistrar) (*Server, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	srv := &Server{cfg: cfg, log: log}

	if cfg.MetricsAddr != "" {
		metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
		srv.metricsSrv = metricsSrv
	}

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.router(registrars),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	srv.isReady.Store(true)
	return srv, nil
}

func (s *Server) router(registrars []RouteRegistrar) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	for _, r := range registrars {
		r.RegisterRoutes(mux)
	}

	mux.With(s.httpLogger).Get("/livez", s.handleLivez)
	mux.With(s.httpLogger).Get("/readyz", s.handleReadyz)
	mux.With(s.httpLogger).Get("/drain", s.handleDrain)
	mux.With(s.httpLogger).Get("/undrain", s.handleUndrain)

	if s.cfg.EnablePprof {
		s.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (s *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.isReady.Swap(false) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}
	s.log.Info("marked not ready, draining")

	go func() {
		time.Sleep(s.cfg.DrainDuration)
		s.log.Info("drain period completed")
	}()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (s *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.isReady.Swap(true) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}
	s.log.Info("marked ready")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the API and metrics listeners in goroutines.
func (s *Server) RunInBackground() {
	if s.metricsSrv != nil {
		go func() {
			s.log.Info("starting metrics server", "metricsAddress", s.cfg.MetricsAddr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		s.log.Info("starting HTTP server", "listenAddress", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("graceful HTTP shutdown failed", "err", err)
	} else {
		s.log.Info("HTTP server stopped")
	}

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			s.log.Error("graceful metrics shutdown failed", "err", err)
		} else {
			s.log.Info("metrics server stopped")
		}
	}
}
