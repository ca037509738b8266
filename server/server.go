package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/checker"
	"github.com/chrisvdg/linkswap/metrics"
	"github.com/chrisvdg/linkswap/pipeline"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// New creates a new server instance
func New(c *Config) (*Server, error) {
	if c.Pipeline == nil {
		return nil, errors.New("No pipeline config provided")
	}
	if err := c.Pipeline.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}

	registry := prometheus.NewRegistry()
	verifier, cache := pipeline.NewVerifier(c.Pipeline, metrics.New(registry))
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "linkswap",
		Name:      "cache_entries",
		Help:      "Existence verdicts held by the cache, expired ones included.",
	}, func() float64 {
		return float64(cache.Len())
	}))

	return &Server{
		c:        c,
		cache:    cache,
		checker:  verifier,
		registry: registry,
	}, nil
}

// Server represents a server instance
type Server struct {
	c        *Config
	cache    *cache.Cache
	checker  checker.Checker
	registry *prometheus.Registry
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	h := newHandlers(s.checker, s.cache)

	r.HandleFunc("/check", h.CheckHandler).Methods("POST")
	r.HandleFunc("/debug/cache", h.CacheHandler).Methods("GET")
	r.HandleFunc("/healthz", h.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")

	return r
}

// ListenAndServe listens for new requests and serves them until ctx is done
// or a listener fails
// It returns once every listener shut down, with the first listener error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler := s.Handler()

	tlsEnabled := s.c.TLS != nil && s.c.TLS.CertFile != "" && s.c.TLS.KeyFile != ""
	if s.c.TLSOnly && !tlsEnabled {
		return errors.New("TLS only requested without a TLS key and certificate")
	}

	quit := make(chan struct{})
	defer close(quit)
	go s.cache.Cleanup(quit)

	g, ctx := errgroup.WithContext(ctx)
	if !s.c.TLSOnly {
		g.Go(func() error {
			return s.listenAndServe(ctx, s.c.ListenAddr, handler)
		})
	}

	if tlsEnabled {
		g.Go(func() error {
			return s.listenAndServeTLS(ctx, s.c.TLSListenAddr, s.c.TLS, handler)
		})
	}

	return g.Wait()
}

// listenAndServe serves a plain http webserver
func (s *Server) listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	log.Infof("http server listening on: http://%s", getAddrString(addr))
	return s.serve(ctx, srv, srv.ListenAndServe)
}

// listenAndServeTLS serves a tls webserver
func (s *Server) listenAndServeTLS(ctx context.Context, addr string, tls *TLSConfig, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	log.Infof("https server listening on: https://%s", getAddrString(addr))
	return s.serve(ctx, srv, func() error {
		return srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
	})
}

// serve runs listen and shuts srv down once ctx is done
// It returns after the shutdown completed.
func (s *Server) serve(ctx context.Context, srv *http.Server, listen func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.shutdownOnDone(ctx, srv)
	}()

	err := listen()
	cancel()
	<-done
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "failed to serve on %s", srv.Addr)
	}

	return nil
}

func (s *Server) shutdownOnDone(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down %s: %s", srv.Addr, err)
	}
}

func getAddrString(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = fmt.Sprintf("0.0.0.0%s", addr)
	}
	return addr
}
