// Package api exposes the shopping list over a small JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/suggest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures a Server.
type Options struct {
	// Pipeline serves /api/suggestions. Nil disables the endpoint.
	Pipeline *suggest.Pipeline
	// MinQueryLength is the shortest query that reaches the pipeline.
	MinQueryLength int
	// DefaultLocation is used by /api/compare when the request has none.
	DefaultLocation shopping.Location
}

// Server routes HTTP requests to the shopping service.
type Server struct {
	svc      *shopping.Service
	pipeline *suggest.Pipeline
	minQuery int
	location shopping.Location
	router   chi.Router
}

// NewServer builds the router.
func NewServer(svc *shopping.Service, opts Options) *Server {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = suggest.DefaultMinQueryLength
	}
	s := &Server{
		svc:      svc,
		pipeline: opts.Pipeline,
		minQuery: opts.MinQueryLength,
		location: opts.DefaultLocation,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/", s.addItem)
			r.Patch("/{id}", s.updateItem)
			r.Delete("/{id}", s.deleteItem)
		})
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", s.listPurchases)
			r.Post("/", s.completePurchase)
			r.Post("/{id}/items/{itemID}/reuse", s.reuseItem)
		})
		r.Post("/compare", s.compare)
		r.Get("/suggestions", s.suggestions)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.HTTP("Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.HTTP("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
