package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/usage"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestID tags the request with the caller's id or a fresh uuid, and marks
// any Gemini usage under it as coming from the HTTP surface.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = usage.WithSurface(ctx, "http")
		ctx = usage.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the id assigned to the request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logging.WithRequestID(logging.CategoryHTTP, RequestIDFrom(r.Context())).
			WithField("status", ww.Status()).
			WithField("bytes", ww.BytesWritten())
		switch {
		case ww.Status() >= 500:
			log.Error("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		case ww.Status() >= 400:
			log.Warn("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		default:
			log.Info("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryHTTP).Error("Error encoding JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps domain errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shopping.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shopping.ErrEmptyName), errors.Is(err, shopping.ErrNoLocation):
		return http.StatusBadRequest
	case errors.Is(err, shopping.ErrNoActiveItems), errors.Is(err, shopping.ErrEmptyList):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
