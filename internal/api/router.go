package api

import (
	"net/http"
	"strconv"
	"time"

	_ "github.com/AlexZinkM/credlink/docs"
	"github.com/AlexZinkM/credlink/internal/handler"
	"github.com/AlexZinkM/credlink/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(h *handler.CredentialsHandler) http.Handler {
	metrics.Register()

	r := mux.NewRouter()

	// Swagger UI
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Credentials endpoints
	r.HandleFunc("/credentials", instrumentHandler("receive", h.Receive)).Methods(http.MethodPost)
	r.HandleFunc("/credentials", instrumentHandler("status", h.Status)).Methods(http.MethodGet)
	r.HandleFunc("/linkcode", instrumentHandler("linkcode", h.GetLinkCode)).Methods(http.MethodGet)
	r.HandleFunc("/health", instrumentHandler("health", h.Health)).Methods(http.MethodGet)

	return r
}

// instrumentHandler wraps an HTTP handler with Prometheus instrumentation
func instrumentHandler(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(wrapped, r)

		metrics.HTTPRequestDuration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(name, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	}
}

// responseWriter captures the status code written by a handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
