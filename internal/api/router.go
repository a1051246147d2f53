package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yegors/scribe/internal/metrics"
	"github.com/yegors/scribe/pkg/logger"
)

// Router wires handlers to routes
type Router struct {
	handler            *Handler
	metrics            *metrics.Metrics // nil when metrics are disabled
	metricsPath        string
	corsAllowedOrigins []string
	logger             *logger.Logger
}

// NewRouter creates a new router
func NewRouter(handler *Handler, m *metrics.Metrics, log *logger.Logger) *Router {
	cfg := handler.config
	origins := cfg.Server.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Router{
		handler:            handler,
		metrics:            m,
		metricsPath:        cfg.Metrics.Path,
		corsAllowedOrigins: origins,
		logger:             log.Named("router"),
	}
}

// Routes returns the HTTP handler for the whole API
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if rt.metrics != nil {
		r.Use(rt.instrument)
	}

	r.Get("/health", rt.handler.GetHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/transcriptions", func(r chi.Router) {
			r.Post("/", rt.handler.CreateTranscription)
			r.Get("/", rt.handler.GetAllTranscriptions)
			r.Get("/catalogue", rt.handler.GetCatalogue)
			r.Get("/{id}", rt.handler.GetTranscription)
		})
		r.Get("/ws", rt.handler.HandleWebSocket)
	})

	return r
}

// instrument records request counts and latency per route pattern
func (rt *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		rt.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Duration("duration", time.Since(start)))
	})
}
