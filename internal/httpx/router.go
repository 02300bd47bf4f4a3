package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/you/go-voice-flights/internal/auth"
	"github.com/you/go-voice-flights/internal/config"
	"github.com/you/go-voice-flights/internal/logger"
	"github.com/you/go-voice-flights/internal/service"
)

// Searcher runs one voice flight search.
type Searcher interface {
	Search(ctx context.Context, req service.SearchRequest) (service.Result, error)
}

func NewRouter(cfg *config.Config, svc Searcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", RootHandler)
	r.Get("/health", HealthHandler(cfg))
	r.Post("/auth/login", auth.LoginHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg))
		r.Post("/api/flights/search", VoiceSearchHandler(svc))
		r.Get("/flights/search", SearchHandler(svc))
		r.Get("/ws/flights", VoiceWSHandler(svc, cfg.CORSOrigins))
	})
	return r
}

const requestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or mints one, echoes it and
// attaches it to the request logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// AccessLog logs request duration and status
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		log := logger.C(r.Context())
		evt := log.Info()
		if elapsed >= 5*time.Second {
			evt = log.Warn()
		}
		evt.Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request done")
	})
}
