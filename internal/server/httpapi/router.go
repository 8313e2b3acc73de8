package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/users"
)

const requestTimeout = 60 * time.Second

// NewRouter wires the full route table. Signup, login and the health probe
// are public; everything under /users requires a valid token, and the listing
// additionally requires the ADMIN role.
func NewRouter(h *Handlers, auth *AuthMiddleware, log logging.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.HandleSignup)
		r.Post("/login", h.HandleLogin)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth.Handler)

		admin := auth.RequireRole(string(users.RoleAdmin))
		r.With(admin).Get("/", h.HandleListUsers)
		r.With(admin).Get("/count", h.HandleCountUsers)

		r.Get("/{id}", h.HandleGetUser)
		r.Put("/{id}", h.HandleUpdateUser)
		r.Delete("/{id}", h.HandleDeleteUser)
	})

	return r
}

// requestLogger logs one line per request with the status and duration.
func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	log = log.With("module", "httpapi")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info(r.Context(), "request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
			)
		})
	}
}
