package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"topaz-backend/internal/handlers"
	"topaz-backend/internal/middleware"
	"topaz-backend/internal/models"
	"topaz-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	testHandler *handlers.TestHandler,
	sessionHandler *handlers.SessionHandler,
	attemptHandler *handlers.AttemptHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Test Catalog Routes ────
		r.Route("/tests", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", testHandler.List)
			r.Get("/{id}", testHandler.Get)
			r.Post("/{id}/start", sessionHandler.Start)

			// Authoring (admin only)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/", testHandler.Create)
				r.Put("/{id}", testHandler.Update)
				r.Put("/{id}/publish", testHandler.TogglePublish)
				r.Delete("/{id}", testHandler.Delete)
				r.Get("/{id}/attempts", attemptHandler.ListByTest)
			})
		})

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/answer", sessionHandler.Answer)
			r.Post("/{id}/goto", sessionHandler.GoTo)
			r.Post("/{id}/next", sessionHandler.Next)
			r.Post("/{id}/previous", sessionHandler.Previous)
			r.Post("/{id}/submit", sessionHandler.Submit)
			r.Delete("/{id}", sessionHandler.Abandon)
		})

		// ──── Attempt Routes ────
		r.Route("/attempts", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", attemptHandler.List)
			r.Get("/{id}", attemptHandler.Get)
			r.Get("/{id}/results", attemptHandler.Results)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", authHandler.Me)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
