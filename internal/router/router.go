package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"presensi-backend/internal/handlers"
	"presensi-backend/internal/middleware"
	"presensi-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	geofenceHandler *handlers.GeofenceHandler,
	attendanceHandler *handlers.AttendanceHandler,
	leaveHandler *handlers.LeaveHandler,
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

	// Location reports arrive on a timer from every active device; the
	// ceiling only exists to stop a runaway client.
	locationLimiter := middleware.NewRateLimiter(120, time.Minute)

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

		// ──── Geofence Routes ────
		r.Route("/geofence", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", geofenceHandler.Start)
			r.Post("/stop", geofenceHandler.Stop)
			r.Get("/status", geofenceHandler.Status)
			r.Post("/check", geofenceHandler.Check)

			r.Group(func(r chi.Router) {
				r.Use(locationLimiter.Middleware)
				r.Post("/locations", geofenceHandler.ReportLocations)
			})
		})

		// ──── Attendance Routes ────
		r.Route("/attendances", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/today", attendanceHandler.Today)
			r.Get("/", attendanceHandler.List)
			r.Post("/clock-in", attendanceHandler.ClockIn)
			r.Post("/clock-out", attendanceHandler.ClockOut)
		})

		// ──── Leave Routes ────
		r.Route("/leave-requests", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", leaveHandler.Create)
			r.Get("/", leaveHandler.List)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
