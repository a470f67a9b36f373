package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presensi-backend/internal/config"
	"presensi-backend/internal/database"
	"presensi-backend/internal/geofence"
	"presensi-backend/internal/handlers"
	"presensi-backend/internal/middleware"
	"presensi-backend/internal/repository"
	"presensi-backend/internal/router"
	"presensi-backend/internal/services"
	"presensi-backend/internal/websocket"
	"presensi-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Presensi Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("✗ Invalid timezone %q: %v", cfg.Timezone, err)
	}

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Load Office Region ────
	officeRegion, err := geofence.LoadRegionFile(cfg.OfficeRegionPath)
	if err != nil {
		log.Fatalf("✗ Failed to load office region from %s: %v", cfg.OfficeRegionPath, err)
	}
	log.Printf("✓ Office region %q loaded (%d vertices)", officeRegion.ID, len(officeRegion.Vertices))

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	attendanceRepo := repository.NewAttendanceRepo(pool)
	leaveRepo := repository.NewLeaveRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.KV, jwtAuth)
	eventBus := services.NewEventBus(redisClients.PubSub)
	attendanceService := services.NewAttendanceService(attendanceRepo, userRepo, redisClients.KV, loc)
	notificationService := services.NewNotificationService(eventBus)
	leaveService := services.NewLeaveService(leaveRepo)

	policy := geofence.Policy{
		WorkStartHour:      cfg.WorkStartHour,
		WorkEndHour:        cfg.WorkEndHour,
		AutoClockOutWindow: time.Duration(cfg.AutoClockOutWindowMin) * time.Minute,
	}

	monitor := geofence.NewMonitor(
		geofence.NewRedisKV(redisClients.KV),
		attendanceService,
		notificationService,
		eventBus,
		geofence.Config{
			Policy:             policy,
			MutationWindow:     time.Duration(cfg.MutationDebounceSec) * time.Second,
			NotificationWindow: time.Duration(cfg.NotificationDebounceSec) * time.Second,
			DefaultRegion:      officeRegion,
			Location:           loc,
		},
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	geofenceHandler := handlers.NewGeofenceHandler(monitor, redisClients.Queue)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService)
	leaveHandler := handlers.NewLeaveHandler(leaveService)

	// ──── Step 6: Start Location Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, monitor, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start Auto-Clockout Scheduler ────
	autoClose := services.NewAutoCloseScheduler(attendanceService, policy, loc)
	autoClose.Start()
	log.Println("✓ Auto-clockout scheduler started")

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		geofenceHandler,
		attendanceHandler,
		leaveHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		autoClose.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Presensi Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
