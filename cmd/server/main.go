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

	"topaz-backend/internal/config"
	"topaz-backend/internal/database"
	"topaz-backend/internal/handlers"
	"topaz-backend/internal/middleware"
	"topaz-backend/internal/models"
	"topaz-backend/internal/repository"
	"topaz-backend/internal/router"
	"topaz-backend/internal/services"
	"topaz-backend/internal/session"
	"topaz-backend/internal/websocket"
	"topaz-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Topaz Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

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

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	testRepo := repository.NewTestRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	authService := services.NewAuthService(userRepo, redisClients.Store, jwtAuth)

	// ──── Step 5: Initialize Session Manager ────
	// When a session finishes (submit or timeout) the attempt is persisted,
	// then a finalize job is queued for notification delivery. The callback
	// runs on the session goroutine, so failures are logged and never block
	// the session itself.
	manager := session.NewManager(session.NewClock(), func(test models.Test, attempt models.TestAttempt) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := attemptRepo.Create(ctx, &attempt); err != nil {
			log.Printf("failed to persist attempt %s: %v", attempt.ID, err)
			return
		}

		job := models.FinalizeJob{
			AttemptID:      attempt.ID,
			TestID:         test.ID,
			UserID:         attempt.UserID,
			TestTitle:      test.Title,
			Score:          attempt.Score,
			TotalQuestions: attempt.TotalQuestions,
			TimedOut:       attempt.TimedOut,
		}
		if err := worker.Enqueue(ctx, redisClients.Store, job); err != nil {
			log.Printf("failed to enqueue finalize job for attempt %s: %v", attempt.ID, err)
		}
	})
	log.Println("✓ Session manager initialized")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	testHandler := handlers.NewTestHandler(testRepo)
	sessionHandler := handlers.NewSessionHandler(manager, testRepo)
	attemptHandler := handlers.NewAttemptHandler(attemptRepo, testRepo)
	dashboardHandler := handlers.NewDashboardHandler(testRepo, attemptRepo)

	// ──── Step 6: Start Finalize Worker Pool ────
	workerPool := worker.NewPool(redisClients.Store, emailService, userRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.Events, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		testHandler,
		sessionHandler,
		attemptHandler,
		dashboardHandler,
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
		manager.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Topaz Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
