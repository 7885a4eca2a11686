// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/agendou/agenda-backend/internal/api/handlers"
	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/config"
	"github.com/agendou/agenda-backend/internal/cron"
	"github.com/agendou/agenda-backend/internal/db"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/service"
	"github.com/agendou/agenda-backend/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	if err := db.RunMigrations(cfg.DatabaseURL, "./internal/db/migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	pg, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	repos := repository.NewRepositories(pg.Pool)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("⚡ Redis cache enabled")
		}
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Initialize All Services
	// ============================================
	deps := &service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Broadcaster: broadcaster,
	}
	if redisDB != nil {
		deps.Cache = redisDB.Client
	}
	services := service.NewServices(deps)
	log.Println("✨ All services initialized")

	// WebSocket connections are only admitted to company rooms backed by an
	// active membership.
	wsHandler := socket.NewHandler(hub, cfg.JWTSecret, func(ctx context.Context, companyID, userID string) (bool, error) {
		member, err := services.Directory.ResolveMembership(ctx, companyID, userID)
		if err != nil {
			return false, err
		}
		return member != nil && member.Active, nil
	})

	h := handlers.NewHandlers(services)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(services, time.Duration(cfg.OrphanTTLMinutes)*time.Minute)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL, "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		cache := "disabled"
		if redisDB != nil {
			cache = "connected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"cache":      cache,
			"ws_clients": hub.GetConnectedClientsCount(),
		})
	})

	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			me := protected.Group("/me")
			{
				me.GET("", h.Auth.Me)
				me.PUT("/password", h.Auth.ChangePassword)
			}

			companies := protected.Group("/companies")
			{
				companies.POST("", h.Company.Create)
				companies.GET("/:id", h.Company.Get)
				companies.PUT("/:id", h.Company.Update)

				// Staff
				companies.GET("/:id/staff", h.Staff.List)
				companies.POST("/:id/staff", h.Staff.Create)
				companies.PATCH("/:id/staff/:userId/active", h.Staff.SetActive)

				// Clients
				companies.GET("/:id/clients", h.Client.List)
				companies.POST("/:id/clients", h.Client.Create)
				companies.GET("/:id/clients/:clientId", h.Client.Get)
				companies.PUT("/:id/clients/:clientId", h.Client.Update)
				companies.DELETE("/:id/clients/:clientId", h.Client.Delete)

				// Appointments
				companies.GET("/:id/appointments", h.Appointment.List)
				companies.POST("/:id/appointments", h.Appointment.Create)
				companies.GET("/:id/appointments/availability", h.Appointment.CheckAvailability)
				companies.GET("/:id/appointments/:appointmentId", h.Appointment.Get)
				companies.PUT("/:id/appointments/:appointmentId", h.Appointment.Update)
				companies.PATCH("/:id/appointments/:appointmentId/status", h.Appointment.UpdateStatus)
				companies.DELETE("/:id/appointments/:appointmentId", h.Appointment.Delete)

				// Audit trail
				companies.GET("/:id/audit", h.Audit.List)
			}
		}
	}

	// ============================================
	// Start server with graceful shutdown
	// ============================================
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Forced shutdown: %v", err)
	}
	log.Println("👋 Server stopped")
}
