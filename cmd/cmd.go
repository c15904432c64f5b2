package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facematch-backend/internal/config"
	"facematch-backend/internal/handlers"
	"facematch-backend/internal/middleware"
	"facematch-backend/internal/repository"
	"facematch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// .env is optional; real deployments use config.yaml alone
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	// Initialize gateways
	objectStore, err := services.NewObjectStore(context.Background(), cfg.AWS, cfg.Matching.MaxImages)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}
	comparer, err := services.NewRekognitionComparer(context.Background(), cfg.AWS, cfg.Matching.CompareThreshold)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create face comparer")
	}

	var push services.PushSender
	if cfg.APNS.Enabled {
		notifier, err := services.NewAPNSNotifier(cfg.APNS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs notifier")
		}
		push = notifier
	}

	// Initialize services
	hub := services.NewProgressHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	eventService := services.NewEventService(eventRepo, cfg.App.PublicBaseURL)
	uploadService := services.NewUploadService(objectStore, eventService, hub, cfg.Matching.DownloadDelay())
	matchService := services.NewMatchService(
		matchRepo, eventService, objectStore, comparer, userRepo, hub, push, cfg.Matching,
	)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	eventHandler := handlers.NewEventHandler(eventService, userService)
	photoHandler := handlers.NewPhotoHandler(uploadService)
	matchHandler := handlers.NewMatchHandler(matchService)
	wsHandler := handlers.NewWebSocketHandler(hub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users/signin", userHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/me", userHandler.Me)
			r.Post("/users/role", userHandler.SetRole)
			r.Post("/users/push-token", userHandler.RegisterPushToken)

			r.Post("/events", eventHandler.CreateEvent)
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/events/{event_id}", eventHandler.GetEvent)
			r.Delete("/events/{event_id}", eventHandler.DeleteEvent)
			r.Get("/events/{event_id}/qr", eventHandler.EventQR)
			r.Post("/events/{event_id}/photos", photoHandler.UploadPhotos)
			r.Get("/events/{event_id}/photos", photoHandler.ListPhotos)
			r.Post("/events/{event_id}/cover", photoHandler.UploadCover)

			r.Post("/matches", matchHandler.RunMatch)
			r.Get("/matches", matchHandler.ListMatches)
			r.Get("/matches/stats", matchHandler.Statistics)
			r.Get("/matches/{event_id}", matchHandler.GetMatches)

			r.Get("/selfie", matchHandler.GetDefaultSelfie)
			r.Put("/selfie", matchHandler.UpdateDefaultSelfie)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server; open progress streams drop with it
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
