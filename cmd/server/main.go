package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentou/server/config"
	"rentou/server/internal/api"
	"rentou/server/internal/auth"
	"rentou/server/internal/database"
	"rentou/server/internal/genai"
	"rentou/server/internal/geocoding"
	"rentou/server/internal/health"
	"rentou/server/internal/places"
	"rentou/server/internal/postal"
	"rentou/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Server.Mode == gin.DebugMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	gin.SetMode(cfg.Server.Mode)

	if cfg.Firebase.ProjectID == "" {
		logger.Warn("FIREBASE_PROJECT_ID is not set, every authenticated request will be rejected")
	}
	if cfg.Places.APIKey == "" {
		logger.Warn("PLACES_API_KEY is not set, points of interest will come back empty")
	}
	if cfg.GenAI.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, text generation will fail")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	geocoder := geocoding.NewGeocoder(cfg, logger)
	if cfg.Geocoding.SweepInterval > 0 {
		sweeper := scheduler.NewScheduler(db, geocoder, cfg.Geocoding.SweepInterval, logger)
		sweeper.Start()
		defer sweeper.Stop()
	}

	verifier := auth.NewFirebaseVerifier(cfg, logger)
	defer verifier.Close()
	handler := api.NewHandler(api.Services{
		Store:     db,
		Postal:    postal.NewResolver(cfg, logger),
		Geocoder:  geocoder,
		Places:    places.NewAggregator(cfg, logger),
		Generator: genai.NewClient(cfg, logger),
		Status:    health.NewReporter(cfg, db, logger),
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, handler, verifier, cfg, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}
