package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitforge/coach-app/internal/ai"
	"fitforge/coach-app/internal/api"
	"fitforge/coach-app/internal/config"
	"fitforge/coach-app/internal/hevy"
	"fitforge/coach-app/internal/repository/mongo"
	"fitforge/coach-app/internal/service"
	"fitforge/coach-app/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title Coach App API
// @version 1.0
// @description Hevy-backed training analysis and AI program generation.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coach App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureProfileIndexes(ctx, appDB.Collection("user_profiles"))
		mongo.EnsureExerciseTemplateIndexes(ctx, appDB.Collection("imported_exercise_templates"))
		mongo.EnsureRoutineFolderIndexes(ctx, appDB.Collection("imported_routine_folders"))
		mongo.EnsureRoutineIndexes(ctx, appDB.Collection("imported_routines"))
		mongo.EnsureWorkoutIndexes(ctx, appDB.Collection("imported_workouts"))
		mongo.EnsureSyncStatusIndexes(ctx, appDB.Collection("sync_statuses"))
		mongo.EnsureGeneratedRoutineIndexes(ctx, appDB.Collection("generated_routines"))
		mongo.EnsureErrorLogIndexes(ctx, appDB.Collection("error_logs"))
		log.Println("Index creation process completed.")
	}()

	// --- External Clients ---
	if !cfg.Hevy.Configured() {
		log.Println("WARN: Hevy API key not configured; sync and export will fail until it is set.")
	}
	hevyClient := hevy.NewClient(cfg.Hevy.BaseURL, cfg.Hevy.APIKey)

	var generator ai.Generator
	if cfg.AI.Configured() {
		gemini, err := ai.NewGeminiGenerator(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Temperature, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize model client: %v", err)
		}
		generator = gemini
	} else {
		log.Fatalf("FATAL: AI API key not configured (set AI_API_KEY).")
	}

	// --- Artifact Storage ---
	// Optional: failed model output is archived only when S3 is configured.
	var artifacts storage.ArtifactStore
	if cfg.S3.BucketName != "" {
		artifacts, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
		log.Println("Artifact storage initialized.")
	} else {
		log.Println("WARN: S3 not configured; unparsable model output will not be archived.")
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	profileRepo := mongo.NewMongoProfileRepository(appDB)
	templateRepo := mongo.NewMongoExerciseTemplateRepository(appDB)
	folderRepo := mongo.NewMongoRoutineFolderRepository(appDB)
	routineRepo := mongo.NewMongoRoutineRepository(appDB)
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	syncStatusRepo := mongo.NewMongoSyncStatusRepository(appDB)
	generatedRepo := mongo.NewMongoGeneratedRoutineRepository(appDB)
	errorLogRepo := mongo.NewMongoErrorLogRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, profileRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	profileService := service.NewProfileService(profileRepo)
	syncService := service.NewSyncService(hevyClient, templateRepo, folderRepo, routineRepo, workoutRepo, syncStatusRepo, cfg.Hevy.PageSize, cfg.Hevy.PageDelay)
	contextBuilder := service.NewContextBuilder(profileRepo, workoutRepo, templateRepo)
	generationService := service.NewGenerationService(generator, contextBuilder, generatedRepo, errorLogRepo, hevyClient, artifacts)
	diagnosticsService := service.NewDiagnosticsService(errorLogRepo, artifacts)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, authService, profileService, syncService, generationService, diagnosticsService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout: 10 * time.Second,
		// Synchronous sync and generation requests can legitimately take
		// minutes on large accounts.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
