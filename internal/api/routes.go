package api

import (
	"net/http"

	"fitforge/coach-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	authService service.AuthService,
	profileService service.ProfileService,
	syncService service.SyncService,
	generationService service.GenerationService,
	diagnosticsService service.DiagnosticsService,
) {

	authHandler := NewAuthHandler(authService)
	profileHandler := NewProfileHandler(profileService)
	syncHandler := NewSyncHandler(syncService)
	routineHandler := NewRoutineHandler(generationService)
	diagnosticsHandler := NewDiagnosticsHandler(diagnosticsService)

	authMiddleware := AuthMiddleware(authService.GetJWTSecret())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Training Profile ---
		protected.GET("/profile", profileHandler.GetProfile)
		protected.PUT("/profile", profileHandler.SaveProfile)

		// --- Hevy Sync ---
		syncGroup := protected.Group("/sync")
		{
			// POST /api/v1/sync/full - background full sync, returns 202
			syncGroup.POST("/full", syncHandler.StartFullSync)
			// GET /api/v1/sync/status - history plus in-progress flag
			syncGroup.GET("/status", syncHandler.History)
			// GET /api/v1/sync/status/{id} - one run record
			syncGroup.GET("/status/:id", syncHandler.GetStatus)
			// POST /api/v1/sync/cleanup - sweep interrupted runs
			syncGroup.POST("/cleanup", syncHandler.CleanupStale)
			// GET /api/v1/sync/library - browse the local caches
			syncGroup.GET("/library", syncHandler.Library)
			// POST /api/v1/sync/{type} - synchronous single-resource sync.
			// Registered last so the fixed paths above win.
			syncGroup.POST("/:type", syncHandler.SyncResource)
		}

		// --- Program Generation ---
		routineGroup := protected.Group("/routines")
		{
			// POST /api/v1/routines/generate
			routineGroup.POST("/generate", routineHandler.Generate)
			// GET /api/v1/routines/generated
			routineGroup.GET("/generated", routineHandler.List)
			// GET /api/v1/routines/generated/{id}
			routineGroup.GET("/generated/:id", routineHandler.Get)
			// POST /api/v1/routines/generated/{id}/export
			routineGroup.POST("/generated/:id/export", routineHandler.Export)
			// GET /api/v1/routines/generated/{id}/variants?index=N
			routineGroup.GET("/generated/:id/variants", routineHandler.Variants)
		}

		// --- Diagnostics ---
		errorGroup := protected.Group("/errors")
		{
			// GET /api/v1/errors - unresolved records with artifact URLs
			errorGroup.GET("", diagnosticsHandler.List)
			// POST /api/v1/errors/{id}/resolve
			errorGroup.POST("/:id/resolve", diagnosticsHandler.Resolve)
		}
	}
}
