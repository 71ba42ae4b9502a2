package api

import (
	"errors"
	"net/http"
	"strconv"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultHistoryLimit = 20

// SyncHandler exposes the Hevy sync endpoints.
type SyncHandler struct {
	syncService service.SyncService
}

func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// StartFullSync godoc
// @Summary Start a full account sync in the background
// @Description Claims the sync slot and runs exercises, folders, routines and
// @Description workouts on a background worker. Poll the returned status id.
// @Tags Sync
// @Produce json
// @Success 202 {object} gin.H "statusId of the started run"
// @Failure 409 {object} gin.H "A sync is already in progress"
// @Router /sync/full [post]
func (h *SyncHandler) StartFullSync(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	statusID, err := h.syncService.StartFullSync(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to start sync")
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"statusId": statusID.Hex()})
}

// SyncResource godoc
// @Summary Synchronously sync one resource type
// @Description Valid types: exercises, routine_folders, routines, workouts,
// @Description workouts_incremental.
// @Tags Sync
// @Produce json
// @Param type path string true "Resource type"
// @Success 200 {object} service.SyncResult
// @Failure 400 {object} gin.H "Unknown resource type"
// @Failure 409 {object} gin.H "A sync is already in progress"
// @Router /sync/{type} [post]
func (h *SyncHandler) SyncResource(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var result *service.SyncResult
	switch domain.SyncType(c.Param("type")) {
	case domain.SyncTypeExercises:
		result, err = h.syncService.SyncExercises(c.Request.Context(), userID)
	case domain.SyncTypeRoutineFolders:
		result, err = h.syncService.SyncRoutineFolders(c.Request.Context(), userID)
	case domain.SyncTypeRoutines:
		result, err = h.syncService.SyncRoutines(c.Request.Context(), userID)
	case domain.SyncTypeWorkouts:
		result, err = h.syncService.SyncWorkouts(c.Request.Context(), userID)
	case domain.SyncTypeWorkoutsIncremental:
		result, err = h.syncService.SyncWorkoutsIncremental(c.Request.Context(), userID)
	case domain.SyncTypeFull:
		result, err = h.syncService.FullSync(c.Request.Context(), userID)
	default:
		abortWithError(c, http.StatusBadRequest, "Unknown sync type: "+c.Param("type"))
		return
	}

	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusBadGateway, "Sync failed: "+err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus returns one sync run record by id.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	statusID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid status ID format")
		return
	}

	status, err := h.syncService.GetStatus(c.Request.Context(), userID, statusID)
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Sync status not found")
		return
	}
	c.JSON(http.StatusOK, status)
}

// History returns the most recent sync runs, newest first.
func (h *SyncHandler) History(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	limit := int64(defaultHistoryLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 100 {
			abortWithError(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	history, err := h.syncService.SyncHistory(c.Request.Context(), userID, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load sync history")
		return
	}

	active, err := h.syncService.IsSyncInProgress(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load sync state")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inProgress": active,
		"history":    history,
	})
}

// CleanupStale fails interrupted runs so the sync slot frees up again.
func (h *SyncHandler) CleanupStale(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	swept, err := h.syncService.CleanupStale(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to clean up stale syncs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned": swept})
}

// Library godoc
// @Summary Browse the locally cached Hevy data
// @Description Returns the synced routine folders and routines plus the
// @Description number of cached exercise templates.
// @Tags Sync
// @Produce json
// @Success 200 {object} service.ImportedLibrary
// @Router /sync/library [get]
func (h *SyncHandler) Library(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	library, err := h.syncService.Library(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load imported library")
		return
	}
	c.JSON(http.StatusOK, library)
}
