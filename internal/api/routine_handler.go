package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"
	"fitforge/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoutineHandler exposes program generation and export endpoints.
type RoutineHandler struct {
	generationService service.GenerationService
}

func NewRoutineHandler(generationService service.GenerationService) *RoutineHandler {
	return &RoutineHandler{generationService: generationService}
}

type GenerateRequest struct {
	WorkoutsPerWeek     int    `json:"workoutsPerWeek" binding:"required"`
	SessionDurationMins int    `json:"sessionDurationMins" binding:"required"`
	DurationWeeks       int    `json:"durationWeeks" binding:"required"`
	FocusArea           string `json:"focusArea"`
	SplitType           string `json:"splitType"`
	SpecialInstructions string `json:"specialInstructions"`
	ProgressionType     string `json:"progressionType"`
}

// Generate godoc
// @Summary Generate a training program from the synced history
// @Description Builds the training context, prompts the model and persists the
// @Description validated result. Retries internally on malformed model output.
// @Tags Routines
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generation parameters"
// @Success 201 {object} service.GenerationOutcome
// @Failure 400 {object} gin.H "Invalid parameters or no synced exercises"
// @Failure 502 {object} gin.H "Model failed to produce a usable program"
// @Router /routines/generate [post]
func (h *RoutineHandler) Generate(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	outcome, err := h.generationService.Generate(c.Request.Context(), userID, domain.GenerationRequest{
		WorkoutsPerWeek:     req.WorkoutsPerWeek,
		SessionDurationMins: req.SessionDurationMins,
		DurationWeeks:       req.DurationWeeks,
		FocusArea:           req.FocusArea,
		SplitType:           req.SplitType,
		SpecialInstructions: req.SpecialInstructions,
		ProgressionType:     domain.ProgressionType(req.ProgressionType),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGenerationValidation):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoExercisesSynced):
			abortWithError(c, http.StatusBadRequest, service.GenerationFailureMessage(err))
		default:
			if msg := service.GenerationFailureMessage(err); msg != "" {
				abortWithError(c, http.StatusBadGateway, msg)
			} else {
				abortWithError(c, http.StatusInternalServerError, "Program generation failed")
			}
		}
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// List returns the caller's stored generation results, newest first.
func (h *RoutineHandler) List(c *gin.Context) {
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

	results, err := h.generationService.ListGenerated(c.Request.Context(), userID, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load generated routines")
		return
	}
	c.JSON(http.StatusOK, results)
}

// Get returns one stored generation result.
func (h *RoutineHandler) Get(c *gin.Context) {
	userID, routineID, ok := h.callerAndRoutine(c)
	if !ok {
		return
	}

	result, err := h.generationService.GetGenerated(c.Request.Context(), userID, routineID)
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Generated routine not found")
		return
	}
	c.JSON(http.StatusOK, result)
}

type ExportRequest struct {
	RoutineIndex int `json:"routineIndex"`
}

// Export godoc
// @Summary Export one generated program to the user's Hevy account
// @Description Each program index can be exported at most once.
// @Tags Routines
// @Accept json
// @Produce json
// @Param id path string true "Generated routine ID"
// @Param request body ExportRequest true "Program index to export"
// @Success 200 {object} service.ExportOutcome
// @Failure 404 {object} gin.H "Routine not found"
// @Failure 409 {object} gin.H "Index already exported"
// @Failure 502 {object} gin.H "Hevy rejected the routine"
// @Router /routines/generated/{id}/export [post]
func (h *RoutineHandler) Export(c *gin.Context) {
	userID, routineID, ok := h.callerAndRoutine(c)
	if !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	outcome, err := h.generationService.ExportRoutine(c.Request.Context(), userID, routineID, req.RoutineIndex)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			abortWithError(c, http.StatusNotFound, "Generated routine not found")
		case errors.Is(err, service.ErrRoutineIndexRange):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrAlreadyExported):
			abortWithError(c, http.StatusConflict, "This routine has already been exported to Hevy")
		default:
			abortWithError(c, http.StatusBadGateway, "Export failed: "+err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Variants returns the week-by-week progression of one stored program,
// deload week included.
func (h *RoutineHandler) Variants(c *gin.Context) {
	userID, routineID, ok := h.callerAndRoutine(c)
	if !ok {
		return
	}

	index := 0
	if raw := c.Query("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, http.StatusBadRequest, "index must be a non-negative integer")
			return
		}
		index = parsed
	}

	variants, err := h.generationService.WeeklyVariants(c.Request.Context(), userID, routineID, index)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			abortWithError(c, http.StatusNotFound, "Generated routine not found")
		case errors.Is(err, service.ErrRoutineIndexRange):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to derive weekly variants")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

func (h *RoutineHandler) callerAndRoutine(c *gin.Context) (userID, routineID primitive.ObjectID, ok bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	routineID, err = primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid routine ID format")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, routineID, true
}
