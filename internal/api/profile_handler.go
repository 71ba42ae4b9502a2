package api

import (
	"errors"
	"fmt"
	"net/http"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler exposes the training profile endpoints.
type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

type SaveProfileRequest struct {
	Age             int      `json:"age"`
	BodyWeightKg    float64  `json:"bodyWeightKg"`
	WeeklyFrequency int      `json:"weeklyFrequency"`
	ExperienceLevel string   `json:"experienceLevel" binding:"required,oneof=beginner intermediate advanced"`
	FocusAreas      []string `json:"focusAreas"`
	Injuries        []string `json:"injuries"`
	InjuryDetails   string   `json:"injuryDetails"`
	OtherActivities string   `json:"otherActivities"`
}

// GetProfile godoc
// @Summary Get the caller's training profile
// @Tags Profile
// @Produce json
// @Success 200 {object} domain.UserProfile
// @Failure 404 {object} gin.H "Profile not found"
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load profile")
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveProfile godoc
// @Summary Create or update the caller's training profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param profile body SaveProfileRequest true "Profile fields"
// @Success 200 {object} domain.UserProfile
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Router /profile [put]
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile := &domain.UserProfile{
		UserID:          userID,
		Age:             req.Age,
		BodyWeightKg:    req.BodyWeightKg,
		WeeklyFrequency: req.WeeklyFrequency,
		ExperienceLevel: domain.ExperienceLevel(req.ExperienceLevel),
		FocusAreas:      req.FocusAreas,
		Injuries:        req.Injuries,
		InjuryDetails:   req.InjuryDetails,
		OtherActivities: req.OtherActivities,
	}

	saved, err := h.profileService.SaveProfile(c.Request.Context(), userID, profile)
	if err != nil {
		if errors.Is(err, service.ErrProfileValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to save profile")
		}
		return
	}
	c.JSON(http.StatusOK, saved)
}
