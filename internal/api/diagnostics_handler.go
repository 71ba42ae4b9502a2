package api

import (
	"errors"
	"net/http"
	"strconv"

	"fitforge/coach-app/internal/repository"
	"fitforge/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultErrorLogLimit = 50

// DiagnosticsHandler exposes the error-log triage endpoints.
type DiagnosticsHandler struct {
	diagnosticsService service.DiagnosticsService
}

func NewDiagnosticsHandler(diagnosticsService service.DiagnosticsService) *DiagnosticsHandler {
	return &DiagnosticsHandler{diagnosticsService: diagnosticsService}
}

// List godoc
// @Summary List unresolved diagnostic records
// @Description Each record includes a temporary download URL for its archived
// @Description raw model output when one was stored.
// @Tags Diagnostics
// @Produce json
// @Param limit query int false "Maximum records to return (default 50)"
// @Success 200 {object} gin.H "errors array"
// @Router /errors [get]
func (h *DiagnosticsHandler) List(c *gin.Context) {
	limit := int64(defaultErrorLogLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 200 {
			abortWithError(c, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	entries, err := h.diagnosticsService.UnresolvedErrors(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list diagnostic records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": entries})
}

// Resolve godoc
// @Summary Mark a diagnostic record as handled
// @Description Resolving deletes the archived artifact, if any.
// @Tags Diagnostics
// @Produce json
// @Param id path string true "Error log ID"
// @Success 200 {object} gin.H "resolved record"
// @Failure 404 {object} gin.H "Record not found"
// @Router /errors/{id}/resolve [post]
func (h *DiagnosticsHandler) Resolve(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid error log ID format")
		return
	}

	entry, err := h.diagnosticsService.ResolveError(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "Diagnostic record not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to resolve diagnostic record")
		}
		return
	}
	c.JSON(http.StatusOK, entry)
}
