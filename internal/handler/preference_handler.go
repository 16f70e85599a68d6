package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/service"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/response"
)

// PreferenceHandler exposes the student preference submission endpoint.
type PreferenceHandler struct {
	service *service.SubmissionService
}

// NewPreferenceHandler creates a new handler.
func NewPreferenceHandler(svc *service.SubmissionService) *PreferenceHandler {
	return &PreferenceHandler{service: svc}
}

// Submit godoc
// @Summary Submit elective preferences
// @Description Record a student's ranked elective choices for a cycle. Submissions are final.
// @Tags CBCS
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPreferencesRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /cbcs/preferences [post]
func (h *PreferenceHandler) Submit(c *gin.Context) {
	var req dto.SubmitPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	// Students may only submit for themselves; staff and admins may submit
	// on a student's behalf.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.UserID != req.StudentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only submit their own choices"))
		return
	}

	res, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}
