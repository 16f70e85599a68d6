package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/service"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/response"
)

// CycleHandler exposes CBCS cycle management endpoints.
type CycleHandler struct {
	service *service.CycleService
}

// NewCycleHandler creates a new handler.
func NewCycleHandler(svc *service.CycleService) *CycleHandler {
	return &CycleHandler{service: svc}
}

// Create godoc
// @Summary Create allocation cycle
// @Description Open a new CBCS cycle with its subjects and section capacities
// @Tags CBCS
// @Accept json
// @Produce json
// @Param payload body dto.CreateCycleRequest true "Cycle payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cbcs/cycles [post]
func (h *CycleHandler) Create(c *gin.Context) {
	var req dto.CreateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cycle payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	detail, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// List godoc
// @Summary List allocation cycles
// @Tags CBCS
// @Produce json
// @Param batch_id query string false "Batch filter"
// @Param dept_id query string false "Department filter"
// @Param semester_id query string false "Semester filter"
// @Param complete query bool false "Completion filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cbcs/cycles [get]
func (h *CycleHandler) List(c *gin.Context) {
	filter := models.CycleFilter{
		BatchID:    c.Query("batch_id"),
		DeptID:     c.Query("dept_id"),
		SemesterID: c.Query("semester_id"),
	}
	if raw := c.Query("complete"); raw != "" {
		complete, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "complete must be a boolean"))
			return
		}
		filter.Complete = &complete
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	cycles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cycles, pagination)
}

// Get godoc
// @Summary Get cycle detail
// @Description Returns a cycle with its subjects and section capacities
// @Tags CBCS
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cbcs/cycles/{id} [get]
func (h *CycleHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ActiveSelection godoc
// @Summary Get active selection view
// @Description Returns the active cycle's subjects and sections for a (batch, dept, semester) scope
// @Tags CBCS
// @Produce json
// @Param batch_id query string true "Batch"
// @Param dept_id query string true "Department"
// @Param semester_id query string true "Semester"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cbcs/cycles/active [get]
func (h *CycleHandler) ActiveSelection(c *gin.Context) {
	detail, err := h.service.ActiveSelection(c.Request.Context(), c.Query("batch_id"), c.Query("dept_id"), c.Query("semester_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Progress godoc
// @Summary Get submission progress
// @Description Reports how many students have submitted against the expected total
// @Tags CBCS
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cbcs/cycles/{id}/progress [get]
func (h *CycleHandler) Progress(c *gin.Context) {
	progress, err := h.service.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
