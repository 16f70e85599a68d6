package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-cbcs-api/internal/service"
	"github.com/noah-isme/college-cbcs-api/pkg/response"
)

// AllocationHandler exposes finalization and roster endpoints.
type AllocationHandler struct {
	finalization *service.FinalizationService
	rosters      *service.RosterService
}

// NewAllocationHandler creates a new handler.
func NewAllocationHandler(finalization *service.FinalizationService, rosters *service.RosterService) *AllocationHandler {
	return &AllocationHandler{finalization: finalization, rosters: rosters}
}

// Finalize godoc
// @Summary Finalize a cycle
// @Description Run the allocation engine over every subject of the cycle and mark it complete
// @Tags CBCS
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /cbcs/cycles/{id}/finalize [post]
func (h *AllocationHandler) Finalize(c *gin.Context) {
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	result, err := h.finalization.Finalize(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Allocations godoc
// @Summary Get final allocations
// @Description Returns the cycle's final rosters grouped by course and section
// @Tags CBCS
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cbcs/cycles/{id}/allocations [get]
func (h *AllocationHandler) Allocations(c *gin.Context) {
	result, err := h.rosters.Allocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export final allocations
// @Description Download the cycle's rosters as CSV or PDF
// @Tags CBCS
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Cycle ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cbcs/cycles/{id}/allocations/export [get]
func (h *AllocationHandler) Export(c *gin.Context) {
	payload, contentType, filename, err := h.rosters.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
