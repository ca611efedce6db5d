package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAllowedMonths handles GET /api/machines/:id/allowed-months.
func (h *Handler) GetAllowedMonths(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.planner.AllowedMonths(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, allowedMonthsResponse{
		MachineID:    view.MachineID,
		PMPlanYear:   view.PMPlanYear,
		Months:       view.Months,
		Unrestricted: view.Unrestricted,
	})
}
