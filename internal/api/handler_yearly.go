package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-planner-backend/internal/planner"
)

type yearlyPlanRequest struct {
	MachineID int64   `json:"machineId"`
	Frequency *string `json:"frequency"`
	Jan       *string `json:"jan"`
	Feb       *string `json:"feb"`
	Mar       *string `json:"mar"`
	Apr       *string `json:"apr"`
	May       *string `json:"may"`
	Jun       *string `json:"jun"`
	Jul       *string `json:"jul"`
	Aug       *string `json:"aug"`
	Sep       *string `json:"sep"`
	Oct       *string `json:"oct"`
	Nov       *string `json:"nov"`
	Dec       *string `json:"dec"`
}

type saveYearlyPlansRequest struct {
	Year  int                 `json:"year"`
	Plans []yearlyPlanRequest `json:"plans"`
}

func (r yearlyPlanRequest) row() planner.YearlyPlanRow {
	return planner.YearlyPlanRow{
		MachineID: r.MachineID,
		Frequency: r.Frequency,
		Months:    [12]*string{r.Jan, r.Feb, r.Mar, r.Apr, r.May, r.Jun, r.Jul, r.Aug, r.Sep, r.Oct, r.Nov, r.Dec},
	}
}

// ListYearlyPlans handles GET /api/yearly-maintenance-plans?year=YYYY.
// The current year is used when year is omitted.
func (h *Handler) ListYearlyPlans(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
			return
		}
		year = y
	}

	plans, err := h.planner.YearlyPlans(c.Request.Context(), year)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]yearlyPlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, newYearlyPlanResponse(&plans[i]))
	}
	c.JSON(http.StatusOK, out)
}

// SaveYearlyPlans handles POST /api/yearly-maintenance-plans.
func (h *Handler) SaveYearlyPlans(c *gin.Context) {
	var req saveYearlyPlansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rows := make([]planner.YearlyPlanRow, 0, len(req.Plans))
	for _, p := range req.Plans {
		rows = append(rows, p.row())
	}
	if err := h.planner.SaveYearlyPlans(c.Request.Context(), req.Year, rows); err != nil {
		h.fail(c, err)
		return
	}

	plans, err := h.planner.YearlyPlans(c.Request.Context(), req.Year)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]yearlyPlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, newYearlyPlanResponse(&plans[i]))
	}
	c.JSON(http.StatusOK, out)
}
