package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/mw"
	"maintenance-planner-backend/internal/planner"
	"maintenance-planner-backend/internal/store"
)

type createScheduleRequest struct {
	MachineID            int64   `json:"machineId"`
	ScheduledDate        string  `json:"scheduledDate"`
	Shift                string  `json:"shift"`
	MaintenanceFrequency *string `json:"maintenanceFrequency"`
	Notes                string  `json:"notes"`
	EmailRecipients      string  `json:"emailRecipients"`
	EmailTemplate        string  `json:"emailTemplate"`
}

type updateScheduleRequest struct {
	ScheduledDate        *string `json:"scheduledDate"`
	Shift                *string `json:"shift"`
	Status               *string `json:"status"`
	MaintenanceFrequency *string `json:"maintenanceFrequency"`
	Notes                *string `json:"notes"`
	EmailRecipients      *string `json:"emailRecipients"`
	EmailTemplate        *string `json:"emailTemplate"`
	MachineCode          *string `json:"machineCode"`
}

// ListSchedules handles GET /api/maintenance-plans.
func (h *Handler) ListSchedules(c *gin.Context) {
	var filter store.ScheduleFilter

	if raw := c.Query("machineId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid machineId"})
			return
		}
		filter.MachineID = id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.ScheduleStatus(strings.ToLower(raw))
		if status != model.StatusScheduled && status != model.StatusCompleted {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		filter.Status = status
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + q.name + "' date. Use YYYY-MM-DD."})
			return
		}
		*q.dst = &d
	}

	views, err := h.planner.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponses(views))
}

// GetSchedule handles GET /api/maintenance-plans/:id.
func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.planner.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponse(&view.Schedule, view.History))
}

// CreateSchedule handles POST /api/maintenance-plans.
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.ScheduledDate) == "" {
		h.fail(c, store.Invalid("scheduledDate", "is required"))
		return
	}
	date, err := model.ParseDate(req.ScheduledDate)
	if err != nil {
		h.fail(c, store.Invalid("scheduledDate", "must be YYYY-MM-DD"))
		return
	}

	sched, err := h.planner.Create(c.Request.Context(), planner.CreateInput{
		MachineID:            req.MachineID,
		ScheduledDate:        date,
		Shift:                req.Shift,
		MaintenanceFrequency: req.MaintenanceFrequency,
		Notes:                req.Notes,
		EmailRecipients:      req.EmailRecipients,
		EmailTemplate:        req.EmailTemplate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newScheduleResponse(sched, nil))
}

// UpdateSchedule handles PUT /api/maintenance-plans/:id.
func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u := store.ScheduleUpdate{
		Shift:                req.Shift,
		MaintenanceFrequency: req.MaintenanceFrequency,
		Notes:                req.Notes,
		EmailRecipients:      req.EmailRecipients,
		EmailTemplate:        req.EmailTemplate,
		MachineCode:          req.MachineCode,
		ChangedByID:          mw.UserID(c),
	}
	if req.ScheduledDate != nil {
		date, err := model.ParseDate(*req.ScheduledDate)
		if err != nil {
			h.fail(c, store.Invalid("scheduledDate", "must be YYYY-MM-DD"))
			return
		}
		u.ScheduledDate = &date
	}
	if req.Status != nil {
		status := model.ScheduleStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		u.Status = &status
	}

	sched, err := h.planner.Update(c.Request.Context(), id, u)
	if err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.planner.Get(c.Request.Context(), sched.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponse(&view.Schedule, view.History))
}

// DeleteSchedule handles DELETE /api/maintenance-plans/:id.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.planner.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
