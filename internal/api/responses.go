package api

import (
	"time"

	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/planner"
)

// scheduleResponse is the flattened structure for the API response.
type scheduleResponse struct {
	ID                       int64             `json:"id"`
	MachineID                int64             `json:"machineId"`
	MachineName              string            `json:"machineName"`
	MachineCode              string            `json:"machineCode"`
	LineName                 string            `json:"lineName"`
	ScheduledDate            string            `json:"scheduledDate"`
	Shift                    string            `json:"shift"`
	Status                   string            `json:"status"`
	MaintenanceFrequency     string            `json:"maintenanceFrequency"`
	Notes                    string            `json:"notes"`
	EmailRecipients          string            `json:"emailRecipients"`
	EmailTemplate            string            `json:"emailTemplate"`
	ChecksheetPath           string            `json:"checksheetPath"`
	CompletionRemark         string            `json:"completionRemark"`
	CompletionAttachmentPath string            `json:"completionAttachmentPath"`
	PreviousScheduledDate    *string           `json:"previousScheduledDate"`
	PreNotificationSent      bool              `json:"preNotificationSent"`
	CompletedAt              *time.Time        `json:"completedAt"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
	History                  []historyResponse `json:"history"`
}

type historyResponse struct {
	ID                    int64     `json:"id"`
	PreviousScheduledDate string    `json:"previousScheduledDate"`
	NewScheduledDate      string    `json:"newScheduledDate"`
	Reason                *string   `json:"reason"`
	ChangedByID           *int64    `json:"changedById"`
	CreatedAt             time.Time `json:"createdAt"`
}

type yearlyPlanResponse struct {
	MachineID int64   `json:"machineId"`
	PlanYear  int     `json:"planYear"`
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

type allowedMonthsResponse struct {
	MachineID    int64  `json:"machineId"`
	PMPlanYear   string `json:"pmPlanYear"`
	Months       []int  `json:"months"`
	Unrestricted bool   `json:"unrestricted"`
}

func newScheduleResponse(s *model.MaintenanceSchedule, history []model.MaintenanceScheduleHistory) scheduleResponse {
	resp := scheduleResponse{
		ID:                       s.ID,
		MachineID:                s.MachineID,
		MachineName:              s.Machine.Name,
		MachineCode:              s.Machine.Code,
		LineName:                 s.Machine.Line.Name,
		ScheduledDate:            model.FormatDate(s.ScheduledDate),
		Shift:                    s.Shift,
		Status:                   string(s.Status),
		MaintenanceFrequency:     s.MaintenanceFrequency,
		Notes:                    s.Notes,
		EmailRecipients:          s.EmailRecipients,
		EmailTemplate:            s.EmailTemplate,
		ChecksheetPath:           s.ChecksheetPath,
		CompletionRemark:         s.CompletionRemark,
		CompletionAttachmentPath: s.CompletionAttachmentPath,
		PreNotificationSent:      s.PreNotificationSent,
		CompletedAt:              s.CompletedAt,
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
		History:                  make([]historyResponse, 0, len(history)),
	}
	if s.PreviousScheduledDate != nil {
		prev := model.FormatDate(*s.PreviousScheduledDate)
		resp.PreviousScheduledDate = &prev
	}
	for _, h := range history {
		resp.History = append(resp.History, historyResponse{
			ID:                    h.ID,
			PreviousScheduledDate: model.FormatDate(h.PreviousScheduledDate),
			NewScheduledDate:      model.FormatDate(h.NewScheduledDate),
			Reason:                h.Reason,
			ChangedByID:           h.ChangedByID,
			CreatedAt:             h.CreatedAt,
		})
	}
	return resp
}

func newScheduleResponses(views []planner.ScheduleView) []scheduleResponse {
	out := make([]scheduleResponse, 0, len(views))
	for i := range views {
		out = append(out, newScheduleResponse(&views[i].Schedule, views[i].History))
	}
	return out
}

func newYearlyPlanResponse(p *model.MaintenanceYearlyPlan) yearlyPlanResponse {
	return yearlyPlanResponse{
		MachineID: p.MachineID,
		PlanYear:  p.PlanYear,
		Frequency: p.Frequency,
		Jan:       p.Jan,
		Feb:       p.Feb,
		Mar:       p.Mar,
		Apr:       p.Apr,
		May:       p.May,
		Jun:       p.Jun,
		Jul:       p.Jul,
		Aug:       p.Aug,
		Sep:       p.Sep,
		Oct:       p.Oct,
		Nov:       p.Nov,
		Dec:       p.Dec,
	}
}
