package notification

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"maintenance-planner-backend/internal/model"
)

// Template field names.
const (
	FieldMachineName          = "machineName"
	FieldMachineCode          = "machineCode"
	FieldMachineCodeFormatted = "machineCodeFormatted"
	FieldLineName             = "lineName"
	FieldScheduledDate        = "scheduledDate"
	FieldMaintenanceFrequency = "maintenanceFrequency"
	FieldNotes                = "notes"
	FieldCompletedDate        = "completedDate"
)

// DefaultReminderTemplate is used when a schedule has no template of its own.
const DefaultReminderTemplate = `Dear Team,

This is a reminder that preventive maintenance is scheduled for tomorrow.

Machine: {{machineName}}{{machineCodeFormatted}}
Line: {{lineName}}
Scheduled date: {{scheduledDate}}
Frequency: {{maintenanceFrequency}}
Notes: {{notes}}

Please make sure the machine is available.`

// DefaultCompletionTemplate is used for completion notices.
const DefaultCompletionTemplate = `Dear Team,

Preventive maintenance has been completed.

Machine: {{machineName}}{{machineCodeFormatted}}
Line: {{lineName}}
Scheduled date: {{scheduledDate}}
Completed on: {{completedDate}}
Frequency: {{maintenanceFrequency}}
Remark: {{notes}}`

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render fills tmpl, or def when tmpl is blank, with fields. Each placeholder
// is replaced exactly once; substituted values are HTML-escaped and never
// expanded again. Unknown placeholders become empty. Line breaks become <br/>.
func Render(tmpl, def string, fields map[string]string) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = def
	}
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return html.EscapeString(fields[name])
	})
	return breakLines(out)
}

func breakLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// Fields builds the template fields of a schedule. completedDate is empty
// unless the schedule has been completed and is the calendar date in loc
// (UTC when loc is nil).
func Fields(s *model.MaintenanceSchedule, loc *time.Location) map[string]string {
	if loc == nil {
		loc = time.UTC
	}
	code := strings.TrimSpace(s.Machine.Code)
	formatted := ""
	if code != "" {
		formatted = fmt.Sprintf(" (Code: %s)", code)
	}
	frequency := s.MaintenanceFrequency
	if frequency == "" {
		frequency = s.Machine.MaintenanceFrequency
	}
	notes := s.Notes
	if s.Status == model.StatusCompleted && s.CompletionRemark != "" {
		notes = s.CompletionRemark
	}
	completed := ""
	if s.CompletedAt != nil {
		completed = s.CompletedAt.In(loc).Format(model.DateLayout)
	}

	return map[string]string{
		FieldMachineName:          s.Machine.Name,
		FieldMachineCode:          code,
		FieldMachineCodeFormatted: formatted,
		FieldLineName:             s.Machine.Line.Name,
		FieldScheduledDate:        model.FormatDate(s.ScheduledDate),
		FieldMaintenanceFrequency: frequency,
		FieldNotes:                notes,
		FieldCompletedDate:        completed,
	}
}

// ReminderSubject is the subject line of a reminder.
func ReminderSubject(f map[string]string) string {
	return fmt.Sprintf("Maintenance reminder: %s%s on %s", f[FieldMachineName], f[FieldMachineCodeFormatted], f[FieldScheduledDate])
}

// CompletionSubject is the subject line of a completion notice.
func CompletionSubject(f map[string]string) string {
	return fmt.Sprintf("Maintenance completed: %s%s", f[FieldMachineName], f[FieldMachineCodeFormatted])
}
