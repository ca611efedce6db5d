package store

import (
	"errors"
	"fmt"
	"time"

	"maintenance-planner-backend/internal/model"
)

var (
	// ErrNotFound is returned when a schedule or machine does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyCompleted is returned when completing a completed schedule.
	ErrAlreadyCompleted = errors.New("schedule is already completed")
)

// ValidationError reports a rejected input field. Nothing is written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ScheduleFilter narrows ListSchedules. Zero values mean "any".
type ScheduleFilter struct {
	MachineID int64
	Status    model.ScheduleStatus
	From      *time.Time
	To        *time.Time
}

// ScheduleUpdate carries the fields of a partial update; nil means unchanged.
type ScheduleUpdate struct {
	ScheduledDate        *time.Time
	Shift                *string
	Status               *model.ScheduleStatus
	MaintenanceFrequency *string
	Notes                *string
	EmailRecipients      *string
	EmailTemplate        *string
	MachineCode          *string
	ChangedByID          *int64
}

// Completion is the data persisted when a schedule is completed.
type Completion struct {
	Remark         string
	AttachmentPath string
	CompletedAt    time.Time
}
