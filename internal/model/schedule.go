package model

import (
	"strings"
	"time"
)

// ScheduleStatus is the lifecycle state of a maintenance occurrence.
type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusCompleted ScheduleStatus = "completed"
)

// DateLayout is the wire and template format for calendar dates.
const DateLayout = "2006-01-02"

var validShifts = map[string]bool{"A": true, "B": true, "C": true, "G": true}

// NormalizeShift upper-cases and trims a shift code and reports whether it is one of A, B, C or G.
func NormalizeShift(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, validShifts[s]
}

// MaintenanceSchedule is one planned or completed maintenance occurrence.
type MaintenanceSchedule struct {
	ID                       int64          `gorm:"primaryKey"`
	MachineID                int64          `gorm:"index;not null"`
	ScheduledDate            time.Time      `gorm:"index;not null"`
	Shift                    string         `gorm:"size:1;not null"`
	Status                   ScheduleStatus `gorm:"size:32;index;not null"`
	MaintenanceFrequency     string         `gorm:"size:64"`
	Notes                    string         `gorm:"type:text"`
	EmailRecipients          string         `gorm:"type:text"`
	EmailTemplate            string         `gorm:"type:text"`
	ChecksheetPath           string         `gorm:"size:512"`
	CompletionRemark         string         `gorm:"type:text"`
	CompletionAttachmentPath string         `gorm:"size:512"`
	PreviousScheduledDate    *time.Time
	PreNotificationSent      bool `gorm:"not null;default:false"`
	CompletedAt              *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time

	// Associations
	Machine Machine `gorm:"constraint:OnDelete:CASCADE"`
}

// MaintenanceScheduleHistory is an immutable record of one reschedule.
type MaintenanceScheduleHistory struct {
	ID                    int64     `gorm:"primaryKey"`
	ScheduleID            int64     `gorm:"index;not null"`
	PreviousScheduledDate time.Time `gorm:"not null"`
	NewScheduledDate      time.Time `gorm:"not null"`
	Reason                *string   `gorm:"type:text"`
	ChangedByID           *int64    `gorm:"index"`
	CreatedAt             time.Time `gorm:"not null"`
}

// DateOnly truncates t to its calendar date at midnight UTC.
// The date is taken in t's own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StoredDate returns the calendar date of a value read back from the database.
func StoredDate(t time.Time) time.Time {
	return DateOnly(t.UTC())
}

// ParseDate accepts yyyy-MM-dd or RFC3339 and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOnly(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// FormatDate renders a stored date as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return StoredDate(t).Format(DateLayout)
}
