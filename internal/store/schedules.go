package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-planner-backend/internal/model"
)

// CreateSchedule inserts a new schedule. Callers validate the input.
func (s *gormStore) CreateSchedule(ctx context.Context, sched *model.MaintenanceSchedule) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(sched).Error; err != nil {
		return fmt.Errorf("failed to create schedule for machine %d: %w", sched.MachineID, err)
	}
	return nil
}

// GetSchedule loads a schedule with its machine and line.
func (s *gormStore) GetSchedule(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	var sched model.MaintenanceSchedule
	if err := s.db.WithContext(ctx).Preload("Machine.Line").First(&sched, id).Error; err != nil {
		return nil, notFound(err, "schedule %d", id)
	}
	return &sched, nil
}

// ListSchedules returns schedules ordered by date, joined with machine and line.
func (s *gormStore) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]model.MaintenanceSchedule, error) {
	q := s.db.WithContext(ctx).Preload("Machine.Line")
	if filter.MachineID != 0 {
		q = q.Where("machine_id = ?", filter.MachineID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.From != nil {
		q = q.Where("scheduled_date >= ?", model.DateOnly(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("scheduled_date <= ?", model.DateOnly(*filter.To))
	}

	var schedules []model.MaintenanceSchedule
	if err := q.Order("scheduled_date ASC").Order("id ASC").Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// UpdateSchedule applies a partial update in one transaction. A change of
// scheduled date requires a non-empty Notes value as the reason, resets the
// reminder latch and appends exactly one history entry.
func (s *gormStore) UpdateSchedule(ctx context.Context, id int64, u ScheduleUpdate) (*model.MaintenanceSchedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.MaintenanceSchedule
		if err := tx.First(&current, id).Error; err != nil {
			return notFound(err, "schedule %d", id)
		}

		updates := map[string]any{}

		if u.Shift != nil {
			shift, ok := model.NormalizeShift(*u.Shift)
			if !ok {
				return Invalid("shift", "must be one of A, B, C, G")
			}
			updates["shift"] = shift
		}

		if u.Status != nil {
			switch status := model.ScheduleStatus(strings.TrimSpace(string(*u.Status))); status {
			case "":
				return Invalid("status", "must not be empty")
			case model.StatusCompleted:
				if current.Status != model.StatusCompleted {
					return Invalid("status", "completion requires a remark and an attachment")
				}
			default:
				updates["status"] = string(status)
				updates["completed_at"] = nil
			}
		}

		var change *model.MaintenanceScheduleHistory
		if u.ScheduledDate != nil {
			newDate := model.DateOnly(*u.ScheduledDate)
			oldDate := model.StoredDate(current.ScheduledDate)
			if !newDate.Equal(oldDate) {
				var reason string
				if u.Notes != nil {
					reason = strings.TrimSpace(*u.Notes)
				}
				if reason == "" {
					return Invalid("notes", "a reason is required when changing the scheduled date")
				}
				updates["scheduled_date"] = newDate
				updates["previous_scheduled_date"] = oldDate
				updates["pre_notification_sent"] = false
				change = &model.MaintenanceScheduleHistory{
					ScheduleID:            id,
					PreviousScheduledDate: oldDate,
					NewScheduledDate:      newDate,
					Reason:                &reason,
					ChangedByID:           u.ChangedByID,
				}
			}
		}

		if u.Notes != nil {
			updates["notes"] = *u.Notes
		}
		if u.MaintenanceFrequency != nil {
			updates["maintenance_frequency"] = strings.TrimSpace(*u.MaintenanceFrequency)
		}
		if u.EmailRecipients != nil {
			updates["email_recipients"] = strings.TrimSpace(*u.EmailRecipients)
		}
		if u.EmailTemplate != nil {
			updates["email_template"] = *u.EmailTemplate
		}

		if u.MachineCode != nil {
			if err := tx.Model(&model.Machine{}).
				Where("id = ?", current.MachineID).
				Update("code", strings.TrimSpace(*u.MachineCode)).Error; err != nil {
				return fmt.Errorf("failed to update code of machine %d: %w", current.MachineID, err)
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&model.MaintenanceSchedule{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update schedule %d: %w", id, err)
			}
		}

		if change != nil {
			return recordChange(tx, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchedule(ctx, id)
}

// CompleteSchedule marks a not-yet-completed schedule as completed.
func (s *gormStore) CompleteSchedule(ctx context.Context, id int64, c Completion) (*model.MaintenanceSchedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MaintenanceSchedule{}).
			Where("id = ? AND status <> ?", id, string(model.StatusCompleted)).
			Updates(map[string]any{
				"status":                     string(model.StatusCompleted),
				"completed_at":               c.CompletedAt,
				"completion_remark":          c.Remark,
				"completion_attachment_path": c.AttachmentPath,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete schedule %d: %w", id, res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&model.MaintenanceSchedule{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to load schedule %d: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("schedule %d: %w", id, ErrAlreadyCompleted)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchedule(ctx, id)
}

// SetChecksheetPath stores (or clears, with "") the checksheet reference.
func (s *gormStore) SetChecksheetPath(ctx context.Context, id int64, path string) error {
	res := s.db.WithContext(ctx).Model(&model.MaintenanceSchedule{}).Where("id = ?", id).Update("checksheet_path", path)
	if res.Error != nil {
		return fmt.Errorf("failed to update checksheet of schedule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSchedule removes a schedule together with its history and returns the deleted row.
func (s *gormStore) DeleteSchedule(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	var deleted model.MaintenanceSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			return notFound(err, "schedule %d", id)
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&model.MaintenanceScheduleHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete history of schedule %d: %w", id, err)
		}
		if err := tx.Delete(&model.MaintenanceSchedule{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete schedule %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// ListReminderCandidates returns scheduled rows whose reminder has not been sent.
func (s *gormStore) ListReminderCandidates(ctx context.Context) ([]model.MaintenanceSchedule, error) {
	var schedules []model.MaintenanceSchedule
	err := s.db.WithContext(ctx).
		Preload("Machine.Line").
		Where("status = ? AND pre_notification_sent = ?", string(model.StatusScheduled), false).
		Order("scheduled_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	return schedules, nil
}

// MarkPreNotificationSent latches the reminder flag for the date the reminder
// was sent for. It reports whether this call flipped it; a flag that is
// already set, or a schedule that has since moved to another date, is left alone.
func (s *gormStore) MarkPreNotificationSent(ctx context.Context, id int64, scheduledDate time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.MaintenanceSchedule{}).
		Where("id = ? AND pre_notification_sent = ? AND scheduled_date = ?", id, false, model.StoredDate(scheduledDate)).
		Update("pre_notification_sent", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark reminder sent for schedule %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
