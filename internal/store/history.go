package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"maintenance-planner-backend/internal/model"
)

// recordChange appends a reschedule entry. It is only called inside the
// UpdateSchedule transaction so the entry and the live row commit together.
func recordChange(tx *gorm.DB, entry *model.MaintenanceScheduleHistory) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record reschedule of schedule %d: %w", entry.ScheduleID, err)
	}
	return nil
}

// ListHistory returns the reschedule entries of the given schedules, each
// list ordered by previous date and then creation time.
func (s *gormStore) ListHistory(ctx context.Context, scheduleIDs []int64) (map[int64][]model.MaintenanceScheduleHistory, error) {
	byID := make(map[int64][]model.MaintenanceScheduleHistory, len(scheduleIDs))
	if len(scheduleIDs) == 0 {
		return byID, nil
	}

	var entries []model.MaintenanceScheduleHistory
	err := s.db.WithContext(ctx).
		Where("schedule_id IN ?", scheduleIDs).
		Order("previous_scheduled_date ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule history: %w", err)
	}

	for _, e := range entries {
		byID[e.ScheduleID] = append(byID[e.ScheduleID], e)
	}
	return byID, nil
}
