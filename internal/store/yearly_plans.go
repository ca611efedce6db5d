package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-planner-backend/internal/model"
)

// ListYearlyPlans returns every grid row of a plan year.
func (s *gormStore) ListYearlyPlans(ctx context.Context, year int) ([]model.MaintenanceYearlyPlan, error) {
	var plans []model.MaintenanceYearlyPlan
	if err := s.db.WithContext(ctx).Where("plan_year = ?", year).Order("machine_id ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list yearly plans for %d: %w", year, err)
	}
	return plans, nil
}

// SaveYearlyPlans rewrites the given machine rows of a plan year and inserts
// the derived schedules in one transaction. Rows without content are deleted
// instead of stored. A derived schedule is skipped when its machine already
// has a schedule in the same calendar month; inserted ones get their ID set.
func (s *gormStore) SaveYearlyPlans(ctx context.Context, year int, plans []model.MaintenanceYearlyPlan, derived []model.MaintenanceSchedule) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range plans {
			plan := &plans[i]
			plan.PlanYear = year

			if plan.IsEmpty() {
				if err := tx.Where("machine_id = ? AND plan_year = ?", plan.MachineID, year).
					Delete(&model.MaintenanceYearlyPlan{}).Error; err != nil {
					return fmt.Errorf("failed to delete yearly plan of machine %d: %w", plan.MachineID, err)
				}
				continue
			}

			if err := upsertYearlyPlan(tx, plan); err != nil {
				return err
			}
		}

		for i := range derived {
			if err := insertUnlessMonthTaken(tx, &derived[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertUnlessMonthTaken(tx *gorm.DB, sched *model.MaintenanceSchedule) error {
	day := model.StoredDate(sched.ScheduledDate)
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)

	var count int64
	if err := tx.Model(&model.MaintenanceSchedule{}).
		Where("machine_id = ? AND scheduled_date >= ? AND scheduled_date < ?", sched.MachineID, start, start.AddDate(0, 1, 0)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check schedules of machine %d in %s: %w", sched.MachineID, start.Format("2006-01"), err)
	}
	if count > 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(sched).Error; err != nil {
		return fmt.Errorf("failed to create schedule of machine %d on %s: %w", sched.MachineID, model.FormatDate(day), err)
	}
	return nil
}

func upsertYearlyPlan(tx *gorm.DB, plan *model.MaintenanceYearlyPlan) error {
	columns := append([]string{"frequency"}, model.MonthColumns...)
	columns = append(columns, "updated_at")

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "machine_id"}, {Name: "plan_year"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(plan).Error
	if err != nil {
		return fmt.Errorf("failed to upsert yearly plan of machine %d: %w", plan.MachineID, err)
	}
	return nil
}
