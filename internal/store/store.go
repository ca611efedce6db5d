package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"maintenance-planner-backend/internal/model"
)

// Store defines the interface for all database operations of the planner.
type Store interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error

	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	GetMachines(ctx context.Context, ids []int64) (map[int64]model.Machine, error)

	CreateSchedule(ctx context.Context, sched *model.MaintenanceSchedule) error
	GetSchedule(ctx context.Context, id int64) (*model.MaintenanceSchedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]model.MaintenanceSchedule, error)
	UpdateSchedule(ctx context.Context, id int64, update ScheduleUpdate) (*model.MaintenanceSchedule, error)
	CompleteSchedule(ctx context.Context, id int64, c Completion) (*model.MaintenanceSchedule, error)
	SetChecksheetPath(ctx context.Context, id int64, path string) error
	DeleteSchedule(ctx context.Context, id int64) (*model.MaintenanceSchedule, error)

	ListReminderCandidates(ctx context.Context) ([]model.MaintenanceSchedule, error)
	MarkPreNotificationSent(ctx context.Context, id int64, scheduledDate time.Time) (bool, error)

	ListHistory(ctx context.Context, scheduleIDs []int64) (map[int64][]model.MaintenanceScheduleHistory, error)

	ListYearlyPlans(ctx context.Context, year int) ([]model.MaintenanceYearlyPlan, error)
	SaveYearlyPlans(ctx context.Context, year int, plans []model.MaintenanceYearlyPlan, derived []model.MaintenanceSchedule) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetMachine loads a machine with its line.
func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var machine model.Machine
	if err := s.db.WithContext(ctx).Preload("Line").First(&machine, id).Error; err != nil {
		return nil, notFound(err, "machine %d", id)
	}
	return &machine, nil
}

// GetMachines loads the machines with the given IDs, keyed by ID. Unknown IDs are absent.
func (s *gormStore) GetMachines(ctx context.Context, ids []int64) (map[int64]model.Machine, error) {
	machineMap := make(map[int64]model.Machine, len(ids))
	if len(ids) == 0 {
		return machineMap, nil
	}
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch machines: %w", err)
	}
	for _, m := range machines {
		machineMap[m.ID] = m
	}
	return machineMap, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", fmt.Sprintf(format, args...), err)
}
