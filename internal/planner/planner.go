package planner

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/blob"
	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/notification"
	"maintenance-planner-backend/internal/parse"
	"maintenance-planner-backend/internal/store"
)

// CompletionNotifier sends the notice that follows a completion.
type CompletionNotifier interface {
	SendCompletion(ctx context.Context, s *model.MaintenanceSchedule) notification.Outcome
}

// Service implements the schedule operations that span the database, the
// file store and the notifier.
type Service struct {
	store    store.Store
	blobs    *blob.Store
	notifier CompletionNotifier
	plans    *parse.PlanCache
	storage  config.StorageConfig
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService wires a planner service.
func NewService(st store.Store, blobs *blob.Store, notifier CompletionNotifier, plans *parse.PlanCache, storage config.StorageConfig, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if plans == nil {
		plans = parse.NewPlanCache(0)
	}
	return &Service{
		store:    st,
		blobs:    blobs,
		notifier: notifier,
		plans:    plans,
		storage:  storage,
		log:      log.Named("planner"),
		metrics:  m,
		now:      time.Now,
	}
}

// ScheduleView is a schedule with its reschedule history.
type ScheduleView struct {
	Schedule model.MaintenanceSchedule
	History  []model.MaintenanceScheduleHistory
}

// CreateInput is the data of a new schedule.
type CreateInput struct {
	MachineID            int64
	ScheduledDate        time.Time
	Shift                string
	MaintenanceFrequency *string
	Notes                string
	EmailRecipients      string
	EmailTemplate        string
}

// Create validates and stores a new schedule. The frequency defaults to the
// machine's own. No notification is sent.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.MaintenanceSchedule, error) {
	if in.MachineID <= 0 {
		return nil, store.Invalid("machineId", "is required")
	}
	if in.ScheduledDate.IsZero() {
		return nil, store.Invalid("scheduledDate", "is required")
	}
	shift, ok := model.NormalizeShift(in.Shift)
	if !ok {
		return nil, store.Invalid("shift", "must be one of A, B, C, G")
	}

	machine, err := s.store.GetMachine(ctx, in.MachineID)
	if err != nil {
		return nil, err
	}

	frequency := machine.MaintenanceFrequency
	if in.MaintenanceFrequency != nil && strings.TrimSpace(*in.MaintenanceFrequency) != "" {
		frequency = *in.MaintenanceFrequency
	}

	sched := &model.MaintenanceSchedule{
		MachineID:            machine.ID,
		ScheduledDate:        model.DateOnly(in.ScheduledDate),
		Shift:                shift,
		Status:               model.StatusScheduled,
		MaintenanceFrequency: parse.CanonicalFrequency(frequency),
		Notes:                in.Notes,
		EmailRecipients:      strings.TrimSpace(in.EmailRecipients),
		EmailTemplate:        in.EmailTemplate,
		PreNotificationSent:  false,
	}
	if err := s.store.CreateSchedule(ctx, sched); err != nil {
		return nil, err
	}
	s.log.Info("Schedule created",
		zap.Int64("schedule_id", sched.ID),
		zap.Int64("machine_id", sched.MachineID),
		zap.String("scheduled_date", model.FormatDate(sched.ScheduledDate)),
	)
	return s.store.GetSchedule(ctx, sched.ID)
}

// Update applies a partial update. A date change needs a reason in Notes.
func (s *Service) Update(ctx context.Context, id int64, u store.ScheduleUpdate) (*model.MaintenanceSchedule, error) {
	if u.MaintenanceFrequency != nil {
		canonical := parse.CanonicalFrequency(*u.MaintenanceFrequency)
		u.MaintenanceFrequency = &canonical
	}
	updated, err := s.store.UpdateSchedule(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("Schedule updated", zap.Int64("schedule_id", id))
	return updated, nil
}

// Get returns one schedule with its history.
func (s *Service) Get(ctx context.Context, id int64) (*ScheduleView, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListHistory(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return &ScheduleView{Schedule: *sched, History: history[id]}, nil
}

// List returns the matching schedules, each with its history.
func (s *Service) List(ctx context.Context, filter store.ScheduleFilter) ([]ScheduleView, error) {
	schedules, err := s.store.ListSchedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(schedules))
	for i, sched := range schedules {
		ids[i] = sched.ID
	}
	history, err := s.store.ListHistory(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ScheduleView, len(schedules))
	for i, sched := range schedules {
		views[i] = ScheduleView{Schedule: sched, History: history[sched.ID]}
	}
	return views, nil
}

// Delete removes a schedule with its history, then its files.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteSchedule(ctx, id)
	if err != nil {
		return err
	}
	s.removeQuietly(deleted.ChecksheetPath, id)
	s.removeQuietly(deleted.CompletionAttachmentPath, id)
	s.log.Info("Schedule deleted", zap.Int64("schedule_id", id))
	return nil
}

// AllowedMonthsView describes the months a machine may be scheduled in.
type AllowedMonthsView struct {
	MachineID    int64
	PMPlanYear   string
	Months       []int
	Unrestricted bool
}

// AllowedMonths derives a machine's allowed months from its PM plan year.
func (s *Service) AllowedMonths(ctx context.Context, machineID int64) (*AllowedMonthsView, error) {
	machine, err := s.store.GetMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	set := s.plans.AllowedMonths(machine.PMPlanYear)

	months := make([]int, 0, 12)
	for _, m := range set.Months() {
		months = append(months, int(m))
	}
	return &AllowedMonthsView{
		MachineID:    machine.ID,
		PMPlanYear:   machine.PMPlanYear,
		Months:       months,
		Unrestricted: set.Unrestricted(),
	}, nil
}
