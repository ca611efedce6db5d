package reminder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/notification"
	"maintenance-planner-backend/internal/store"
)

// ReminderSender is the part of the notifier the scan needs.
type ReminderSender interface {
	SendReminder(ctx context.Context, s *model.MaintenanceSchedule) notification.Outcome
}

// ScanResult summarises one scan.
type ScanResult struct {
	Candidates int
	Due        int
	Flipped    int
	Failed     int
}

// Service periodically sends day-before reminders. Each schedule is reminded
// at most once per scheduled date; the pre-notification flag is the latch.
type Service struct {
	cfg      config.ReminderConfig
	poolSize int
	store    store.Store
	sender   ReminderSender
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	started  atomic.Bool
}

// NewService creates the reminder service.
func NewService(cfg *config.Config, st store.Store, sender ReminderSender, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	rc := cfg.Reminder
	if rc.Location == nil {
		rc.Location = time.UTC
	}
	if rc.LeadDays <= 0 {
		rc.LeadDays = 1
	}
	if rc.Interval <= 0 {
		rc.Interval = time.Hour
	}
	poolSize := cfg.WorkerPool.Size
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Service{
		cfg:      rc,
		poolSize: poolSize,
		store:    st,
		sender:   sender,
		log:      log.Named("reminder"),
		metrics:  m,
		now:      time.Now,
	}
}

// Start launches the scan loop in the background. Only the first call to
// Start or Run starts it; later calls return false and do nothing.
func (s *Service) Start(ctx context.Context) bool {
	if !s.claim() {
		return false
	}
	go s.loop(ctx)
	return true
}

// Run scans immediately and then once per interval until ctx is done. It
// shares the start-once guard with Start and returns false at once when the
// loop is already running.
func (s *Service) Run(ctx context.Context) bool {
	if !s.claim() {
		return false
	}
	s.loop(ctx)
	return true
}

func (s *Service) claim() bool {
	if !s.started.CompareAndSwap(false, true) {
		s.log.Debug("Reminder loop already started")
		return false
	}
	return true
}

func (s *Service) loop(ctx context.Context) {
	if s.cfg.Disabled {
		s.log.Info("Reminder scheduler is disabled. Not starting.")
		return
	}
	s.log.Info("Starting reminder scheduler", zap.Duration("interval", s.cfg.Interval))

	s.tick(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reminder scheduler shutting down")
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// tick runs one scan and keeps a failure or panic from stopping the loop.
func (s *Service) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Reminder scan panicked", zap.Any("panic", r))
		}
	}()
	if _, err := s.ScanOnce(ctx); err != nil {
		s.log.Error("Reminder scan failed", zap.Error(err))
	}
}

// ScanOnce sends reminders for every pending schedule that is exactly the
// lead time away from today, then latches its flag. Schedules at any other
// distance, past or future, are left alone.
func (s *Service) ScanOnce(ctx context.Context) (ScanResult, error) {
	started := time.Now()
	defer func() { s.metrics.Scan(time.Since(started)) }()

	today := model.DateOnly(s.now().In(s.cfg.Location))

	candidates, err := s.store.ListReminderCandidates(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to load reminder candidates: %w", err)
	}

	result := ScanResult{Candidates: len(candidates)}
	var flipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)
	for i := range candidates {
		sched := &candidates[i]
		if DaysUntil(today, sched.ScheduledDate) != s.cfg.LeadDays {
			continue
		}
		result.Due++
		g.Go(func() error {
			ok, err := s.remind(gctx, sched)
			switch {
			case err != nil:
				failed.Add(1)
			case ok:
				flipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Flipped = int(flipped.Load())
	result.Failed = int(failed.Load())
	s.log.Info("Reminder scan finished",
		zap.String("today", today.Format(model.DateLayout)),
		zap.Int("candidates", result.Candidates),
		zap.Int("due", result.Due),
		zap.Int("flipped", result.Flipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// remind sends one reminder and latches the flag whatever the delivery
// outcome. It reports whether this call flipped the flag.
func (s *Service) remind(ctx context.Context, sched *model.MaintenanceSchedule) (bool, error) {
	log := s.log.With(zap.Int64("schedule_id", sched.ID))

	outcome := s.sender.SendReminder(ctx, sched)

	flipped, err := s.store.MarkPreNotificationSent(ctx, sched.ID, sched.ScheduledDate)
	if err != nil {
		log.Error("Failed to latch reminder flag", zap.String("outcome", string(outcome)), zap.Error(err))
		return false, err
	}
	if !flipped {
		log.Debug("Reminder flag already set")
	}
	return flipped, nil
}

// DaysUntil is the number of calendar days from today to the stored date.
func DaysUntil(today, scheduled time.Time) int {
	d := model.StoredDate(scheduled).Sub(model.DateOnly(today))
	return int(d.Hours() / 24)
}
