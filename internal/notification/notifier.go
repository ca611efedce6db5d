package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/model"
)

// Notification kinds, used as log and metric labels.
const (
	KindReminder   = "reminder"
	KindCompletion = "completion"
)

// Outcome is the result of one notification attempt.
type Outcome string

const (
	Sent    Outcome = metrics.ResultSent
	Skipped Outcome = metrics.ResultSkipped
	Failed  Outcome = metrics.ResultFailed
)

// Notifier renders and delivers reminder and completion mail. Delivery
// problems are logged and reported as an Outcome, never as an error.
type Notifier struct {
	mailer   Mailer
	defaults []string
	loc      *time.Location
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewNotifier creates a notifier. defaults is the fallback recipient list and
// loc the zone completion dates are shown in.
func NewNotifier(mailer Mailer, defaults []string, loc *time.Location, log *zap.Logger, m *metrics.Metrics) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		mailer:   mailer,
		defaults: defaults,
		loc:      loc,
		log:      log,
		metrics:  m,
	}
}

// SendReminder sends the day-before reminder of s.
func (n *Notifier) SendReminder(ctx context.Context, s *model.MaintenanceSchedule) Outcome {
	fields := Fields(s, n.loc)
	fields[FieldCompletedDate] = ""
	return n.send(ctx, KindReminder, s, Message{
		Subject: ReminderSubject(fields),
		HTML:    Render(s.EmailTemplate, DefaultReminderTemplate, fields),
	})
}

// SendCompletion sends the completion notice of s.
func (n *Notifier) SendCompletion(ctx context.Context, s *model.MaintenanceSchedule) Outcome {
	fields := Fields(s, n.loc)
	return n.send(ctx, KindCompletion, s, Message{
		Subject: CompletionSubject(fields),
		HTML:    Render(s.EmailTemplate, DefaultCompletionTemplate, fields),
	})
}

func (n *Notifier) send(ctx context.Context, kind string, s *model.MaintenanceSchedule, msg Message) (outcome Outcome) {
	log := n.log.With(zap.String("kind", kind), zap.Int64("schedule_id", s.ID))
	defer func() { n.metrics.Notification(kind, string(outcome)) }()

	msg.To = Recipients(s.EmailRecipients, n.defaults)
	if len(msg.To) == 0 {
		log.Warn("No recipients configured, skipping notification")
		return Skipped
	}
	if n.mailer == nil {
		log.Warn("No mailer configured, skipping notification")
		return Skipped
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		log.Error("Failed to send notification", zap.Strings("to", msg.To), zap.Error(err))
		return Failed
	}
	log.Info("Notification sent", zap.Strings("to", msg.To))
	return Sent
}
