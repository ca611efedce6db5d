package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/model"
)

// mockMailer is a mock implementation of the Mailer interface.
type mockMailer struct {
	mu       sync.Mutex
	sent     []Message
	SendFunc func(ctx context.Context, msg Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

func testSchedule() *model.MaintenanceSchedule {
	return &model.MaintenanceSchedule{
		ID:            11,
		ScheduledDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:        model.StatusScheduled,
		Machine: model.Machine{
			Name: "CNC Lathe",
			Code: "CNC-1",
			Line: model.Line{Name: "Line 1"},
		},
	}
}

func TestNotifier_SendReminder(t *testing.T) {
	mailer := &mockMailer{}
	n := NewNotifier(mailer, []string{"ops@example.com"}, nil, zap.NewNop(), nil)

	s := testSchedule()
	s.EmailTemplate = "Hi {{machineName}}, due {{scheduledDate}}\nBye"

	outcome := n.SendReminder(context.Background(), s)
	assert.Equal(t, Sent, outcome)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Equal(t, "Hi CNC Lathe, due 2025-06-01<br/>Bye", msg.HTML)
	assert.Equal(t, "Maintenance reminder: CNC Lathe (Code: CNC-1) on 2025-06-01", msg.Subject)
}

func TestNotifier_CompletionDateInConfiguredZone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	mailer := &mockMailer{}
	n := NewNotifier(mailer, []string{"ops@example.com"}, kolkata, zap.NewNop(), nil)

	// Just after midnight in Kolkata, still the previous day in UTC.
	completedAt := time.Date(2025, 6, 1, 18, 45, 0, 0, time.UTC)
	s := testSchedule()
	s.Status = model.StatusCompleted
	s.CompletionRemark = "done"
	s.CompletedAt = &completedAt
	s.EmailTemplate = "Completed {{completedDate}}"

	assert.Equal(t, Sent, n.SendCompletion(context.Background(), s))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Completed 2025-06-02", mailer.sent[0].HTML)
}

func TestNotifier_SendCompletionUsesDefaultTemplate(t *testing.T) {
	mailer := &mockMailer{}
	n := NewNotifier(mailer, nil, nil, nil, nil)

	completedAt := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	s := testSchedule()
	s.EmailRecipients = "planner@example.com"
	s.Status = model.StatusCompleted
	s.CompletionRemark = "belts replaced"
	s.CompletedAt = &completedAt

	assert.Equal(t, Sent, n.SendCompletion(context.Background(), s))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"planner@example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "Completed on: 2025-06-01")
	assert.Contains(t, msg.HTML, "Remark: belts replaced")
	assert.Contains(t, msg.HTML, "<br/>")
	assert.NotContains(t, msg.HTML, "{{")
}

func TestNotifier_SkipsWithoutRecipients(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mailer := &mockMailer{}
	n := NewNotifier(mailer, nil, nil, zap.New(core), nil)

	assert.Equal(t, Skipped, n.SendReminder(context.Background(), testSchedule()))
	assert.Empty(t, mailer.sent)

	entries := logs.FilterMessage("No recipients configured, skipping notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(11), entries[0].ContextMap()["schedule_id"])
}

func TestNotifier_LogsDeliveryFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mailer := &mockMailer{
		SendFunc: func(ctx context.Context, msg Message) error {
			return errors.New("relay unavailable")
		},
	}
	n := NewNotifier(mailer, []string{"ops@example.com"}, nil, zap.New(core), nil)

	assert.Equal(t, Failed, n.SendReminder(context.Background(), testSchedule()))
	assert.Equal(t, 1, logs.FilterMessage("Failed to send notification").Len())
}

func TestNewMailer(t *testing.T) {
	_, isLog := NewMailer(config.MailConfig{}, nil).(*LogMailer)
	assert.True(t, isLog, "no host means log-only delivery")

	_, isSMTP := NewMailer(config.MailConfig{Host: "smtp.example.com", Port: 587}, nil).(*SMTPMailer)
	assert.True(t, isSMTP)
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", HTML: "b"})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "s", logs.All()[0].ContextMap()["subject"])
}
