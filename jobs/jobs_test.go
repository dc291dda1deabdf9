package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/larkspur-bakery/storefront/testing"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func sampleOrder() OrderConfirmationPayload {
	return OrderConfirmationPayload{
		OrderNumber:   "LB-20260412-K7QW2Z",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		DeliveryDate:  time.Date(2026, 4, 18, 0, 0, 0, 0, time.UTC),
		Currency:      "GBP",
		TotalCents:    5250,
		Lines: []OrderLine{
			{Name: "Lemon Drizzle", Quantity: 2, LineTotalCents: 3000},
			{Name: "Afternoon Tea Hamper", Quantity: 1, LineTotalCents: 2250},
		},
	}
}

func TestOrderConfirmationEmail(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewEmailJob(mailer, "kitchen@larkspur.local", nil)
	task, err := NewOrderConfirmationTask(sampleOrder())
	require.NoError(t, err)

	require.NoError(t, job.HandleOrderConfirmation(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "LB-20260412-K7QW2Z")
	assert.Contains(t, msg.Body, "2 x Lemon Drizzle")
	assert.Contains(t, msg.Body, "52.50")
	assert.Contains(t, msg.Body, "Saturday 18 April 2026")
}

func TestOrderConfirmationTaskRequiresRecipient(t *testing.T) {
	payload := sampleOrder()
	payload.CustomerEmail = ""
	_, err := NewOrderConfirmationTask(payload)
	assert.Error(t, err)
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	job := NewEmailJob(&recordingMailer{}, "kitchen@larkspur.local", nil)
	err := job.HandleOrderConfirmation(context.Background(), asynq.NewTask(TaskOrderConfirmation, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandleEnquiryNotification(context.Background(), asynq.NewTask(TaskEnquiryNotification, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMailerFailureIsRetried(t *testing.T) {
	boom := errors.New("relay down")
	job := NewEmailJob(&recordingMailer{err: boom}, "kitchen@larkspur.local", nil)
	task, err := NewOrderConfirmationTask(sampleOrder())
	require.NoError(t, err)

	err = job.HandleOrderConfirmation(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestEnquiryNotificationEmail(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewEmailJob(mailer, "kitchen@larkspur.local", nil)
	task, err := NewEnquiryNotificationTask(EnquiryNotificationPayload{
		EnquiryID: 7,
		Name:      "Grace",
		Email:     "grace@example.com",
		EventDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Servings:  40,
		Message:   "Three tiers, lavender buttercream please.",
	})
	require.NoError(t, err)

	require.NoError(t, job.HandleEnquiryNotification(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"kitchen@larkspur.local"}, msg.To)
	assert.Equal(t, "grace@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Subject, "40 servings")
	assert.Contains(t, msg.Body, "Event date: 2026-06-01")
	assert.Contains(t, msg.Body, "lavender buttercream")
}

func TestMoneyFallsBackForUnknownCurrency(t *testing.T) {
	job := NewEmailJob(&recordingMailer{}, "", nil)
	assert.Equal(t, "XYZ 12.05", job.Money(1205, "XYZ"))
	assert.Contains(t, job.Money(1205, "GBP"), "12.05")
}

func TestClientEnqueue(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := NewClientWith(fake)

	require.NoError(t, client.EnqueueOrderConfirmation(context.Background(), sampleOrder()))
	require.NoError(t, client.EnqueueEnquiryNotification(context.Background(), EnquiryNotificationPayload{Name: "Grace"}))
	require.Len(t, fake.tasks, 2)
	assert.Equal(t, TaskOrderConfirmation, fake.tasks[0].Type())
	assert.Equal(t, TaskEnquiryNotification, fake.tasks[1].Type())

	var decoded OrderConfirmationPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &decoded))
	assert.Equal(t, int64(5250), decoded.TotalCents)
}

func TestClientTreatsTaskIDConflictAsQueued(t *testing.T) {
	client := NewClientWith(&fakeEnqueuer{err: asynq.ErrTaskIDConflict})
	assert.NoError(t, client.EnqueueOrderConfirmation(context.Background(), sampleOrder()))

	client = NewClientWith(&fakeEnqueuer{err: errors.New("redis gone")})
	assert.Error(t, client.EnqueueOrderConfirmation(context.Background(), sampleOrder()))
}

func TestSMTPMailerRendersMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 1025, From: "orders@larkspur.local"})
	m.now = func() time.Time { return time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC) }
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.Nil(t, a)
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:      []string{"ada@example.com"},
		Subject: "Hello\r\nBcc: evil@example.com",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, "orders@larkspur.local", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "Subject: Hello  Bcc: evil@example.com\r\n")
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(raw, "line one\r\nline two"))

	assert.Error(t, m.Send(context.Background(), Message{}))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   float64
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, http.StatusOK, 3},
		{"queue not created yet", fakeInspector{err: asynq.ErrQueueNotFound}, http.StatusOK, 0},
		{"redis down", fakeInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.pending < 0 {
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body["queue"])
			assert.Equal(t, tc.pending, body["pending"])
		})
	}
}

type stubCleaner struct{ got time.Duration }

func (s *stubCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	s.got = olderThan
	return nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &stubCleaner{}
	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, NewIdempotencyCleanupJob(store, nil).Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, store.got)

	require.NoError(t, NewIdempotencyCleanupJob(store, nil).Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(`{}`))))
	assert.Equal(t, 72*time.Hour, store.got)
}
