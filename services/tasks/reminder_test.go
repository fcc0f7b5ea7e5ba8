package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	memoryRepo "stylo/database/repository/memory"
	"stylo/models"
	"stylo/services/notification"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.task, f.opts = task, opts
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

type fakeNotifier struct {
	reminders []notification.BookingNotice
	err       error
}

func (f *fakeNotifier) SendOTP(context.Context, string, string) error { return nil }
func (f *fakeNotifier) BookingConfirmed(context.Context, notification.BookingNotice) {}
func (f *fakeNotifier) SendReminder(_ context.Context, n notification.BookingNotice) error {
	f.reminders = append(f.reminders, n)
	return f.err
}

func TestNewReminderTask(t *testing.T) {
	at := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)
	task, opts, err := NewReminderTask(models.ReminderPayload{ReminderID: "r1", AppointmentID: "a1"}, at)
	require.NoError(t, err)
	assert.Equal(t, TypeAppointmentReminder, task.Type())
	assert.Len(t, opts, 3)

	var p models.ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "a1", p.AppointmentID)
}

func TestAsynqSchedulerEnqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := &AsynqScheduler{Client: enq, Logger: zap.NewNop()}
	require.NoError(t, s.ScheduleReminder(context.Background(), models.ReminderPayload{ReminderID: "r1"}, time.Now().Add(time.Hour)))
	require.NotNil(t, enq.task)
	assert.Equal(t, TypeAppointmentReminder, enq.task.Type())
}

type handlerFixture struct {
	handler  *ReminderHandler
	appts    *memoryRepo.Appointments
	notifier *fakeNotifier
}

func newHandlerFixture(t *testing.T, status string) *handlerFixture {
	t.Helper()
	ctx := context.Background()
	catalog := memoryRepo.NewCatalog()
	catalog.Branches["br"] = models.Branch{ID: "br", Name: "Miraflores", Timezone: "America/Lima"}
	catalog.Services["cut"] = models.Service{ID: "cut", Name: "Corte"}
	clients := memoryRepo.NewClients()
	require.NoError(t, clients.Create(ctx, &models.Client{ID: "c1", FirstName: "María", LastNamePaterno: "Quispe", PhoneNumber: "+51987654321"}))

	appts := memoryRepo.NewAppointments()
	start := time.Date(2030, 1, 8, 15, 0, 0, 0, time.UTC)
	require.NoError(t, appts.Create(ctx, &models.Appointment{ID: "a1", BranchID: "br", ClientID: "c1", ServiceID: "cut", Start: start, End: start.Add(time.Hour), Status: status}))
	require.NoError(t, appts.CreateReminder(ctx, &models.AppointmentReminder{ID: "r1", AppointmentID: "a1", Status: models.ReminderPending}))

	notifier := &fakeNotifier{}
	return &handlerFixture{
		handler: &ReminderHandler{
			Appointments:  appts,
			Catalog:       catalog,
			Clients:       clients,
			Notifications: notifier,
			Logger:        zap.NewNop(),
		},
		appts:    appts,
		notifier: notifier,
	}
}

func (f *handlerFixture) reminder(t *testing.T) *models.AppointmentReminder {
	r, err := f.appts.GetReminder(context.Background(), "r1")
	require.NoError(t, err)
	return r
}

func TestDeliverSendsReminder(t *testing.T) {
	f := newHandlerFixture(t, models.AppointmentConfirmed)
	payload, _ := json.Marshal(models.ReminderPayload{ReminderID: "r1", AppointmentID: "a1"})

	require.NoError(t, f.handler.ProcessTask(context.Background(), asynq.NewTask(TypeAppointmentReminder, payload)))

	require.Len(t, f.notifier.reminders, 1)
	n := f.notifier.reminders[0]
	assert.Equal(t, "María Quispe", n.ClientName)
	assert.Equal(t, "Corte", n.ServiceName)
	assert.Equal(t, 10, n.Start.Hour(), "rendered in branch time")

	r := f.reminder(t)
	assert.Equal(t, models.ReminderSent, r.Status)
	assert.NotNil(t, r.SentAt)

	// A redelivered task does not send twice.
	require.NoError(t, f.handler.Deliver(context.Background(), models.ReminderPayload{ReminderID: "r1", AppointmentID: "a1"}))
	assert.Len(t, f.notifier.reminders, 1)
}

func TestDeliverSkipsCancelledAppointment(t *testing.T) {
	f := newHandlerFixture(t, models.AppointmentCancelled)
	require.NoError(t, f.handler.Deliver(context.Background(), models.ReminderPayload{ReminderID: "r1", AppointmentID: "a1"}))
	assert.Empty(t, f.notifier.reminders)
	assert.Equal(t, models.ReminderCancelled, f.reminder(t).Status)
}

func TestDeliverRecordsFailure(t *testing.T) {
	f := newHandlerFixture(t, models.AppointmentPending)
	f.notifier.err = errors.New("whatsapp down")

	require.NoError(t, f.handler.Deliver(context.Background(), models.ReminderPayload{ReminderID: "r1", AppointmentID: "a1"}))
	r := f.reminder(t)
	assert.Equal(t, models.ReminderFailed, r.Status)
	assert.Contains(t, r.ErrorMessage, "whatsapp down")
}

func TestProcessTaskRejectsBadPayload(t *testing.T) {
	f := newHandlerFixture(t, models.AppointmentConfirmed)
	err := f.handler.ProcessTask(context.Background(), asynq.NewTask(TypeAppointmentReminder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
