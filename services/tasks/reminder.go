package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appointmentRepo "stylo/database/repository/appointment"
	catalogRepo "stylo/database/repository/catalog"
	clientRepo "stylo/database/repository/client"
	"stylo/models"
	"stylo/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeAppointmentReminder = "appointment:reminder"

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:" + payload.ReminderID),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler queues reminders on the task queue.
type AsynqScheduler struct {
	Client Enqueuer
	Logger *zap.Logger
}

func (s *AsynqScheduler) ScheduleReminder(ctx context.Context, payload models.ReminderPayload, at time.Time) error {
	task, opts, err := NewReminderTask(payload, at)
	if err != nil {
		return fmt.Errorf("failed to build reminder task: %w", err)
	}
	info, err := s.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	s.Logger.Info("Reminder scheduled",
		zap.String("reminderId", payload.ReminderID),
		zap.String("taskId", info.ID),
		zap.Time("fireAt", at))
	return nil
}

// ReminderHandler delivers due appointment reminders.
type ReminderHandler struct {
	Appointments  appointmentRepo.AppointmentRepository
	Catalog       catalogRepo.CatalogRepository
	Clients       clientRepo.ClientRepository
	Notifications notification.NotificationService
	Location      *time.Location
	Logger        *zap.Logger
}

// ProcessTask implements asynq.Handler.
func (h *ReminderHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p models.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		h.Logger.Error("Invalid reminder payload", zap.Error(err))
		return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	return h.Deliver(ctx, p)
}

// Deliver sends one reminder unless it was handled already or the appointment
// no longer occupies the calendar.
func (h *ReminderHandler) Deliver(ctx context.Context, p models.ReminderPayload) error {
	log := h.Logger.With(zap.String("reminderId", p.ReminderID), zap.String("appointmentId", p.AppointmentID))

	reminder, err := h.Appointments.GetReminder(ctx, p.ReminderID)
	if err != nil {
		return err
	}
	if reminder == nil || reminder.Status != models.ReminderPending {
		log.Info("Reminder skipped, not pending")
		return nil
	}

	appt, err := h.Appointments.GetByID(ctx, p.AppointmentID)
	if err != nil {
		return err
	}
	if appt == nil || (appt.Status != models.AppointmentPending && appt.Status != models.AppointmentConfirmed) {
		log.Info("Reminder cancelled, appointment no longer active")
		return h.Appointments.UpdateReminderStatus(ctx, p.ReminderID, models.ReminderCancelled, "", nil)
	}

	notice, err := h.notice(ctx, *appt)
	if err == nil {
		err = h.Notifications.SendReminder(ctx, notice)
	}
	if err != nil {
		log.Warn("Reminder delivery failed", zap.Error(err))
		if updErr := h.Appointments.UpdateReminderStatus(ctx, p.ReminderID, models.ReminderFailed, err.Error(), nil); updErr != nil {
			return updErr
		}
		return nil
	}

	sentAt := time.Now()
	log.Info("Reminder sent")
	return h.Appointments.UpdateReminderStatus(ctx, p.ReminderID, models.ReminderSent, "", &sentAt)
}

func (h *ReminderHandler) notice(ctx context.Context, appt models.Appointment) (notification.BookingNotice, error) {
	var n notification.BookingNotice
	client, err := h.Clients.GetByID(ctx, appt.ClientID)
	if err != nil {
		return n, err
	}
	if client == nil {
		return n, fmt.Errorf("client %s not found", appt.ClientID)
	}
	service, err := h.Catalog.GetService(ctx, appt.ServiceID)
	if err != nil {
		return n, err
	}
	branch, err := h.Catalog.GetBranch(ctx, appt.BranchID)
	if err != nil {
		return n, err
	}

	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	n = notification.BookingNotice{
		AppointmentID: appt.ID,
		ClientName:    client.FullName(),
		ClientPhone:   client.PhoneNumber,
		Start:         appt.Start.In(loc),
	}
	if service != nil {
		n.ServiceName = service.Name
	}
	if branch != nil {
		n.BranchName = branch.Name
		n.BranchAddress = branch.Address
		n.Start = appt.Start.In(branch.Location(loc))
	}
	return n, nil
}
