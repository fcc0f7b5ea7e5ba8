// Package memoryRepo holds in-process implementations of the repositories,
// used by the service and handler tests.
package memoryRepo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	appointmentRepo "stylo/database/repository/appointment"
	catalogRepo "stylo/database/repository/catalog"
	clientRepo "stylo/database/repository/client"
	"stylo/models"
)

// Catalog is an in-memory CatalogRepository. Populate the exported fields before use.
type Catalog struct {
	mu sync.RWMutex

	Businesses    map[string]models.Business
	Branches      map[string]models.Branch
	Services      map[string]models.Service
	Staff         map[string]models.StaffMember
	StaffServices []models.StaffService
	Schedules     []models.WorkSchedule
	SpecialDates  []models.SpecialDate
	BlockedTimes  []models.BlockedTime
	Subscriptions []models.StaffSubscription
}

var _ catalogRepo.CatalogRepository = (*Catalog)(nil)

func NewCatalog() *Catalog {
	return &Catalog{
		Businesses: map[string]models.Business{},
		Branches:   map[string]models.Branch{},
		Services:   map[string]models.Service{},
		Staff:      map[string]models.StaffMember{},
	}
}

func lookup[T any](mu *sync.RWMutex, m map[string]T, id string) *T {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

func (c *Catalog) GetBusiness(_ context.Context, id string) (*models.Business, error) {
	return lookup(&c.mu, c.Businesses, id), nil
}

func (c *Catalog) GetBranch(_ context.Context, id string) (*models.Branch, error) {
	return lookup(&c.mu, c.Branches, id), nil
}

func (c *Catalog) GetService(_ context.Context, id string) (*models.Service, error) {
	return lookup(&c.mu, c.Services, id), nil
}

func (c *Catalog) GetStaff(_ context.Context, id string) (*models.StaffMember, error) {
	return lookup(&c.mu, c.Staff, id), nil
}

func (c *Catalog) ListStaffForService(_ context.Context, branchID, serviceID string) ([]models.StaffMember, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.StaffMember
	for _, link := range c.StaffServices {
		if link.ServiceID != serviceID || !link.IsActive {
			continue
		}
		member, ok := c.Staff[link.StaffID]
		if !ok || !member.IsActive || !slices.Contains(member.BranchIDs, branchID) {
			continue
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) GetStaffService(_ context.Context, staffID, serviceID string) (*models.StaffService, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, link := range c.StaffServices {
		if link.StaffID == staffID && link.ServiceID == serviceID && link.IsActive {
			l := link
			return &l, nil
		}
	}
	return nil, nil
}

func (c *Catalog) GetWorkSchedule(_ context.Context, staffID, branchID string, day time.Weekday) (*models.WorkSchedule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ws := range c.Schedules {
		if ws.StaffID == staffID && ws.BranchID == branchID && ws.Weekday == day {
			w := ws
			return &w, nil
		}
	}
	return nil, nil
}

func (c *Catalog) GetSpecialDate(_ context.Context, branchID, date string) (*models.SpecialDate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sd := range c.SpecialDates {
		if sd.BranchID == branchID && sd.Date == date {
			s := sd
			return &s, nil
		}
	}
	return nil, nil
}

func (c *Catalog) ListBlockedTimes(_ context.Context, staffID string, from, to time.Time) ([]models.BlockedTime, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.BlockedTime
	for _, bt := range c.BlockedTimes {
		if bt.StaffID == staffID && bt.Start.Before(to) && bt.End.After(from) {
			out = append(out, bt)
		}
	}
	return out, nil
}

func (c *Catalog) GetStaffSubscription(_ context.Context, staffID, businessID string) (*models.StaffSubscription, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.Subscriptions {
		if sub.StaffID == staffID && sub.BusinessID == businessID {
			s := sub
			return &s, nil
		}
	}
	return nil, nil
}

// Clients is an in-memory ClientRepository.
type Clients struct {
	mu      sync.RWMutex
	records map[string]models.Client
}

var _ clientRepo.ClientRepository = (*Clients)(nil)

func NewClients() *Clients {
	return &Clients{records: map[string]models.Client{}}
}

func (c *Clients) FindByDocument(_ context.Context, documentType, documentNumber string) (*models.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.records {
		if rec.DocumentType == documentType && rec.DocumentNumber == documentNumber {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (c *Clients) GetByID(_ context.Context, id string) (*models.Client, error) {
	return lookup(&c.mu, c.records, id), nil
}

func (c *Clients) Create(_ context.Context, client *models.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	client.CreatedAt, client.UpdatedAt = now, now
	c.records[client.ID] = *client
	return nil
}

func (c *Clients) Update(_ context.Context, client *models.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	client.UpdatedAt = time.Now()
	c.records[client.ID] = *client
	return nil
}

// All returns a snapshot of every stored client.
func (c *Clients) All() []models.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Client, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	return out
}

// Appointments is an in-memory AppointmentRepository.
type Appointments struct {
	mu        sync.RWMutex
	items     []models.Appointment
	reminders map[string]models.AppointmentReminder
}

var _ appointmentRepo.AppointmentRepository = (*Appointments)(nil)

func NewAppointments() *Appointments {
	return &Appointments{reminders: map[string]models.AppointmentReminder{}}
}

func blocking(status string) bool {
	return slices.Contains(models.BlockingStatuses, status)
}

func (a *Appointments) Create(_ context.Context, appt *models.Appointment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	appt.CreatedAt, appt.UpdatedAt = now, now
	a.items = append(a.items, *appt)
	return nil
}

func (a *Appointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, it := range a.items {
		if it.ID == id {
			appt := it
			return &appt, nil
		}
	}
	return nil, nil
}

func (a *Appointments) HasConflict(ctx context.Context, staffID string, start, end time.Time) (bool, error) {
	list, _ := a.ListBlocking(ctx, staffID, start, end)
	return len(list) > 0, nil
}

func (a *Appointments) ListBlocking(_ context.Context, staffID string, from, to time.Time) ([]models.Appointment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.Appointment
	for _, it := range a.items {
		if it.StaffID == staffID && blocking(it.Status) && it.Start.Before(to) && it.End.After(from) {
			out = append(out, it)
		}
	}
	return out, nil
}

// SetStatus changes the status of a stored appointment.
func (a *Appointments) SetStatus(id, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items[i].Status = status
		}
	}
}

// All returns a snapshot of every stored appointment.
func (a *Appointments) All() []models.Appointment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Appointment(nil), a.items...)
}

func (a *Appointments) CreateReminder(_ context.Context, reminder *models.AppointmentReminder) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	reminder.CreatedAt = time.Now()
	a.reminders[reminder.ID] = *reminder
	return nil
}

func (a *Appointments) GetReminder(_ context.Context, id string) (*models.AppointmentReminder, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rem, ok := a.reminders[id]
	if !ok {
		return nil, nil
	}
	return &rem, nil
}

func (a *Appointments) UpdateReminderStatus(_ context.Context, id, status, errMsg string, sentAt *time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rem := a.reminders[id]
	rem.Status, rem.ErrorMessage, rem.SentAt = status, errMsg, sentAt
	a.reminders[id] = rem
	return nil
}

// Reminders returns a snapshot of every stored reminder.
func (a *Appointments) Reminders() []models.AppointmentReminder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.AppointmentReminder, 0, len(a.reminders))
	for _, r := range a.reminders {
		out = append(out, r)
	}
	return out
}
