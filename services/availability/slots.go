package availability

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"stylo/models"
	"stylo/utils"

	"github.com/jinzhu/now"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	clockLayout = "15:04"
)

// window is a half-open [Start, End) interval of wall-clock time.
type window struct {
	Start time.Time
	End   time.Time
}

func (w window) overlaps(start, end time.Time) bool {
	return start.Before(w.End) && end.After(w.Start)
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func clockWindow(day time.Time, from, to string) (window, error) {
	start, err := atClock(day, from)
	if err != nil {
		return window{}, err
	}
	end, err := atClock(day, to)
	if err != nil {
		return window{}, err
	}
	return window{Start: start, End: end}, nil
}

// branchHours resolves the opening window of a branch on day. A special date
// overrides the weekly schedule.
func (s *DefaultAvailabilityService) branchHours(ctx context.Context, branch models.Branch, day time.Time) (*window, error) {
	special, err := s.Catalog.GetSpecialDate(ctx, branch.ID, day.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	if special != nil {
		switch special.DateType {
		case models.SpecialDateClosed:
			return nil, nil
		case models.SpecialDateSpecialHours:
			w, err := clockWindow(day, special.OpeningTime, special.ClosingTime)
			if err != nil {
				return nil, err
			}
			return &w, nil
		}
	}

	sched, ok := branch.ScheduleFor(day.Weekday())
	if !ok || !sched.IsOpen {
		return nil, nil
	}
	w, err := clockWindow(day, sched.OpeningTime, sched.ClosingTime)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// staffHours intersects the staff member's working window at the branch with the branch hours.
func (s *DefaultAvailabilityService) staffHours(ctx context.Context, branch models.Branch, staffID string, day time.Time) (*window, error) {
	open, err := s.branchHours(ctx, branch, day)
	if err != nil || open == nil {
		return nil, err
	}
	ws, err := s.Catalog.GetWorkSchedule(ctx, staffID, branch.ID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if ws == nil || !ws.IsWorking {
		return nil, nil
	}
	work, err := clockWindow(day, ws.StartTime, ws.EndTime)
	if err != nil {
		return nil, err
	}

	eff := window{Start: work.Start, End: work.End}
	if open.Start.After(eff.Start) {
		eff.Start = open.Start
	}
	if open.End.Before(eff.End) {
		eff.End = open.End
	}
	if !eff.Start.Before(eff.End) {
		return nil, nil
	}
	return &eff, nil
}

// staffSlots returns the free slot starts of one staff member on day.
func (s *DefaultAvailabilityService) staffSlots(ctx context.Context, branch models.Branch, service models.Service, staffID string, day time.Time) ([]time.Time, error) {
	hours, err := s.staffHours(ctx, branch, staffID, day)
	if err != nil || hours == nil {
		return nil, err
	}

	dayStart := now.With(day).BeginningOfDay()
	dayEnd := now.With(day).EndOfDay()

	blocks, err := s.Catalog.ListBlockedTimes(ctx, staffID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	appts, err := s.Appointments.ListBlocking(ctx, staffID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]window, 0, len(blocks)+len(appts))
	for _, b := range blocks {
		busy = append(busy, window{Start: b.Start, End: b.End})
	}
	for _, a := range appts {
		busy = append(busy, window{Start: a.Start, End: a.End})
	}

	duration := time.Duration(service.TotalDuration()) * time.Minute
	current := s.now()

	var slots []time.Time
	for start := hours.Start; !start.Add(duration).After(hours.End); start = start.Add(s.step()) {
		end := start.Add(duration)
		if !start.After(current) {
			continue
		}
		free := true
		for _, w := range busy {
			if w.overlaps(start, end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, start)
		}
	}
	return slots, nil
}

// bookableStaff resolves the candidates for a query: the named staff member, or every active
// member of the branch offering the service. Members without a bookable seat are dropped.
func (s *DefaultAvailabilityService) bookableStaff(ctx context.Context, branch models.Branch, serviceID string, staffID *string) ([]models.StaffMember, error) {
	at := s.now()

	if staffID != nil && *staffID != "" {
		member, err := s.Catalog.GetStaff(ctx, *staffID)
		if err != nil {
			return nil, err
		}
		if member == nil || !member.IsActive || !inBranch(*member, branch.ID) {
			return nil, utils.NewServiceError(utils.CodeNotFound, "Profesional no encontrado")
		}
		sub, err := s.Catalog.GetStaffSubscription(ctx, member.ID, branch.BusinessID)
		if err != nil {
			return nil, err
		}
		if sub == nil || !sub.Bookable(at) {
			return nil, utils.NewServiceError(utils.CodeValidation, "Profesional no disponible para reservas")
		}
		link, err := s.Catalog.GetStaffService(ctx, member.ID, serviceID)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, nil
		}
		return []models.StaffMember{*member}, nil
	}

	members, err := s.Catalog.ListStaffForService(ctx, branch.ID, serviceID)
	if err != nil {
		return nil, err
	}
	out := members[:0]
	for _, m := range members {
		sub, err := s.Catalog.GetStaffSubscription(ctx, m.ID, branch.BusinessID)
		if err != nil {
			return nil, err
		}
		if sub != nil && sub.Bookable(at) {
			out = append(out, m)
		}
	}
	return out, nil
}

func inBranch(m models.StaffMember, branchID string) bool {
	return slices.Contains(m.BranchIDs, branchID)
}

// daySlots computes every free slot of the candidates on day, ordered by time then staff name.
func (s *DefaultAvailabilityService) daySlots(ctx context.Context, branch models.Branch, service models.Service, staff []models.StaffMember, day time.Time) ([]models.AvailableSlot, error) {
	type slot struct {
		at    time.Time
		staff models.StaffMember
	}
	var found []slot
	for _, m := range staff {
		starts, err := s.staffSlots(ctx, branch, service, m.ID, day)
		if err != nil {
			return nil, fmt.Errorf("failed to compute slots for staff %s: %w", m.ID, err)
		}
		for _, st := range starts {
			found = append(found, slot{at: st, staff: m})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].at.Equal(found[j].at) {
			return found[i].at.Before(found[j].at)
		}
		return found[i].staff.FullName() < found[j].staff.FullName()
	})

	out := make([]models.AvailableSlot, 0, len(found))
	for _, f := range found {
		out = append(out, models.AvailableSlot{
			Datetime:  f.at.Format(time.RFC3339),
			StaffID:   f.staff.ID,
			StaffName: f.staff.FullName(),
		})
	}
	return out, nil
}

// resolve loads the branch and service of a query and checks they belong together.
func (s *DefaultAvailabilityService) resolve(ctx context.Context, branchID, serviceID string) (*models.Branch, *models.Service, error) {
	if serviceID == "" {
		return nil, nil, utils.NewServiceError(utils.CodeValidation, "service_id es requerido")
	}
	branch, err := s.Catalog.GetBranch(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}
	if branch == nil || !branch.IsActive {
		return nil, nil, utils.NewServiceError(utils.CodeNotFound, "Sucursal no encontrada")
	}
	service, err := s.Catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	if service == nil || !service.IsActive || service.BranchID != branch.ID {
		return nil, nil, utils.NewServiceError(utils.CodeNotFound, "Servicio no disponible en esta sucursal")
	}
	return branch, service, nil
}

func (s *DefaultAvailabilityService) GetAvailableSlots(ctx context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error) {
	branch, service, err := s.resolve(ctx, branchID, serviceID)
	if err != nil {
		return nil, err
	}
	loc := s.location(*branch)
	today := now.With(s.now().In(loc)).BeginningOfDay()

	day := today
	if date != "" {
		day, err = time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			return nil, utils.NewServiceError(utils.CodeValidation, "Formato de fecha inválido. Use YYYY-MM-DD")
		}
	}
	if day.Before(today) {
		return nil, utils.NewServiceError(utils.CodeValidation, "No se puede consultar disponibilidad de fechas pasadas")
	}

	staff, err := s.bookableStaff(ctx, *branch, service.ID, staffID)
	if err != nil {
		return nil, err
	}
	slots, err := s.daySlots(ctx, *branch, *service, staff, day)
	if err != nil {
		return nil, err
	}

	resp := &models.AvailabilityResponse{
		Date: day.Format(dateLayout),
		Service: models.AvailabilityService{
			ID:       service.ID,
			Name:     service.Name,
			Duration: service.DurationMinutes,
			Price:    service.Price,
		},
		Slots:          slots,
		AvailableCount: len(slots),
	}
	if staffID != nil && *staffID != "" && len(staff) == 1 {
		resp.Staff = &models.AvailabilityStaff{ID: staff[0].ID, Name: staff[0].FullName()}
	}
	return resp, nil
}

func (s *DefaultAvailabilityService) GetMonthAvailability(ctx context.Context, branchID, serviceID string, staffID *string, month string) (*models.MonthAvailabilityResponse, error) {
	branch, service, err := s.resolve(ctx, branchID, serviceID)
	if err != nil {
		return nil, err
	}
	loc := s.location(*branch)
	today := now.With(s.now().In(loc)).BeginningOfDay()

	start, end := today, today.AddDate(0, 0, 30)
	if month != "" {
		first, err := time.ParseInLocation(monthLayout, month, loc)
		if err != nil {
			return nil, utils.NewServiceError(utils.CodeValidation, "Formato de mes inválido. Use YYYY-MM")
		}
		start = first
		if start.Before(today) {
			start = today
		}
		end = now.With(first).EndOfMonth()
	}
	if s.MaxDaysAhead > 0 {
		limit := today.AddDate(0, 0, s.MaxDaysAhead)
		if end.After(limit) {
			end = limit
		}
	}

	staff, err := s.bookableStaff(ctx, *branch, service.ID, staffID)
	if err != nil {
		return nil, err
	}

	resp := &models.MonthAvailabilityResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		ServiceID: service.ID,
		Days:      []models.DayAvailability{},
	}
	if staffID != nil && *staffID != "" {
		id := *staffID
		resp.StaffID = &id
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		slots, err := s.daySlots(ctx, *branch, *service, staff, day)
		if err != nil {
			return nil, err
		}
		resp.Days = append(resp.Days, models.DayAvailability{
			Date:       day.Format(dateLayout),
			Available:  len(slots) > 0,
			SlotsCount: len(slots),
		})
	}
	return resp, nil
}

func (s *DefaultAvailabilityService) FirstAvailableStaff(ctx context.Context, branch models.Branch, service models.Service, start time.Time) (*models.StaffMember, error) {
	staff, err := s.bookableStaff(ctx, branch, service.ID, nil)
	if err != nil {
		return nil, err
	}
	day := now.With(start.In(s.location(branch))).BeginningOfDay()
	for _, m := range staff {
		starts, err := s.staffSlots(ctx, branch, service, m.ID, day)
		if err != nil {
			return nil, err
		}
		for _, st := range starts {
			if st.Equal(start) {
				member := m
				return &member, nil
			}
		}
	}
	return nil, nil
}
