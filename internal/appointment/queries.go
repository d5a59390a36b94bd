package appointment

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/clock"
)

const DefaultAgendaDays = 7

// ListAppointments returns matching appointments ordered by date and time.
func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

type History struct {
	Upcoming []Appointment
	Past     []Appointment
}

// PatientHistory splits a patient's appointments, newest first, into
// scheduled ones from today on and everything else.
func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID, today string) (*History, error) {
	if err := clock.ValidateDate(today); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	appts, err := s.ListAppointments(ctx, Filter{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].Date+appts[i].Time > appts[j].Date+appts[j].Time
	})

	h := &History{Upcoming: []Appointment{}, Past: []Appointment{}}
	for _, a := range appts {
		if a.Date >= today && a.Status == StatusScheduled {
			h.Upcoming = append(h.Upcoming, a)
		} else {
			h.Past = append(h.Past, a)
		}
	}
	return h, nil
}

type Agenda struct {
	Today    []Appointment
	Upcoming []Appointment
}

// DoctorAgenda lists scheduled appointments for today and the following days.
func (s *Service) DoctorAgenda(ctx context.Context, doctorID uuid.UUID, today string, days int) (*Agenda, error) {
	if days <= 0 {
		days = DefaultAgendaDays
	}
	last, err := clock.AddDays(today, days)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	appts, err := s.ListAppointments(ctx, Filter{
		DoctorID: doctorID,
		FromDate: today,
		ToDate:   last,
		Status:   StatusScheduled,
	})
	if err != nil {
		return nil, err
	}

	agenda := &Agenda{Today: []Appointment{}, Upcoming: []Appointment{}}
	for _, a := range appts {
		if a.Date == today {
			agenda.Today = append(agenda.Today, a)
		} else {
			agenda.Upcoming = append(agenda.Upcoming, a)
		}
	}
	return agenda, nil
}

type Stats struct {
	Total          int
	TodayScheduled int
	NextSevenDays  int
	ByStatus       map[Status]int
	ByDoctor       map[uuid.UUID]int
}

// Stats summarizes the ledger relative to today.
func (s *Service) Stats(ctx context.Context, today string) (*Stats, error) {
	weekEnd, err := clock.AddDays(today, 7)
	if err != nil {
		return nil, err
	}

	appts, err := s.ListAppointments(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Total:    len(appts),
		ByStatus: make(map[Status]int, len(validStatuses)),
		ByDoctor: make(map[uuid.UUID]int),
	}
	for status := range validStatuses {
		st.ByStatus[status] = 0
	}
	for _, a := range appts {
		st.ByStatus[a.Status]++
		st.ByDoctor[a.DoctorID]++
		if a.Date == today && a.Status == StatusScheduled {
			st.TodayScheduled++
		}
		if a.Date >= today && a.Date <= weekEnd {
			st.NextSevenDays++
		}
	}
	return st, nil
}
