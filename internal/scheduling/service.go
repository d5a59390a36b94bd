// Package scheduling exposes the two operations UI and API collaborators
// need: list a doctor's slots for a date, and book one of them.
package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/availability"
	"github.com/hackgods/clinic-slot-booking/internal/clock"
	"github.com/hackgods/clinic-slot-booking/internal/metrics"
)

// Ledger is the part of appointment.Service the facade depends on.
type Ledger interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*appointment.Doctor, error)
	ListAppointments(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
	CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime string) (*appointment.Appointment, error)
}

type Service struct {
	ledger   Ledger
	resolver availability.Resolver
}

// NewService builds the facade; interval is the slot width in minutes.
func NewService(ledger Ledger, interval int) *Service {
	return &Service{
		ledger:   ledger,
		resolver: availability.New(interval),
	}
}

// ListAvailableSlots returns the doctor's full slot grid for date with
// taken slots flagged.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]availability.Slot, error) {
	if err := clock.ValidateDate(date); err != nil {
		return nil, err
	}

	doctor, err := s.ledger.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.ledger.ListAppointments(ctx, appointment.Filter{DoctorID: doctorID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	slots := s.resolver.Resolve(doctor.Calendar, date, bookings, doctor.ID)
	metrics.ObserveSlotQuery(len(slots))
	return slots, nil
}

// BookSlot creates an appointment. On appointment.ErrSlotConflict the caller
// should call ListAvailableSlots again and let the user pick another time.
func (s *Service) BookSlot(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	appt, err := s.ledger.CreateAppointment(ctx, req)
	metrics.IncBooking(outcome(err))
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// RescheduleSlot moves an existing appointment, with the same conflict handling as BookSlot.
func (s *Service) RescheduleSlot(ctx context.Context, id uuid.UUID, date, at string) (*appointment.Appointment, error) {
	appt, err := s.ledger.Reschedule(ctx, id, date, at)
	metrics.IncReschedule(outcome(err))
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, appointment.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, appointment.ErrNotFound):
		return "not_found"
	case errors.Is(err, clock.ErrInvalidFormat):
		return "invalid"
	default:
		return "error"
	}
}
