package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/clock"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDoctorNotFound      = fmt.Errorf("doctor: %w", ErrNotFound)
	ErrPatientNotFound     = fmt.Errorf("patient: %w", ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment: %w", ErrNotFound)

	// ErrSlotConflict means the (doctor, date, time) slot is already held
	// by a non-cancelled appointment.
	ErrSlotConflict = errors.New("slot already booked")

	ErrInvalidStatus   = fmt.Errorf("appointment status: %w", clock.ErrInvalidFormat)
	ErrInvalidCalendar = fmt.Errorf("working calendar: %w", clock.ErrInvalidFormat)
)

// Repository contains all storage interactions needed by the service.
//
// Implementations must keep InsertAppointment, UpdateAppointmentStatus and
// UpdateAppointmentSlot atomic with respect to the slot invariant: at most one
// non-cancelled appointment per SlotKey. A write that would break it returns
// ErrSlotConflict and changes nothing.
type Repository interface {
	// Roster
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	CreateDoctor(ctx context.Context, d *Doctor) error
	CreatePatient(ctx context.Context, p *Patient) error
	UpdateDoctorCalendar(ctx context.Context, id uuid.UUID, cal WorkingCalendar) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	DeletePatient(ctx context.Context, id uuid.UUID) error

	// For conflict checks. Returns ErrAppointmentNotFound when the slot is free.
	FindActiveInSlot(ctx context.Context, key SlotKey, exclude uuid.UUID) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)

	// Creation and updates
	InsertAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, date, clockTime string) (*Appointment, error)

	// Cascades
	DeleteAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)
	DeleteAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
