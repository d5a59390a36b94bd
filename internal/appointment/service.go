package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-slot-booking/internal/clock"
	"github.com/hackgods/clinic-slot-booking/internal/lock"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventAppointmentsPurged       = "APPOINTMENTS_PURGED"
)

// ErrSlotBeingBooked is returned when the slot lock could not be taken in
// time. It is a SlotConflict for callers.
var ErrSlotBeingBooked = fmt.Errorf("slot is currently being booked, please retry: %w", ErrSlotConflict)

type Service struct {
	repo   Repository
	locker lock.Locker
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for audit event write failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, locker lock.Locker, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the input of CreateAppointment. An empty Status means SCHEDULED.
type CreateRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	Time      string
	Reason    string
	Status    Status
}

// CreateAppointment books a slot for a patient.
// The conflict check and the insert run inside the slot lock so that
// concurrent requests for the same slot cannot both succeed.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	date, at, err := normalizeSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = StatusScheduled
	}
	if !validStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	key := SlotKey{DoctorID: doctor.ID, Date: date, Time: at}
	var created *Appointment

	err = s.withSlotLock(ctx, key, func(lockCtx context.Context) error {
		if status.HoldsSlot() {
			if err := s.ensureSlotFree(lockCtx, key, uuid.Nil); err != nil {
				return err
			}
		}

		now := s.now()
		appt := &Appointment{
			ID:          uuid.New(),
			DoctorID:    doctor.ID,
			PatientID:   patient.ID,
			DoctorName:  doctor.Name,
			PatientName: patient.Name,
			Date:        date,
			Time:        at,
			Reason:      strings.TrimSpace(req.Reason),
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.InsertAppointment(lockCtx, appt); err != nil {
			if errors.Is(err, ErrSlotConflict) {
				return err
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, &appt.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":  doctor.ID.String(),
			"patient_id": patient.ID.String(),
			"date":       date,
			"time":       at,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateStatus moves an appointment to any status. Reactivating a cancelled
// appointment re-checks its slot.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !validStatuses[to] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	update := func(ctx context.Context) (*Appointment, error) {
		updated, err := s.repo.UpdateAppointmentStatus(ctx, id, to)
		if err != nil {
			if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("update appointment status: %w", err)
		}
		s.logEvent(ctx, &id, EventAppointmentStatusChanged, map[string]any{
			"from": appt.Status,
			"to":   to,
		})
		return updated, nil
	}

	if appt.Status.HoldsSlot() || !to.HoldsSlot() {
		return update(ctx)
	}

	var updated *Appointment
	err = s.withSlotLock(ctx, appt.Key(), func(lockCtx context.Context) error {
		if err := s.ensureSlotFree(lockCtx, appt.Key(), id); err != nil {
			return err
		}
		updated, err = update(lockCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reschedule moves an appointment to another slot of the same doctor.
// Status and id are kept.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime string) (*Appointment, error) {
	date, at, err := normalizeSlot(newDate, newTime)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	key := SlotKey{DoctorID: appt.DoctorID, Date: date, Time: at}
	var updated *Appointment

	err = s.withSlotLock(ctx, key, func(lockCtx context.Context) error {
		if err := s.ensureSlotFree(lockCtx, key, id); err != nil {
			return err
		}

		updated, err = s.repo.UpdateAppointmentSlot(lockCtx, id, date, at)
		if err != nil {
			if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrNotFound) {
				return err
			}
			return fmt.Errorf("update appointment slot: %w", err)
		}

		s.logEvent(lockCtx, &id, EventAppointmentRescheduled, map[string]any{
			"from_date": appt.Date,
			"from_time": appt.Time,
			"to_date":   date,
			"to_time":   at,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByDoctor removes every appointment that references the doctor.
func (s *Service) DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAppointmentsByDoctor(ctx, doctorID)
	if err != nil {
		return 0, fmt.Errorf("delete appointments by doctor: %w", err)
	}
	s.logEvent(ctx, nil, EventAppointmentsPurged, map[string]any{
		"doctor_id": doctorID.String(),
		"count":     n,
	})
	return n, nil
}

// DeleteByPatient removes every appointment that references the patient.
func (s *Service) DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAppointmentsByPatient(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete appointments by patient: %w", err)
	}
	s.logEvent(ctx, nil, EventAppointmentsPurged, map[string]any{
		"patient_id": patientID.String(),
		"count":      n,
	})
	return n, nil
}

// GetAppointment retrieves one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) withSlotLock(ctx context.Context, key SlotKey, fn func(ctx context.Context) error) error {
	err := s.locker.WithSlotLock(ctx, key.String(), fn)
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return err
}

// ensureSlotFree must run inside the slot lock.
func (s *Service) ensureSlotFree(ctx context.Context, key SlotKey, exclude uuid.UUID) error {
	existing, err := s.repo.FindActiveInSlot(ctx, key, exclude)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("check slot: %w", err)
	}
	if existing != nil {
		return ErrSlotConflict
	}
	return nil
}

func normalizeSlot(date, at string) (string, string, error) {
	if err := clock.ValidateDate(date); err != nil {
		return "", "", err
	}
	normalized, err := clock.NormalizeClockTime(at)
	if err != nil {
		return "", "", err
	}
	return date, normalized, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to insert event log")
	}
}
