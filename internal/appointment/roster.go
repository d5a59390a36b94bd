package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNameRequired = errors.New("name is required")

// RegisterDoctor validates and stores a new doctor.
func (s *Service) RegisterDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil, ErrNameRequired
	}
	if err := d.Calendar.Validate(); err != nil {
		return nil, err
	}
	d.ID = uuid.New()
	d.Calendar = d.Calendar.clone()

	if err := s.repo.CreateDoctor(ctx, &d); err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	return &d, nil
}

// RegisterPatient stores a new patient.
func (s *Service) RegisterPatient(ctx context.Context, p Patient) (*Patient, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrNameRequired
	}
	p.ID = uuid.New()

	if err := s.repo.CreatePatient(ctx, &p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return &p, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// UpdateDoctorCalendar replaces a doctor's working calendar. Slot queries
// already in flight keep the calendar they loaded.
func (s *Service) UpdateDoctorCalendar(ctx context.Context, id uuid.UUID, cal WorkingCalendar) (*Doctor, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	d, err := s.repo.UpdateDoctorCalendar(ctx, id, cal.clone())
	if err != nil {
		return nil, fmt.Errorf("update doctor calendar: %w", err)
	}
	return d, nil
}

// RemoveDoctor deletes a doctor and cascades to their appointments.
func (s *Service) RemoveDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetDoctorByID(ctx, id); err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.DeleteByDoctor(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteDoctor(ctx, id); err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return nil
}

// RemovePatient deletes a patient and cascades to their appointments.
func (s *Service) RemovePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPatientByID(ctx, id); err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.DeleteByPatient(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeletePatient(ctx, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}
