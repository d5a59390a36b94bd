// Package seed generates a fake clinic roster for demos and load tests.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
)

var specializations = []string{
	"Cardiologist",
	"Dermatologist",
	"General Physician",
	"Orthopedic",
	"Endocrinologist",
	"Neurologist",
	"Pediatrician",
	"Psychiatrist",
	"Ophthalmologist",
	"ENT Specialist",
}

var calendars = []appointment.WorkingCalendar{
	{WorkingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, Start: "09:00", End: "17:00"},
	{WorkingDays: []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Saturday}, Start: "10:00", End: "18:00"},
	{WorkingDays: []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}, Start: "08:30", End: "13:00"},
}

// Registrar is implemented by appointment.Service.
type Registrar interface {
	RegisterDoctor(ctx context.Context, d appointment.Doctor) (*appointment.Doctor, error)
	RegisterPatient(ctx context.Context, p appointment.Patient) (*appointment.Patient, error)
}

type Generator struct {
	faker *gofakeit.Faker
}

// New returns a generator; the same seed yields the same roster.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(int64(seed))}
}

func (g *Generator) Doctor(i int) appointment.Doctor {
	cal := calendars[g.faker.Number(0, len(calendars)-1)]
	return appointment.Doctor{
		Name:             "Dr. " + g.faker.Name(),
		Email:            g.faker.Email(),
		Phone:            g.faker.Phone(),
		Specialization:   specializations[g.faker.Number(0, len(specializations)-1)],
		ConsultationRoom: fmt.Sprintf("Room %d", 101+i),
		Calendar: appointment.WorkingCalendar{
			WorkingDays: append([]time.Weekday(nil), cal.WorkingDays...),
			Start:       cal.Start,
			End:         cal.End,
		},
	}
}

func (g *Generator) Patient() appointment.Patient {
	return appointment.Patient{
		Name:  g.faker.Name(),
		Email: g.faker.Email(),
		Phone: g.faker.Phone(),
	}
}

type Roster struct {
	Doctors  []appointment.Doctor
	Patients []appointment.Patient
}

// Load registers doctors and patients through r and returns what was stored.
func (g *Generator) Load(ctx context.Context, r Registrar, doctors, patients int) (*Roster, error) {
	roster := &Roster{
		Doctors:  make([]appointment.Doctor, 0, doctors),
		Patients: make([]appointment.Patient, 0, patients),
	}

	for i := 0; i < doctors; i++ {
		d, err := r.RegisterDoctor(ctx, g.Doctor(i))
		if err != nil {
			return roster, fmt.Errorf("seed doctor %d: %w", i, err)
		}
		roster.Doctors = append(roster.Doctors, *d)
	}

	for i := 0; i < patients; i++ {
		p, err := r.RegisterPatient(ctx, g.Patient())
		if err != nil {
			return roster, fmt.Errorf("seed patient %d: %w", i, err)
		}
		roster.Patients = append(roster.Patients, *p)
	}

	return roster, nil
}
