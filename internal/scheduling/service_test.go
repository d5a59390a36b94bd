package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/clock"
	"github.com/hackgods/clinic-slot-booking/internal/lock"
)

func setup(t *testing.T) (*Service, *appointment.Service, *appointment.Doctor, *appointment.Patient) {
	t.Helper()
	ledger := appointment.NewService(appointment.NewMemoryRepository(), lock.NewLocalLocker(time.Second))
	ctx := context.Background()

	doctor, err := ledger.RegisterDoctor(ctx, appointment.Doctor{
		Name: "Dr. Priya Patel",
		Calendar: appointment.WorkingCalendar{
			WorkingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Start:       "09:00",
			End:         "17:00",
		},
	})
	require.NoError(t, err)
	patient, err := ledger.RegisterPatient(ctx, appointment.Patient{Name: "Amit Kumar"})
	require.NoError(t, err)

	return NewService(ledger, clock.DefaultSlotInterval), ledger, doctor, patient
}

func TestListAvailableSlots(t *testing.T) {
	svc, _, doctor, patient := setup(t)
	ctx := context.Background()

	t.Run("full working day", func(t *testing.T) {
		// 2024-06-10 is a Monday.
		slots, err := svc.ListAvailableSlots(ctx, doctor.ID, "2024-06-10")
		require.NoError(t, err)
		require.Len(t, slots, 16)
		assert.Equal(t, "09:00", slots[0].Time)
		assert.Equal(t, "9:00 AM", slots[0].Display)
		assert.Equal(t, "16:30", slots[15].Time)
		for _, s := range slots {
			assert.True(t, s.Available)
		}
	})

	t.Run("weekend", func(t *testing.T) {
		slots, err := svc.ListAvailableSlots(ctx, doctor.ID, "2024-06-09")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("booked slot is flagged", func(t *testing.T) {
		_, err := svc.BookSlot(ctx, appointment.CreateRequest{
			PatientID: patient.ID, DoctorID: doctor.ID, Date: "2024-06-11", Time: "10:00",
		})
		require.NoError(t, err)

		slots, err := svc.ListAvailableSlots(ctx, doctor.ID, "2024-06-11")
		require.NoError(t, err)
		require.Len(t, slots, 16)
		for _, s := range slots {
			assert.Equal(t, s.Time != "10:00", s.Available, s.Time)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.ListAvailableSlots(ctx, doctor.ID, "2024-13-01")
		assert.ErrorIs(t, err, clock.ErrInvalidFormat)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := svc.ListAvailableSlots(ctx, uuid.New(), "2024-06-10")
		assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)
	})
}

func TestBookCancelRebook(t *testing.T) {
	svc, ledger, doctor, patient := setup(t)
	ctx := context.Background()
	req := appointment.CreateRequest{PatientID: patient.ID, DoctorID: doctor.ID, Date: "2024-06-12", Time: "11:30"}

	first, err := svc.BookSlot(ctx, req)
	require.NoError(t, err)

	_, err = svc.BookSlot(ctx, req)
	require.ErrorIs(t, err, appointment.ErrSlotConflict)

	_, err = ledger.UpdateStatus(ctx, first.ID, appointment.StatusCancelled)
	require.NoError(t, err)

	slots, err := svc.ListAvailableSlots(ctx, doctor.ID, "2024-06-12")
	require.NoError(t, err)
	for _, s := range slots {
		if s.Time == "11:30" {
			assert.True(t, s.Available)
		}
	}

	_, err = svc.BookSlot(ctx, req)
	assert.NoError(t, err)
}

func TestRescheduleSlot(t *testing.T) {
	svc, _, doctor, patient := setup(t)
	ctx := context.Background()

	a, err := svc.BookSlot(ctx, appointment.CreateRequest{PatientID: patient.ID, DoctorID: doctor.ID, Date: "2024-06-13", Time: "09:00"})
	require.NoError(t, err)
	b, err := svc.BookSlot(ctx, appointment.CreateRequest{PatientID: patient.ID, DoctorID: doctor.ID, Date: "2024-06-13", Time: "09:30"})
	require.NoError(t, err)

	_, err = svc.RescheduleSlot(ctx, b.ID, a.Date, a.Time)
	assert.ErrorIs(t, err, appointment.ErrSlotConflict)

	moved, err := svc.RescheduleSlot(ctx, b.ID, "2024-06-13", "10:00")
	require.NoError(t, err)
	assert.Equal(t, "10:00", moved.Time)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "created", outcome(nil))
	assert.Equal(t, "conflict", outcome(appointment.ErrSlotBeingBooked))
	assert.Equal(t, "not_found", outcome(appointment.ErrPatientNotFound))
	assert.Equal(t, "invalid", outcome(appointment.ErrInvalidStatus))
	assert.Equal(t, "error", outcome(assert.AnError))
}
