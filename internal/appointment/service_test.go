package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-slot-booking/internal/clock"
	"github.com/hackgods/clinic-slot-booking/internal/lock"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	repo    *MemoryRepository
	svc     *Service
	doctor  *Doctor
	patient *Patient
	other   *Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewMemoryRepository()
	svc := NewService(repo, lock.NewLocalLocker(time.Second), WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	doctor, err := svc.RegisterDoctor(ctx, Doctor{
		Name:           "Dr. Anita Sharma",
		Specialization: "Cardiologist",
		Calendar: WorkingCalendar{
			WorkingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Start:       "09:00",
			End:         "17:00",
		},
	})
	require.NoError(t, err)

	patient, err := svc.RegisterPatient(ctx, Patient{Name: "Rahul Verma"})
	require.NoError(t, err)
	other, err := svc.RegisterPatient(ctx, Patient{Name: "Sneha Gupta"})
	require.NoError(t, err)

	return &fixture{repo: repo, svc: svc, doctor: doctor, patient: patient, other: other}
}

func (f *fixture) book(t *testing.T, patient *Patient, date, at string) *Appointment {
	t.Helper()
	appt, err := f.svc.CreateAppointment(context.Background(), CreateRequest{
		PatientID: patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      date,
		Time:      at,
		Reason:    "Regular Checkup",
	})
	require.NoError(t, err)
	return appt
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, f.patient, "2024-06-10", "10:00")
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, "Dr. Anita Sharma", appt.DoctorName)
	assert.Equal(t, "Rahul Verma", appt.PatientName)
	assert.Equal(t, fixedNow, appt.CreatedAt)

	stored, err := f.svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt, stored)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
	assert.Equal(t, appt.ID, *events[0].AppointmentID)
}

func TestCreateAppointmentNormalizesTime(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.patient, "2024-06-10", "9:30")
	assert.Equal(t, "09:30", appt.Time)

	_, err := f.svc.CreateAppointment(context.Background(), CreateRequest{
		PatientID: f.other.ID, DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "09:30",
	})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{
			name: "unknown doctor",
			req:  CreateRequest{PatientID: f.patient.ID, DoctorID: uuid.New(), Date: "2024-06-10", Time: "10:00"},
			want: ErrDoctorNotFound,
		},
		{
			name: "unknown patient",
			req:  CreateRequest{PatientID: uuid.New(), DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "10:00"},
			want: ErrPatientNotFound,
		},
		{
			name: "bad time",
			req:  CreateRequest{PatientID: f.patient.ID, DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "25:00"},
			want: clock.ErrInvalidFormat,
		},
		{
			name: "bad date",
			req:  CreateRequest{PatientID: f.patient.ID, DoctorID: f.doctor.ID, Date: "June 10", Time: "10:00"},
			want: clock.ErrInvalidFormat,
		},
		{
			name: "bad status",
			req:  CreateRequest{PatientID: f.patient.ID, DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "10:00", Status: "BOOKED"},
			want: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := f.svc.ListAppointments(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, all, "failed requests must not write")
	assert.ErrorIs(t, ErrDoctorNotFound, ErrNotFound)
}

// Book, conflict, cancel, book again.
func TestSlotReuseAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CreateRequest{PatientID: f.patient.ID, DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "10:00"}

	first, err := f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, first.Status)

	req.PatientID = f.other.ID
	_, err = f.svc.CreateAppointment(ctx, req)
	require.ErrorIs(t, err, ErrSlotConflict)

	_, err = f.svc.UpdateStatus(ctx, first.ID, StatusCancelled)
	require.NoError(t, err)

	third, err := f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, third.PatientID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, f.patient, "2024-06-10", "10:00")

	t.Run("any transition is allowed", func(t *testing.T) {
		for _, to := range []Status{StatusCompleted, StatusNoShow, StatusScheduled, StatusCompleted} {
			updated, err := f.svc.UpdateStatus(ctx, appt.ID, to)
			require.NoError(t, err)
			assert.Equal(t, to, updated.Status)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, uuid.New(), StatusCompleted)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, appt.ID, Status("DONE"))
		assert.ErrorIs(t, err, clock.ErrInvalidFormat)
	})

	t.Run("reactivating into a taken slot conflicts", func(t *testing.T) {
		cancelled := f.book(t, f.patient, "2024-06-11", "11:00")
		_, err := f.svc.UpdateStatus(ctx, cancelled.ID, StatusCancelled)
		require.NoError(t, err)
		f.book(t, f.other, "2024-06-11", "11:00")

		_, err = f.svc.UpdateStatus(ctx, cancelled.ID, StatusScheduled)
		assert.ErrorIs(t, err, ErrSlotConflict)

		stored, err := f.svc.GetAppointment(ctx, cancelled.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, stored.Status)
	})
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("moves date and time", func(t *testing.T) {
		appt := f.book(t, f.patient, "2024-06-10", "10:00")
		moved, err := f.svc.Reschedule(ctx, appt.ID, "2024-06-12", "14:30")
		require.NoError(t, err)
		assert.Equal(t, appt.ID, moved.ID)
		assert.Equal(t, StatusScheduled, moved.Status)
		assert.Equal(t, "2024-06-12", moved.Date)
		assert.Equal(t, "14:30", moved.Time)

		// the old slot is free again
		f.book(t, f.other, "2024-06-10", "10:00")
	})

	t.Run("onto its own slot", func(t *testing.T) {
		appt := f.book(t, f.patient, "2024-06-13", "09:00")
		_, err := f.svc.Reschedule(ctx, appt.ID, "2024-06-13", "09:00")
		assert.NoError(t, err)
	})

	t.Run("onto a held slot", func(t *testing.T) {
		held := f.book(t, f.other, "2024-06-14", "15:00")
		appt := f.book(t, f.patient, "2024-06-14", "16:00")

		_, err := f.svc.Reschedule(ctx, appt.ID, held.Date, held.Time)
		require.ErrorIs(t, err, ErrSlotConflict)

		stored, err := f.svc.GetAppointment(ctx, appt.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-14", stored.Date)
		assert.Equal(t, "16:00", stored.Time)
	})

	t.Run("onto a cancelled slot", func(t *testing.T) {
		gone := f.book(t, f.other, "2024-06-17", "10:00")
		_, err := f.svc.UpdateStatus(ctx, gone.ID, StatusCancelled)
		require.NoError(t, err)

		appt := f.book(t, f.patient, "2024-06-17", "11:00")
		_, err = f.svc.Reschedule(ctx, appt.ID, "2024-06-17", "10:00")
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.svc.Reschedule(ctx, uuid.New(), "2024-06-18", "10:00")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad input", func(t *testing.T) {
		appt := f.book(t, f.patient, "2024-06-18", "12:00")
		_, err := f.svc.Reschedule(ctx, appt.ID, "2024-06-18", "12.30")
		assert.ErrorIs(t, err, clock.ErrInvalidFormat)
	})
}

func TestConcurrentBookingsSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		patient := f.patient
		if i%2 == 1 {
			patient = f.other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateAppointment(ctx, CreateRequest{
				PatientID: patient.ID,
				DoctorID:  f.doctor.ID,
				Date:      "2024-06-10",
				Time:      "10:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	booked, err := f.svc.ListAppointments(ctx, Filter{DoctorID: f.doctor.ID, Date: "2024-06-10"})
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestConcurrentReschedulesOntoSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, at := range []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"} {
		ids = append(ids, f.book(t, f.patient, "2024-06-10", at).ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Reschedule(ctx, id, "2024-06-11", "15:00")
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrSlotConflict)
		}
	}
	assert.Equal(t, 1, ok)
}

type refusingLocker struct{}

func (refusingLocker) WithSlotLock(context.Context, string, func(context.Context) error) error {
	return lock.ErrLockNotAcquired
}

func TestLockTimeoutIsConflict(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, refusingLocker{})

	_, err := svc.CreateAppointment(context.Background(), CreateRequest{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, Date: "2024-06-10", Time: "10:00",
	})
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCascadeDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.svc.RegisterDoctor(ctx, Doctor{
		Name:     "Dr. Vikram Singh",
		Calendar: WorkingCalendar{WorkingDays: []time.Weekday{time.Monday}, Start: "10:00", End: "18:00"},
	})
	require.NoError(t, err)

	f.book(t, f.patient, "2024-06-10", "10:00")
	f.book(t, f.other, "2024-06-10", "10:30")
	_, err = f.svc.CreateAppointment(ctx, CreateRequest{PatientID: f.patient.ID, DoctorID: second.ID, Date: "2024-06-10", Time: "10:00"})
	require.NoError(t, err)

	t.Run("patient", func(t *testing.T) {
		require.NoError(t, f.svc.RemovePatient(ctx, f.patient.ID))
		left, err := f.svc.ListAppointments(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, f.other.ID, left[0].PatientID)

		_, err = f.svc.GetPatient(ctx, f.patient.ID)
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("doctor", func(t *testing.T) {
		require.NoError(t, f.svc.RemoveDoctor(ctx, f.doctor.ID))
		left, err := f.svc.ListAppointments(ctx, Filter{})
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("missing", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.RemoveDoctor(ctx, uuid.New()), ErrNotFound)
		assert.ErrorIs(t, f.svc.RemovePatient(ctx, uuid.New()), ErrNotFound)
	})

	t.Run("direct cascade counts", func(t *testing.T) {
		n, err := f.svc.DeleteByDoctor(ctx, uuid.New())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("invalid calendar", func(t *testing.T) {
		_, err := f.svc.RegisterDoctor(ctx, Doctor{Name: "Dr. X", Calendar: WorkingCalendar{WorkingDays: []time.Weekday{7}, Start: "09:00", End: "17:00"}})
		assert.ErrorIs(t, err, ErrInvalidCalendar)

		_, err = f.svc.RegisterDoctor(ctx, Doctor{Name: "Dr. X", Calendar: WorkingCalendar{Start: "9am", End: "17:00"}})
		assert.ErrorIs(t, err, clock.ErrInvalidFormat)
	})

	t.Run("name required", func(t *testing.T) {
		_, err := f.svc.RegisterPatient(ctx, Patient{Name: "  "})
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("lists sorted by name", func(t *testing.T) {
		patients, err := f.svc.ListPatients(ctx)
		require.NoError(t, err)
		require.Len(t, patients, 2)
		assert.Equal(t, "Rahul Verma", patients[0].Name)
		assert.Equal(t, "Sneha Gupta", patients[1].Name)
	})

	t.Run("update calendar", func(t *testing.T) {
		cal := WorkingCalendar{WorkingDays: []time.Weekday{time.Saturday}, Start: "08:00", End: "12:00"}
		d, err := f.svc.UpdateDoctorCalendar(ctx, f.doctor.ID, cal)
		require.NoError(t, err)
		assert.Equal(t, cal, d.Calendar)

		cal.WorkingDays[0] = time.Sunday
		stored, err := f.svc.GetDoctor(ctx, f.doctor.ID)
		require.NoError(t, err)
		assert.Equal(t, time.Saturday, stored.Calendar.WorkingDays[0], "stored calendar is not aliased")

		_, err = f.svc.UpdateDoctorCalendar(ctx, uuid.New(), cal)
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("names are copied at booking time", func(t *testing.T) {
		appt := f.book(t, f.patient, "2024-06-15", "09:00")
		assert.Equal(t, "Dr. Anita Sharma", appt.DoctorName)
	})
}
