package appointment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-slot-booking/internal/db"
)

func TestMapWriteError(t *testing.T) {
	other := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "appointments_pkey"}
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "active slot index",
			in:   fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: ActiveSlotIndex}),
			want: ErrSlotConflict,
		},
		{
			name: "foreign key",
			in:   fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "appointments_doctor_id_fkey"}),
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapWriteError(tt.in), tt.want)
		})
	}

	t.Run("other unique constraint passes through", func(t *testing.T) {
		got := mapWriteError(other)
		assert.Same(t, other, got)
		assert.NotErrorIs(t, got, ErrSlotConflict)
	})

	t.Run("non postgres error passes through", func(t *testing.T) {
		assert.Same(t, plain, mapWriteError(plain))
	})
}

func TestListQuery(t *testing.T) {
	doctorID := uuid.New()

	t.Run("no filter", func(t *testing.T) {
		query, args := listQuery(Filter{})
		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, "ORDER BY slot_date, slot_time, created_at")
		assert.Empty(t, args)
	})

	t.Run("placeholders follow argument order", func(t *testing.T) {
		query, args := listQuery(Filter{
			DoctorID: doctorID,
			FromDate: "2024-06-01",
			ToDate:   "2024-06-30",
			Status:   StatusScheduled,
		})
		assert.Contains(t, query, "WHERE doctor_id = $1 AND slot_date >= $2 AND slot_date <= $3 AND status = $4")
		assert.Equal(t, []any{doctorID, "2024-06-01", "2024-06-30", StatusScheduled}, args)
	})

	t.Run("exact date", func(t *testing.T) {
		query, args := listQuery(Filter{PatientID: doctorID, Date: "2024-06-10"})
		assert.Contains(t, query, "WHERE patient_id = $1 AND slot_date = $2")
		assert.Len(t, args, 2)
	})
}

// TestPgRepositorySlotIndex runs against a real database when POSTGRES_DSN is set.
func TestPgRepositorySlotIndex(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn, 10)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))

	repo := NewPgRepository(pool)

	doctor := &Doctor{
		Name:     "Dr. Meera Iyer",
		Calendar: WorkingCalendar{WorkingDays: []time.Weekday{time.Wednesday}, Start: "09:00", End: "17:00"},
	}
	require.NoError(t, repo.CreateDoctor(ctx, doctor))
	patient := &Patient{Name: "Arjun Nair"}
	require.NoError(t, repo.CreatePatient(ctx, patient))
	t.Cleanup(func() {
		_ = repo.DeleteDoctor(context.Background(), doctor.ID)
		_ = repo.DeletePatient(context.Background(), patient.ID)
	})

	newAppt := func(at string, status Status) *Appointment {
		now := time.Now().UTC()
		return &Appointment{
			ID:          uuid.New(),
			DoctorID:    doctor.ID,
			PatientID:   patient.ID,
			DoctorName:  doctor.Name,
			PatientName: patient.Name,
			Date:        "2031-01-15",
			Time:        at,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []uuid.UUID
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := newAppt("10:00", StatusScheduled)
			<-start
			err := repo.InsertAppointment(ctx, a)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, a.ID)
				return
			}
			assert.ErrorIs(t, err, ErrSlotConflict)
			conflicts++
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, workers-1, conflicts)

	held, err := repo.FindActiveInSlot(ctx, SlotKey{DoctorID: doctor.ID, Date: "2031-01-15", Time: "10:00"}, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, winners[0], held.ID)

	t.Run("cancelled rows do not hold the slot", func(t *testing.T) {
		cancelled := newAppt("10:00", StatusCancelled)
		require.NoError(t, repo.InsertAppointment(ctx, cancelled))

		_, err := repo.UpdateAppointmentStatus(ctx, cancelled.ID, StatusScheduled)
		assert.ErrorIs(t, err, ErrSlotConflict)
	})

	t.Run("reschedule onto a held slot", func(t *testing.T) {
		other := newAppt("10:30", StatusScheduled)
		require.NoError(t, repo.InsertAppointment(ctx, other))

		_, err := repo.UpdateAppointmentSlot(ctx, other.ID, "2031-01-15", "10:00")
		assert.ErrorIs(t, err, ErrSlotConflict)

		stored, err := repo.GetAppointmentByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "10:30", stored.Time)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		a := newAppt("11:00", StatusScheduled)
		a.DoctorID = uuid.New()
		assert.ErrorIs(t, repo.InsertAppointment(ctx, a), ErrNotFound)
	})

	t.Run("filters", func(t *testing.T) {
		scheduled, err := repo.ListAppointments(ctx, Filter{DoctorID: doctor.ID, Status: StatusScheduled})
		require.NoError(t, err)
		require.Len(t, scheduled, 2)
		assert.Equal(t, "10:00", scheduled[0].Time)
		assert.Equal(t, "10:30", scheduled[1].Time)

		ranged, err := repo.ListAppointments(ctx, Filter{DoctorID: doctor.ID, FromDate: "2031-01-16", ToDate: "2031-12-31"})
		require.NoError(t, err)
		assert.Empty(t, ranged)
	})

	t.Run("cascade", func(t *testing.T) {
		n, err := repo.DeleteAppointmentsByDoctor(ctx, doctor.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
