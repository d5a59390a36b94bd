package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the roster and ledger in process. Writers take the
// exclusive lock; readers share it and always receive copies.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]*Doctor
	patients     map[uuid.UUID]*Patient
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
	nextEventID  int64
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]*Doctor),
		patients:     make(map[uuid.UUID]*Patient),
		appointments: make(map[uuid.UUID]*Appointment),
		now:          time.Now,
	}
}

// Helpers

func copyDoctor(d *Doctor) *Doctor {
	c := *d
	c.Calendar = d.Calendar.clone()
	return &c
}

func copyPatient(p *Patient) *Patient {
	c := *p
	return &c
}

func copyAppointment(a *Appointment) *Appointment {
	c := *a
	return &c
}

// activeInSlot must be called with mu held.
func (r *MemoryRepository) activeInSlot(key SlotKey, exclude uuid.UUID) *Appointment {
	for _, a := range r.appointments {
		if a.ID == exclude || !a.Status.HoldsSlot() {
			continue
		}
		if a.Key() == key {
			return a
		}
	}
	return nil
}

// Roster

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return copyDoctor(d), nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return copyPatient(p), nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, *copyDoctor(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) ListPatients(_ context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) CreateDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt, d.UpdatedAt = now, now
	r.doctors[d.ID] = copyDoctor(d)
	return nil
}

func (r *MemoryRepository) CreatePatient(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	r.patients[p.ID] = copyPatient(p)
	return nil
}

func (r *MemoryRepository) UpdateDoctorCalendar(_ context.Context, id uuid.UUID, cal WorkingCalendar) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Calendar = cal.clone()
	d.UpdatedAt = r.now()
	return copyDoctor(d), nil
}

func (r *MemoryRepository) DeleteDoctor(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[id]; !ok {
		return ErrDoctorNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *MemoryRepository) DeletePatient(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

// Appointments

func (r *MemoryRepository) FindActiveInSlot(_ context.Context, key SlotKey, exclude uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a := r.activeInSlot(key, exclude); a != nil {
		return copyAppointment(a), nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return copyAppointment(a), nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0)
	for _, a := range r.appointments {
		if f.matches(a) {
			out = append(out, *a)
		}
	}
	sortChronologically(out)
	return out, nil
}

func (r *MemoryRepository) InsertAppointment(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Status.HoldsSlot() && r.activeInSlot(a.Key(), uuid.Nil) != nil {
		return ErrSlotConflict
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.appointments[a.ID] = copyAppointment(a)
	return nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if !a.Status.HoldsSlot() && to.HoldsSlot() && r.activeInSlot(a.Key(), id) != nil {
		return nil, ErrSlotConflict
	}
	a.Status = to
	a.UpdatedAt = r.now()
	return copyAppointment(a), nil
}

func (r *MemoryRepository) UpdateAppointmentSlot(_ context.Context, id uuid.UUID, date, clockTime string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	key := SlotKey{DoctorID: a.DoctorID, Date: date, Time: clockTime}
	if r.activeInSlot(key, id) != nil {
		return nil, ErrSlotConflict
	}
	a.Date, a.Time = date, clockTime
	a.UpdatedAt = r.now()
	return copyAppointment(a), nil
}

func (r *MemoryRepository) DeleteAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *MemoryRepository) DeleteAppointmentsByPatient(_ context.Context, patientID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *MemoryRepository) deleteWhere(match func(*Appointment) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.appointments {
		if match(a) {
			delete(r.appointments, id)
			n++
		}
	}
	return n
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded audit trail.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func sortChronologically(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		if appts[i].Time != appts[j].Time {
			return appts[i].Time < appts[j].Time
		}
		return appts[i].CreatedAt.Before(appts[j].CreatedAt)
	})
}
