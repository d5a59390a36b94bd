package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/clock"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NOSHOW"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// HoldsSlot reports whether an appointment in this status blocks its slot.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled
}

// WorkingCalendar is a doctor's recurring weekly availability.
type WorkingCalendar struct {
	WorkingDays []time.Weekday
	Start       string // "09:00"
	End         string // "17:00"
}

// WorksOn reports whether the calendar offers slots on the given weekday.
func (c WorkingCalendar) WorksOn(day time.Weekday) bool {
	for _, d := range c.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// Window returns the working window in minutes since midnight.
func (c WorkingCalendar) Window() (start, end int, err error) {
	start, err = clock.ParseClockTime(c.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = clock.ParseClockTime(c.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Validate checks weekday range and window labels.
func (c WorkingCalendar) Validate() error {
	for _, d := range c.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidCalendar, d)
		}
	}
	if _, _, err := c.Window(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}
	return nil
}

// clone returns a copy that does not share the weekday slice.
func (c WorkingCalendar) clone() WorkingCalendar {
	days := make([]time.Weekday, len(c.WorkingDays))
	copy(days, c.WorkingDays)
	c.WorkingDays = days
	return c
}

type Doctor struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Phone            string
	Specialization   string
	ConsultationRoom string
	Calendar         WorkingCalendar
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment carries doctor and patient names copied at creation time.
// They are not refreshed when the source entity changes.
type Appointment struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	DoctorName  string
	PatientName string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Reason      string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key returns the slot this appointment occupies.
func (a Appointment) Key() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// SlotKey identifies one bookable (doctor, date, time) triple.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.DoctorID, k.Date, k.Time)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Filter narrows ListAppointments. Zero fields match everything.
type Filter struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string
	FromDate  string // inclusive
	ToDate    string // inclusive
	Status    Status
}

// Validate rejects malformed date bounds and unknown statuses.
func (f Filter) Validate() error {
	for _, d := range []string{f.Date, f.FromDate, f.ToDate} {
		if d == "" {
			continue
		}
		if err := clock.ValidateDate(d); err != nil {
			return err
		}
	}
	if f.Status != "" && !validStatuses[f.Status] {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	return nil
}

func (f Filter) matches(a *Appointment) bool {
	if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.FromDate != "" && a.Date < f.FromDate {
		return false
	}
	if f.ToDate != "" && a.Date > f.ToDate {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
