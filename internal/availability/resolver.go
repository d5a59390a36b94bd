// Package availability turns a doctor's working calendar into the slot grid
// for one date and flags slots already held by bookings.
package availability

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/clock"
)

// Slot is one bookable start time. Slots are computed on every query and
// never stored.
type Slot struct {
	Time      string `json:"time"`    // "10:00"
	Display   string `json:"display"` // "10:00 AM"
	Available bool   `json:"available"`
}

// Resolver generates slots at a fixed interval in minutes.
type Resolver struct {
	Interval int
}

// New returns a resolver; a non-positive interval falls back to the default.
func New(interval int) Resolver {
	if interval <= 0 {
		interval = clock.DefaultSlotInterval
	}
	return Resolver{Interval: interval}
}

// Resolve uses the default 30 minute grid.
func Resolve(cal appointment.WorkingCalendar, date string, bookings []appointment.Appointment, doctorID uuid.UUID) []Slot {
	return New(clock.DefaultSlotInterval).Resolve(cal, date, bookings, doctorID)
}

// Resolve returns every slot of the day in ascending order. Days the doctor
// does not work, unparseable dates and misconfigured windows yield an empty
// result. Booked slots are kept and flagged unavailable.
func (r Resolver) Resolve(cal appointment.WorkingCalendar, date string, bookings []appointment.Appointment, doctorID uuid.UUID) []Slot {
	day, err := clock.Weekday(date)
	if err != nil || !cal.WorksOn(day) {
		return []Slot{}
	}

	start, end, err := cal.Window()
	if err != nil {
		return []Slot{}
	}

	taken := make(map[string]bool)
	for _, b := range bookings {
		if b.DoctorID == doctorID && b.Date == date && b.Status.HoldsSlot() {
			taken[b.Time] = true
		}
	}

	seq := clock.GenerateSlotSequence(start, end, r.interval())
	slots := make([]Slot, 0, len(seq))
	for _, m := range seq {
		label := clock.FormatClockTime(m)
		slots = append(slots, Slot{
			Time:      label,
			Display:   clock.FormatForDisplay(m),
			Available: !taken[label],
		})
	}
	return slots
}

func (r Resolver) interval() int {
	if r.Interval <= 0 {
		return clock.DefaultSlotInterval
	}
	return r.Interval
}

// AvailableOnly drops taken slots.
func AvailableOnly(slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}
