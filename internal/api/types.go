package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/availability"
	"github.com/hackgods/clinic-slot-booking/internal/clock"
)

type CalendarPayload struct {
	WorkingDays []int  `json:"working_days"` // 0 = Sunday
	Start       string `json:"start"`
	End         string `json:"end"`
}

type CreateDoctorRequest struct {
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Specialization   string          `json:"specialization"`
	ConsultationRoom string          `json:"consultation_room"`
	Calendar         CalendarPayload `json:"calendar"`
}

type CreatePatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Reason    string `json:"reason"`
	Status    string `json:"status,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type DoctorResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Specialization   string          `json:"specialization,omitempty"`
	ConsultationRoom string          `json:"consultation_room,omitempty"`
	Calendar         CalendarPayload `json:"calendar"`
	CreatedAt        time.Time       `json:"created_at"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorName  string    `json:"doctor_name"`
	PatientName string    `json:"patient_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Display     string    `json:"display"`
	Reason      string    `json:"reason,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID           `json:"doctor_id"`
	Date     string              `json:"date"`
	Slots    []availability.Slot `json:"slots"`
}

type HistoryResponse struct {
	Upcoming []AppointmentResponse `json:"upcoming"`
	Past     []AppointmentResponse `json:"past"`
}

type AgendaResponse struct {
	Today    []AppointmentResponse `json:"today"`
	Upcoming []AppointmentResponse `json:"upcoming"`
}

type StatsResponse struct {
	Total          int            `json:"total"`
	TodayScheduled int            `json:"today_scheduled"`
	NextSevenDays  int            `json:"next_seven_days"`
	ByStatus       map[string]int `json:"by_status"`
	ByDoctor       map[string]int `json:"by_doctor"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (c CalendarPayload) toCalendar() appointment.WorkingCalendar {
	days := make([]time.Weekday, 0, len(c.WorkingDays))
	for _, d := range c.WorkingDays {
		days = append(days, time.Weekday(d))
	}
	return appointment.WorkingCalendar{WorkingDays: days, Start: c.Start, End: c.End}
}

func calendarPayload(cal appointment.WorkingCalendar) CalendarPayload {
	days := make([]int, 0, len(cal.WorkingDays))
	for _, d := range cal.WorkingDays {
		days = append(days, int(d))
	}
	return CalendarPayload{WorkingDays: days, Start: cal.Start, End: cal.End}
}

func doctorResponse(d *appointment.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:               d.ID,
		Name:             d.Name,
		Email:            d.Email,
		Phone:            d.Phone,
		Specialization:   d.Specialization,
		ConsultationRoom: d.ConsultationRoom,
		Calendar:         calendarPayload(d.Calendar),
		CreatedAt:        d.CreatedAt,
	}
}

func patientResponse(p *appointment.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
}

func appointmentResponse(a *appointment.Appointment) AppointmentResponse {
	display, err := clock.FormatLabelForDisplay(a.Time)
	if err != nil {
		display = a.Time
	}
	return AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		DoctorName:  a.DoctorName,
		PatientName: a.PatientName,
		Date:        a.Date,
		Time:        a.Time,
		Display:     display,
		Reason:      a.Reason,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func appointmentList(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, appointmentResponse(&appts[i]))
	}
	return out
}
