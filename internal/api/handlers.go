package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/clock"
	"github.com/hackgods/clinic-slot-booking/internal/scheduling"
)

type handlers struct {
	ledger    *appointment.Service
	scheduler *scheduling.Service
	logger    zerolog.Logger
	tz        *time.Location
	now       func() time.Time
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	writeServiceError(w, h.logger, err)
}

// today reads ?today= or falls back to the clinic's current date.
func (h *handlers) today(r *http.Request) (string, bool) {
	if v := r.URL.Query().Get("today"); v != "" {
		return v, clock.ValidateDate(v) == nil
	}
	return clock.Today(h.now(), h.tz), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

// Doctors

func (h *handlers) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req CreateDoctorRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := h.ledger.RegisterDoctor(r.Context(), appointment.Doctor{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Specialization:   req.Specialization,
		ConsultationRoom: req.ConsultationRoom,
		Calendar:         req.Calendar.toCalendar(),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doctorResponse(d))
}

func (h *handlers) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.ledger.ListDoctors(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]DoctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, doctorResponse(&doctors[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.ledger.GetDoctor(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctorResponse(d))
}

func (h *handlers) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.RemoveDoctor(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CalendarPayload
	if !decode(w, r, &req) {
		return
	}
	d, err := h.ledger.UpdateDoctorCalendar(r.Context(), id, req.toCalendar())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctorResponse(d))
}

func (h *handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = clock.Today(h.now(), h.tz)
	}

	slots, err := h.scheduler.ListAvailableSlots(r.Context(), id, date)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{DoctorID: id, Date: date, Slots: slots})
}

func (h *handlers) doctorAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	today, ok := h.today(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "today must be YYYY-MM-DD")
		return
	}
	days := appointment.DefaultAgendaDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "days must be a positive integer")
			return
		}
		days = n
	}

	agenda, err := h.ledger.DoctorAgenda(r.Context(), id, today, days)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AgendaResponse{
		Today:    appointmentList(agenda.Today),
		Upcoming: appointmentList(agenda.Upcoming),
	})
}

// Patients

func (h *handlers) createPatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.ledger.RegisterPatient(r.Context(), appointment.Patient{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, patientResponse(p))
}

func (h *handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.ledger.ListPatients(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]PatientResponse, 0, len(patients))
	for i := range patients {
		out = append(out, patientResponse(&patients[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) deletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.RemovePatient(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) patientHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	today, ok := h.today(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "today must be YYYY-MM-DD")
		return
	}

	history, err := h.ledger.PatientHistory(r.Context(), id, today)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Upcoming: appointmentList(history.Upcoming),
		Past:     appointmentList(history.Past),
	})
}

// Appointments

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decode(w, r, &req) {
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	appt, err := h.scheduler.BookSlot(r.Context(), appointment.CreateRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		Status:    appointment.Status(req.Status),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentResponse(appt))
}

func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doctorID, err := parseOptionalID(q.Get("doctor_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	patientID, err := parseOptionalID(q.Get("patient_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}

	f := appointment.Filter{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      q.Get("date"),
		FromDate:  q.Get("from"),
		ToDate:    q.Get("to"),
	}
	if raw := q.Get("status"); raw != "" {
		st, err := appointment.ParseStatus(raw)
		if err != nil {
			h.fail(w, err)
			return
		}
		f.Status = st
	}

	appts, err := h.ledger.ListAppointments(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentList(appts))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.ledger.GetAppointment(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(appt))
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := appointment.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}

	appt, err := h.ledger.UpdateStatus(r.Context(), id, st)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(appt))
}

func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !decode(w, r, &req) {
		return
	}

	appt, err := h.scheduler.RescheduleSlot(r.Context(), id, req.Date, req.Time)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(appt))
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	today, ok := h.today(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "today must be YYYY-MM-DD")
		return
	}

	st, err := h.ledger.Stats(r.Context(), today)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := StatsResponse{
		Total:          st.Total,
		TodayScheduled: st.TodayScheduled,
		NextSevenDays:  st.NextSevenDays,
		ByStatus:       make(map[string]int, len(st.ByStatus)),
		ByDoctor:       make(map[string]int, len(st.ByDoctor)),
	}
	for k, v := range st.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range st.ByDoctor {
		resp.ByDoctor[k.String()] = v
	}
	writeJSON(w, http.StatusOK, resp)
}
