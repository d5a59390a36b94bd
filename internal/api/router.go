package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/scheduling"
)

type RouterConfig struct {
	Ledger    *appointment.Service
	Scheduler *scheduling.Service
	Logger    zerolog.Logger
	Store     Pinger                // nil for the memory store
	Redis     redis.UniversalClient // nil for the local locker
	Timezone  *time.Location
	Now       func() time.Time
	Metrics   bool
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &handlers{
		ledger:    cfg.Ledger,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
		tz:        cfg.Timezone,
		now:       cfg.Now,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Store, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", h.listDoctors)
		r.Post("/", h.createDoctor)
		r.Get("/{id}", h.getDoctor)
		r.Delete("/{id}", h.deleteDoctor)
		r.Put("/{id}/calendar", h.updateCalendar)
		r.Get("/{id}/slots", h.listSlots)
		r.Get("/{id}/agenda", h.doctorAgenda)
	})

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.listPatients)
		r.Post("/", h.createPatient)
		r.Delete("/{id}", h.deletePatient)
		r.Get("/{id}/history", h.patientHistory)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.listAppointments)
		r.Post("/", h.createAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Patch("/{id}/status", h.updateStatus)
		r.Patch("/{id}/schedule", h.reschedule)
	})

	r.Get("/stats", h.stats)

	return r
}
