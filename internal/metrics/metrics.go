package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic_scheduling"

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome (created, conflict, not_found, invalid, error).",
		},
		[]string{"outcome"},
	)

	rescheduleAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_attempts_total",
			Help:      "Reschedule attempts by outcome.",
		},
		[]string{"outcome"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_queries_total",
			Help:      "Count of availability queries served.",
		},
	)

	slotsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slots_returned",
			Help:      "Number of slots in each availability response.",
			Buckets:   []float64{0, 4, 8, 16, 24, 32, 48},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, rescheduleAttempts, slotQueries, slotsReturned)
	})
}

func IncBooking(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncReschedule(outcome string) {
	rescheduleAttempts.WithLabelValues(outcome).Inc()
}

func ObserveSlotQuery(count int) {
	slotQueries.Inc()
	slotsReturned.Observe(float64(count))
}
