// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reservo"

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_status_changes_total",
			Help:      "Count of reservation status transitions by target status.",
		},
		[]string{"status"},
	)

	accruals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_accruals_total",
			Help:      "Count of loyalty accruals by outcome.",
		},
		[]string{"outcome"},
	)

	discountsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_discounts_unlocked_total",
			Help:      "Count of discounts unlocked by kind.",
		},
		[]string{"kind"},
	)

	availabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_compute_seconds",
			Help:      "Time to compute a day's slots.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
)

// Booking outcomes.
const (
	OutcomeBooked      = "booked"
	OutcomeConflict    = "conflict"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "store_unavailable"
)

// Accrual outcomes.
const (
	AccrualApplied   = "applied"
	AccrualDuplicate = "duplicate"
	AccrualFailed    = "failed"
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, statusChanges, accruals, discountsUnlocked, availabilityDuration)
	})
}

func IncBookingAttempt(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func IncAccrual(outcome string) {
	accruals.WithLabelValues(outcome).Inc()
}

func AddDiscountsUnlocked(kind string, n int) {
	if n > 0 {
		discountsUnlocked.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveAvailability records the time elapsed since start.
func ObserveAvailability(start time.Time) {
	availabilityDuration.Observe(time.Since(start).Seconds())
}
