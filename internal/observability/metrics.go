package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	userCreatedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "last_user_created_timestamp_seconds",
		Help:      "Unix timestamp of the most recent user persisted to Postgres.",
	})
	exerciseLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "last_exercise_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent exercise appended to a log.",
	})
	exercisesLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "exercises_logged_total",
		Help:      "Number of exercises appended since process start.",
	})
)

func init() {
	prometheus.MustRegister(userCreatedGauge, exerciseLoggedGauge, exercisesLoggedCounter)
}

// RecordUserCreated updates the user creation watermark gauge.
func RecordUserCreated(ts time.Time) {
	if ts.IsZero() {
		return
	}
	userCreatedGauge.Set(float64(ts.Unix()))
}

// RecordExerciseLogged updates the append watermark gauge and counter.
func RecordExerciseLogged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	exerciseLoggedGauge.Set(float64(ts.Unix()))
	exercisesLoggedCounter.Inc()
}
