// Package metrics provides Prometheus metrics for provider calls and
// meeting lifecycle outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// providerCallsTotal records the total number of outbound provider
	// API calls.
	// Labels:
	//   - operation: API operation (e.g., "create_session", "list_recordings")
	//   - status: Call status ("success" or "error")
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverside_provider_calls_total",
			Help: "Total number of outbound provider API calls",
		},
		[]string{"operation", "status"},
	)

	// providerCallDuration records the duration of outbound provider API
	// calls.
	// Labels:
	//   - operation: API operation (e.g., "create_session")
	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riverside_provider_call_duration_seconds",
			Help:    "Duration of outbound provider API calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// meetingLifecycleTotal records meeting lifecycle operations handled
	// by the service.
	// Labels:
	//   - action: Lifecycle action ("create", "update", "delete")
	//   - outcome: Result ("success", "degraded", "error")
	meetingLifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverside_meeting_lifecycle_total",
			Help: "Total number of meeting lifecycle operations by outcome",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(providerCallsTotal)
	prometheus.MustRegister(providerCallDuration)
	prometheus.MustRegister(meetingLifecycleTotal)
}

// RecordProviderCall records one outbound provider API call
func RecordProviderCall(operation, status string) {
	providerCallsTotal.WithLabelValues(operation, status).Inc()
}

// RecordProviderCallDuration records how long a provider API call took
func RecordProviderCallDuration(operation string, durationSeconds float64) {
	providerCallDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordMeetingLifecycle records a lifecycle operation outcome. "degraded"
// marks the soft-failure path where the booking proceeds without a working
// meeting link.
func RecordMeetingLifecycle(action, outcome string) {
	meetingLifecycleTotal.WithLabelValues(action, outcome).Inc()
}
