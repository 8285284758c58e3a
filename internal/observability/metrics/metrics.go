package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling core.
type SchedulingMetrics struct {
	availabilityQueries *prometheus.CounterVec
	bookingAttempts     *prometheus.CounterVec
	bookingCommit       prometheus.Histogram
	chatTurns           *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	sessionsReaped      prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		availabilityQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "availability_queries_total",
			Help:      "Total availability queries",
		}, []string{"status"}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "booking_attempts_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"status"}),
		bookingCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "booking_commit_seconds",
			Help:      "Latency of booking validation and commit",
			Buckets:   prometheus.DefBuckets,
		}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "chat_turns_total",
			Help:      "Total chat turns by resulting action",
		}, []string{"action"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "active_sessions",
			Help:      "Sessions currently held in the registry",
		}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "sessions_reaped_total",
			Help:      "Idle sessions evicted by the reaper",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.availabilityQueries,
		m.bookingAttempts,
		m.bookingCommit,
		m.chatTurns,
		m.activeSessions,
		m.sessionsReaped,
	)
	return m
}

func (m *SchedulingMetrics) ObserveAvailabilityQuery(status string) {
	if m == nil {
		return
	}
	m.availabilityQueries.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveBookingAttempt(status string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(status).Inc()
	m.bookingCommit.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveChatTurn(action string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(action).Inc()
}

func (m *SchedulingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *SchedulingMetrics) ObserveSessionsReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsReaped.Add(float64(n))
}
