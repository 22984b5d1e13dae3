package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
	"github.com/linnemanlabs/pulsewatch/internal/notify"
)

// Metrics holds Prometheus metrics for the alerting engine. A nil *Metrics is
// valid and records nothing, so tests can skip registration.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	EscalationsTotal   *prometheus.CounterVec
	AcknowledgeLatency prometheus.Histogram
	ActiveTimeouts     prometheus.Gauge
	SweptAlertsTotal   prometheus.Counter
}

// NewMetrics registers and returns engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsewatch_assessments_total",
			Help: "Total processed risk assessments by resulting tier.",
		}, []string{"tier"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsewatch_alerts_total",
			Help: "Total alerts created by tier.",
		}, []string{"tier"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsewatch_notifications_total",
			Help: "Total notification attempts by channel and status.",
		}, []string{"channel", "status"}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsewatch_escalations_total",
			Help: "Total alerts escalated after an unacknowledged timeout, by tier.",
		}, []string{"tier"}),
		AcknowledgeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulsewatch_acknowledge_latency_seconds",
			Help:    "Time from alert creation to acknowledgment.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~68m
		}),
		ActiveTimeouts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulsewatch_active_timeouts",
			Help: "Response timeouts currently armed.",
		}),
		SweptAlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulsewatch_swept_alerts_total",
			Help: "Total alert records removed by the retention sweep.",
		}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.AlertsTotal,
		m.NotificationsTotal,
		m.EscalationsTotal,
		m.AcknowledgeLatency,
		m.ActiveTimeouts,
		m.SweptAlertsTotal,
	)

	return m
}

func (m *Metrics) observeAssessment(tier alert.Tier) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) observeAlert(tier alert.Tier) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) observeOutcomes(outcomes []notify.Outcome) {
	if m == nil {
		return
	}
	for _, o := range outcomes {
		m.NotificationsTotal.WithLabelValues(string(o.Channel), string(o.Status)).Inc()
	}
}

func (m *Metrics) observeEscalation(tier alert.Tier) {
	if m == nil {
		return
	}
	m.EscalationsTotal.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) observeAckLatency(seconds float64) {
	if m == nil {
		return
	}
	m.AcknowledgeLatency.Observe(seconds)
}

func (m *Metrics) setActiveTimeouts(n int) {
	if m == nil {
		return
	}
	m.ActiveTimeouts.Set(float64(n))
}

func (m *Metrics) observeSwept(n int) {
	if m == nil {
		return
	}
	m.SweptAlertsTotal.Add(float64(n))
}
