package monitoring

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects the operational counters for the bay sensor unit.
type Metrics struct {
	SamplesTotal         prometheus.Counter
	EchoTimeoutsTotal    prometheus.Counter
	SampleErrorsTotal    prometheus.Counter
	ReportsTotal         prometheus.Counter
	ReportDropsTotal     prometheus.Counter
	ConnectAttemptsTotal prometheus.Counter
	Connected            prometheus.Gauge
	LastDistanceCM       prometheus.Gauge
}

// NewMetrics creates the metric set. Call Register to attach it to a
// registry; metrics are not registered globally so tests can hold
// independent sets.
func NewMetrics() *Metrics {
	return &Metrics{
		SamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_samples_total",
			Help: "Distance samples attempted",
		}),
		EchoTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_echo_timeouts_total",
			Help: "Samples that hit the poll bound without an echo",
		}),
		SampleErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_sample_errors_total",
			Help: "Samples discarded for pin acquisition failures",
		}),
		ReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_reports_total",
			Help: "Occupancy transitions reported to the broker",
		}),
		ReportDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_report_drops_total",
			Help: "Occupancy transitions dropped while disconnected",
		}),
		ConnectAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayd_connect_attempts_total",
			Help: "Broker connection setup attempts",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bayd_connected",
			Help: "Broker connectivity (1=connected, 0=disconnected)",
		}),
		LastDistanceCM: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bayd_last_distance_cm",
			Help: "Most recent distance sample in centimeters",
		}),
	}
}

// Register attaches every metric to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SamplesTotal,
		m.EchoTimeoutsTotal,
		m.SampleErrorsTotal,
		m.ReportsTotal,
		m.ReportDropsTotal,
		m.ConnectAttemptsTotal,
		m.Connected,
		m.LastDistanceCM,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
