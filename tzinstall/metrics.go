package tzinstall

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ngrash/go-tzupdate/tzbundle"
)

// Metrics records installer activity. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	installed  *prometheus.GaugeVec
}

// NewMetrics creates the installer metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: operation (install, uninstall), status (applied,
		// rejected, noop, error)
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tzupdate",
			Name:      "operations_total",
			Help:      "Installer operations by outcome.",
		}, []string{"operation", "status"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tzupdate",
			Name:      "rejections_total",
			Help:      "Rejected bundles by reason.",
		}, []string{"reason"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tzupdate",
			Name:      "operation_duration_seconds",
			Help:      "Duration of installer operations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		// Exactly one series with value 1 while an update is installed.
		installed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tzupdate",
			Name:      "installed_info",
			Help:      "Rules version and revision of the installed update.",
		}, []string{"rules_version", "revision"}),
	}
}

func (m *Metrics) observe(operation string, start time.Time, res Result, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.operations.WithLabelValues(operation, "error").Inc()
		return
	}
	m.operations.WithLabelValues(operation, res.Status.String()).Inc()
	if res.Status == StatusRejected {
		m.rejections.WithLabelValues(string(res.Reason)).Inc()
	}
}

func (m *Metrics) setInstalled(v *tzbundle.Version) {
	if m == nil {
		return
	}
	m.installed.Reset()
	if v != nil {
		m.installed.WithLabelValues(v.RulesVersion, strconv.Itoa(v.Revision)).Set(1)
	}
}
