package format

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Metrics holds Prometheus metrics for compression operations, labeled
// by format name and operation ("compress" or "uncompress").
type Metrics struct {
	bytesIn    *prometheus.CounterVec
	bytesOut   *prometheus.CounterVec
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec

	registered bool
	mu         sync.Mutex
}

// MetricsConfig holds configuration for format metrics.
type MetricsConfig struct {
	// Namespace is the prometheus namespace for metrics.
	Namespace string
	// Subsystem is the prometheus subsystem for metrics.
	// If empty, defaults to "format".
	Subsystem string
	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

var metricLabels = []string{"format", "operation"}

// NewMetrics creates a new Metrics instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Subsystem == "" {
		cfg.Subsystem = "format"
	}
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, metricLabels)
	}
	return &Metrics{
		bytesIn:    counter("bytes_in_total", "Total number of bytes passed to format operations"),
		bytesOut:   counter("bytes_out_total", "Total number of bytes produced by format operations"),
		operations: counter("operations_total", "Total number of format operations"),
		errors:     counter("errors_total", "Total number of failed format operations"),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Duration of format operations",
			ConstLabels: cfg.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, metricLabels),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.bytesIn, m.bytesOut, m.operations, m.errors, m.duration}
}

// Register registers the metrics with the provided registerer.
// If registerer is nil, the default prometheus registerer is used.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	collectors := m.collectors()
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			for _, r := range collectors {
				registerer.Unregister(r)
			}
			return err
		}
	}
	m.registered = true
	return nil
}

// Unregister unregisters the metrics from the provided registerer.
func (m *Metrics) Unregister(registerer prometheus.Registerer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	for _, c := range m.collectors() {
		registerer.Unregister(c)
	}
	m.registered = false
}

// Observe records one operation.
func (m *Metrics) Observe(format, operation string, in, out int, d time.Duration, err error) {
	m.operations.WithLabelValues(format, operation).Inc()
	m.duration.WithLabelValues(format, operation).Observe(d.Seconds())
	if err != nil {
		m.errors.WithLabelValues(format, operation).Inc()
		return
	}
	m.bytesIn.WithLabelValues(format, operation).Add(float64(in))
	m.bytesOut.WithLabelValues(format, operation).Add(float64(out))
}

// instrumented wraps a Format, recording every operation.
type instrumented struct {
	Format
	m   *Metrics
	log logrus.FieldLogger
}

// Instrument returns a Format that behaves like f and records its
// operations in m. Failures are logged at debug level to log, if not nil.
func Instrument(f Format, m *Metrics, log logrus.FieldLogger) Format {
	if log != nil {
		log = log.WithFields(logrus.Fields{"component": "format", "format": f.Name()})
	}
	return &instrumented{Format: f, m: m, log: log}
}

func (i *instrumented) Compress(dst, src []byte) (int, error) {
	start := time.Now()
	n, err := i.Format.Compress(dst, src)
	i.record("compress", len(src), n, start, err)
	return n, err
}

func (i *instrumented) Uncompress(dst, src []byte) (int, error) {
	start := time.Now()
	n, err := i.Format.Uncompress(dst, src)
	i.record("uncompress", len(src), n, start, err)
	return n, err
}

func (i *instrumented) record(op string, in, out int, start time.Time, err error) {
	i.m.Observe(i.Name(), op, in, out, time.Since(start), err)
	if err != nil && i.log != nil {
		i.log.WithError(err).WithField("operation", op).Debug("Format operation failed")
	}
}
