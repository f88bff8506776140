// Package metrics exports the security state as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const namespace = "catpoint"

// alarmLevels lists every alarm status so the gauge is always one-hot.
//
//nolint:gochecknoglobals // Fixed enumeration.
var alarmLevels = []domain.AlarmStatus{domain.AlarmNone, domain.AlarmPending, domain.AlarmActive}

// Metrics is a StatusListener that mirrors state changes into Prometheus collectors.
type Metrics struct {
	AlarmStatus       *prometheus.GaugeVec
	AlarmTransitions  *prometheus.CounterVec
	CatSeen           prometheus.Gauge
	ImagesProcessed   *prometheus.CounterVec
	SensorActive      *prometheus.GaugeVec
	PersistenceErrors prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		AlarmStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_status",
			Help:      "Current alarm status, 1 for the active level and 0 otherwise.",
		}, []string{"status"}),
		AlarmTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_transitions_total",
			Help:      "Number of alarm status changes by target status.",
		}, []string{"status"}),
		CatSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cat_detected",
			Help:      "Whether the most recent image contained a cat.",
		}),
		ImagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_processed_total",
			Help:      "Number of processed images by detection result.",
		}, []string{"cat"}),
		SensorActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_active",
			Help:      "Whether a sensor is currently active.",
		}, []string{"sensor", "type"}),
		PersistenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Number of failed state saves.",
		}),
	}

	m.setAlarm(domain.AlarmNone)

	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Seed publishes the current state without counting transitions.
func (m *Metrics) Seed(snapshot *domain.Snapshot) {
	m.setAlarm(snapshot.Alarm)
	m.CatSeen.Set(boolToFloat(snapshot.CatDetected))

	for _, sensor := range snapshot.SensorList() {
		m.SensorActive.WithLabelValues(sensor.Name, sensor.Type.String()).Set(boolToFloat(sensor.Active))
	}
}

// AlarmStatusChanged implements security.StatusListener.
func (m *Metrics) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	m.setAlarm(status)
	m.AlarmTransitions.WithLabelValues(status.String()).Inc()
}

// CatDetected implements security.StatusListener.
func (m *Metrics) CatDetected(_ context.Context, detected bool) {
	m.CatSeen.Set(boolToFloat(detected))

	label := "false"
	if detected {
		label = "true"
	}

	m.ImagesProcessed.WithLabelValues(label).Inc()
}

// SensorStatusChanged implements security.StatusListener.
func (m *Metrics) SensorStatusChanged(_ context.Context, sensor *domain.Sensor) {
	m.SensorActive.WithLabelValues(sensor.Name, sensor.Type.String()).Set(boolToFloat(sensor.Active))
}

// ForgetSensor drops the series of a removed sensor.
func (m *Metrics) ForgetSensor(sensor *domain.Sensor) {
	m.SensorActive.DeleteLabelValues(sensor.Name, sensor.Type.String())
}

func (m *Metrics) setAlarm(status domain.AlarmStatus) {
	for _, level := range alarmLevels {
		m.AlarmStatus.WithLabelValues(level.String()).Set(boolToFloat(level == status))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
