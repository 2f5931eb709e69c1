package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Recorder collects client side metrics into its own metric set so multiple
// clusters in one process do not clash. A Recorder created with
// NewRecorder(false) is a no-op; every method is safe to call on it.
//
// Thread-safety: all methods can be called concurrently.
type Recorder struct {
	set *metrics.Set // nil when disabled
}

// NewRecorder creates a metrics recorder. When enabled is false all methods
// are no-ops, per the MetricsEnabled configuration flag.
func NewRecorder(enabled bool) *Recorder {
	if !enabled {
		return &Recorder{}
	}
	return &Recorder{set: metrics.NewSet()}
}

// Enabled reports whether metrics are collected.
func (r *Recorder) Enabled() bool {
	return r.set != nil
}

// OperationDone records one finished key-value operation with its duration
// and outcome.
func (r *Recorder) OperationDone(op string, start time.Time, err error) {
	if r.set == nil {
		return
	}
	r.set.GetOrCreateCounter(fmt.Sprintf(`meridian_operations_total{op=%q}`, op)).Inc()
	r.set.GetOrCreateHistogram(fmt.Sprintf(`meridian_operation_duration_seconds{op=%q}`, op)).UpdateDuration(start)
	if err != nil {
		r.set.GetOrCreateCounter(fmt.Sprintf(`meridian_operation_errors_total{op=%q}`, op)).Inc()
	}
}

// RegisterConnectionsGauge exposes the live connection count of one endpoint
// pool.
func (r *Recorder) RegisterConnectionsGauge(endpoint string, f func() float64) {
	if r.set == nil {
		return
	}
	r.set.GetOrCreateGauge(fmt.Sprintf(`meridian_pool_connections{endpoint=%q}`, endpoint), f)
}

// RegisterBuilderGauges exposes the retention state of the builder pool.
func (r *Recorder) RegisterBuilderGauges(retained, discards func() float64) {
	if r.set == nil {
		return
	}
	r.set.GetOrCreateGauge(`meridian_builders_retained`, retained)
	r.set.GetOrCreateGauge(`meridian_builder_discards_total`, discards)
}

// PoolScaled counts scale up/down transitions of an endpoint pool.
func (r *Recorder) PoolScaled(endpoint, direction string) {
	if r.set == nil {
		return
	}
	r.set.GetOrCreateCounter(fmt.Sprintf(`meridian_pool_scale_events_total{endpoint=%q,direction=%q}`, endpoint, direction)).Inc()
}

// Reconnect counts connection re-establishments.
func (r *Recorder) Reconnect(endpoint string) {
	if r.set == nil {
		return
	}
	r.set.GetOrCreateCounter(fmt.Sprintf(`meridian_pool_reconnects_total{endpoint=%q}`, endpoint)).Inc()
}

// WritePrometheus writes all collected metrics in Prometheus text format.
func (r *Recorder) WritePrometheus(w io.Writer) {
	if r.set == nil {
		return
	}
	r.set.WritePrometheus(w)
}
