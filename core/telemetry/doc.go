// Package telemetry wraps the VictoriaMetrics metrics library behind a
// Recorder that can be disabled wholesale via configuration. The SDK
// records operation counts, latencies and error counts plus pool state
// gauges; applications fetch them with Cluster.WriteMetrics.
package telemetry
