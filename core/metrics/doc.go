// Package metrics defines the sinks that record search progress. Sinks such
// as the Prometheus, Influx and MQTT sinks in infra/metrics register
// themselves by name; NewMetricsSink combines several configured sinks into
// a MultiSink.
package metrics
