// Package metrics defines the sink interfaces used to record planning
// activity. Every sink implements MetricsSink; the optional Recorder
// interfaces are detected with type assertions so a sink only implements
// what its backend can store. NewMetricsSink builds sinks from
// configuration and wraps several of them in a MultiSink.
package metrics
