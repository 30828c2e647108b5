package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/dayplan/core/factory"
	coremetrics "github.com/kilianp07/dayplan/core/metrics"
)

// init registers the Prometheus and InfluxDB sinks. "nop" is registered by
// core/metrics.
func init() {
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
