// Package factory holds the typed registry behind the metrics.sinks section
// of the configuration. Each entry there names a sink type and carries its
// own settings; the registered constructor decodes those settings with
// Decode, which accepts weakly typed YAML and environment values.
//
// The influx sink, for instance, is registered as:
//
//	reg.MustRegister("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c InfluxConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewInfluxSinkWithFallback(c), nil
//	})
//
// and built from {type: influx, conf: {url: ..., bucket: ...}} by Create.
package factory
