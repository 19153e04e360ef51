package tracker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter  = otel.Meter("apnode/tracker")
	tracer = otel.Tracer("apnode/tracker")
)

func (t *Tracker) initMeter() error {
	var err error
	_, err = meter.Int64ObservableGauge(
		"apnode.stations.connected",
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(t.Count())
			return nil
		}),
		metric.WithDescription("The current connection count, negative if leaves outran joins"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	counters := []struct {
		name, desc string
		load       func() int64
	}{
		{"apnode.stations.joins", "Total station joins received", t.joins.Load},
		{"apnode.stations.leaves", "Total station leaves received", t.leaves.Load},
		{"apnode.indicator.pulses", "Total connection indicator pulses", t.pulses.Load},
	}
	for _, c := range counters {
		load := c.load
		_, err = meter.Int64ObservableCounter(
			c.name,
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				o.Observe(load())
				return nil
			}),
			metric.WithDescription(c.desc),
			metric.WithUnit("1"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
