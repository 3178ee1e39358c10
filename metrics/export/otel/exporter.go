package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *tokenpair.Engine.
type MetricsSource interface {
	MetricsSnapshot() tokenpair.MetricsSnapshot
	AuditDropped() uint64
}

// reading copies one value out of a snapshot into the observer.
type reading func(o metric.Observer, snap tokenpair.MetricsSnapshot, dropped uint64)

// Exporter owns a single callback registration that publishes every
// engine metric from one snapshot per collection.
type Exporter struct {
	source       MetricsSource
	readings     []reading
	registration metric.Registration
}

// NewExporter creates asynchronous instruments on meter and registers
// the collection callback. Histogram buckets are exposed as cumulative
// gauges named <histogram>_bucket_le_<bound>.
func NewExporter(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	switch {
	case meter == nil:
		return nil, ErrNilMeter
	case source == nil:
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var instruments []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		id := def.ID
		instruments = append(instruments, c)
		e.readings = append(e.readings, func(o metric.Observer, snap tokenpair.MetricsSnapshot, _ uint64) {
			o.ObserveInt64(c, int64(snap.Counters[id]))
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		r, obs, err := histogramReading(meter, def)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, obs...)
		e.readings = append(e.readings, r)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events lost because the dispatcher queue was full."))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	instruments = append(instruments, dropped)
	e.readings = append(e.readings, func(o metric.Observer, _ tokenpair.MetricsSnapshot, n uint64) {
		o.ObserveInt64(dropped, int64(n))
	})

	e.registration, err = meter.RegisterCallback(e.collect, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func histogramReading(meter metric.Meter, def internaldefs.HistogramDef) (reading, []metric.Observable, error) {
	suffixes := internaldefs.BoundSuffixes()
	bucketGauges := make([]metric.Int64ObservableGauge, len(suffixes))
	obs := make([]metric.Observable, 0, len(suffixes)+2)

	for i, suffix := range suffixes {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription("Samples at or below the bound."))
		if err != nil {
			return nil, nil, fmt.Errorf("gauge %s: %w", name, err)
		}
		bucketGauges[i] = g
		obs = append(obs, g)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Total samples."))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription("Sum of samples."), metric.WithUnit("s"))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_sum: %w", def.Name, err)
	}
	obs = append(obs, count, sum)

	id := def.ID
	r := func(o metric.Observer, snap tokenpair.MetricsSnapshot, _ uint64) {
		running := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, g := range bucketGauges {
			o.ObserveInt64(g, int64(running[i]))
		}
		o.ObserveInt64(count, int64(running[len(running)-1]))
		o.ObserveFloat64(sum, snap.HistogramSums[id].Seconds())
	}
	return r, obs, nil
}

func (e *Exporter) collect(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	for _, r := range e.readings {
		r(o, snap, dropped)
	}
	return nil
}

// Close unregisters the callback. Instruments stay on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
