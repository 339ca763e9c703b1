package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/shestoi/stockhold/services/reservation"

// metrics счётчики оркестраторов и sweeper, экспортируются через глобальный MeterProvider
type metrics struct {
	reservations   metric.Int64Counter
	compensations  metric.Int64Counter
	sweepExpired   metric.Int64Counter
	sweepReleased  metric.Int64Counter
	releaseFailure metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	return &metrics{
		reservations:   counter(meter, "reservation.created", "Reservations created, by source"),
		compensations:  counter(meter, "reservation.compensations", "Saga rollbacks, by outcome"),
		sweepExpired:   counter(meter, "reservation.sweep.expired", "Reservations transitioned to EXPIRED"),
		sweepReleased:  counter(meter, "reservation.sweep.released", "Expired reservations whose stock was released"),
		releaseFailure: counter(meter, "reservation.sweep.release_failures", "Expired reservations whose release failed"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func (m *metrics) created(ctx context.Context, source string, n int) {
	m.reservations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (m *metrics) compensated(ctx context.Context) {
	m.compensations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
}

func (m *metrics) compensationFailed(ctx context.Context) {
	m.compensations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
}

func (m *metrics) swept(ctx context.Context, result SweepResult, releaseFailures int) {
	m.sweepExpired.Add(ctx, int64(result.TotalExpired))
	m.sweepReleased.Add(ctx, int64(result.Released))
	m.releaseFailure.Add(ctx, int64(releaseFailures))
}
