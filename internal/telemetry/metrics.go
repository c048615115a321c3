package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "go-regula"

// Metrics holds the engine counters. A nil *Metrics records nothing, so
// services constructed in tests can skip it.
type Metrics struct {
	transitions metric.Int64Counter
	deliveries  metric.Int64Counter
	escalations metric.Int64Counter
}

// NewMetrics registers counters on the global meter provider. Without an
// exporter installed the provider is a no-op.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

func NewMetricsWithProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	transitions, err := meter.Int64Counter("regula.workflow.transitions",
		metric.WithDescription("Workflow transitions applied, by action"))
	if err != nil {
		return nil, err
	}
	deliveries, err := meter.Int64Counter("regula.webhook.deliveries",
		metric.WithDescription("Webhook delivery attempts, by outcome"))
	if err != nil {
		return nil, err
	}
	escalations, err := meter.Int64Counter("regula.sla.escalations",
		metric.WithDescription("Workflows escalated for a breached step deadline"))
	if err != nil {
		return nil, err
	}

	return &Metrics{transitions: transitions, deliveries: deliveries, escalations: escalations}, nil
}

func (m *Metrics) Transition(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func (m *Metrics) Delivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Escalation(ctx context.Context) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1)
}
