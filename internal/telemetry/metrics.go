package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// OrderMetrics holds the marketplace's domain counters. A nil *OrderMetrics
// is valid and records nothing, so handlers under test need no meter.
type OrderMetrics struct {
	ordersCreated      metric.Int64Counter
	transitions        metric.Int64Counter
	checkoutRejections metric.Int64Counter
	reviewsCreated     metric.Int64Counter
	paymentsCreated    metric.Int64Counter
}

func NewOrderMetrics() (*OrderMetrics, error) {
	meter := otel.Meter("marketplace/orders")

	ordersCreated, err := meter.Int64Counter("marketplace.orders.created",
		metric.WithDescription("Orders created through checkout"))
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("marketplace.orders.transitions",
		metric.WithDescription("Order status transitions, by action and outcome"))
	if err != nil {
		return nil, err
	}

	checkoutRejections, err := meter.Int64Counter("marketplace.checkout.rejections",
		metric.WithDescription("Checkout attempts rejected before order creation"))
	if err != nil {
		return nil, err
	}

	reviewsCreated, err := meter.Int64Counter("marketplace.reviews.created",
		metric.WithDescription("Farmer reviews submitted"))
	if err != nil {
		return nil, err
	}

	paymentsCreated, err := meter.Int64Counter("marketplace.payments.created",
		metric.WithDescription("Payments attached to orders, by method"))
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{
		ordersCreated:      ordersCreated,
		transitions:        transitions,
		checkoutRejections: checkoutRejections,
		reviewsCreated:     reviewsCreated,
		paymentsCreated:    paymentsCreated,
	}, nil
}

func (m *OrderMetrics) OrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *OrderMetrics) Transition(ctx context.Context, action string, ok bool) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.Bool("ok", ok),
		))
}

func (m *OrderMetrics) CheckoutRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.checkoutRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *OrderMetrics) ReviewCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.reviewsCreated.Add(ctx, 1)
}

func (m *OrderMetrics) PaymentCreated(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.paymentsCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)))
}
