package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Session events counted by SessionEvent.
const (
	EventSignIn          = "sign_in"
	EventSignInFailed    = "sign_in_failed"
	EventSignOut         = "sign_out"
	EventCompanySelected = "company_selected"
	EventCompanyRejected = "company_rejected"
	EventUnauthorized    = "unauthorized"
	EventDegraded        = "storage_degraded"
)

// Metrics holds the client-side Prometheus collectors and the tracer used
// around backend calls. Collectors live on a private registry so several
// instances can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCount     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ErrorsCount      *prometheus.CounterVec
	InFlightRequests prometheus.Gauge
	SessionEvents    *prometheus.CounterVec

	Tracer trace.Tracer `json:"-"`
}

// NewMetrics creates the collectors under namespace and takes the tracer
// from the global provider.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithTracer(namespace, otel.GetTracerProvider())
}

// NewMetricsWithTracer is NewMetrics with an explicit tracer provider.
func NewMetricsWithTracer(namespace string, tp trace.TracerProvider) *Metrics {
	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	errorsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "errors_total",
			Help:      "Total number of failed backend requests",
		},
		[]string{"method", "endpoint", "error_type"},
	)

	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "in_flight_requests",
			Help:      "Number of backend requests awaiting a response",
		},
	)

	sessionEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session lifecycle events",
		},
		[]string{"event"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(requestCount, requestDuration, errorsCount, inFlight, sessionEvents)

	return &Metrics{
		Registry:         registry,
		RequestCount:     requestCount,
		RequestDuration:  requestDuration,
		ErrorsCount:      errorsCount,
		InFlightRequests: inFlight,
		SessionEvents:    sessionEvents,
		Tracer:           tp.Tracer(namespace),
	}
}

// GetHandler returns the /metrics handler for the private registry.
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// SessionEvent counts a session lifecycle event.
func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

// Transport wraps next so that every outgoing request is counted, timed and
// traced. A nil next means http.DefaultTransport.
func (m *Metrics) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &instrumentedTransport{next: next, m: m}
}

type instrumentedTransport struct {
	next http.RoundTripper
	m    *Metrics
}

func (t *instrumentedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	endpoint := r.URL.Path

	ctx, span := t.m.Tracer.Start(r.Context(), r.Method+" "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	t.m.InFlightRequests.Inc()
	defer t.m.InFlightRequests.Dec()

	start := time.Now()
	resp, err := t.next.RoundTrip(r.WithContext(ctx))
	duration := time.Since(start).Seconds()

	t.m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)
	span.SetAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.url", r.URL.String()),
		attribute.Float64("http.duration", duration),
	)

	if err != nil {
		t.m.RequestCount.WithLabelValues(r.Method, endpoint, "error").Inc()
		t.m.ErrorsCount.WithLabelValues(r.Method, endpoint, "network").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	t.m.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		errorType := "client_error"
		if resp.StatusCode >= 500 {
			errorType = "server_error"
		}
		t.m.ErrorsCount.WithLabelValues(r.Method, endpoint, errorType).Inc()
		span.SetStatus(codes.Error, resp.Status)
	}

	return resp, nil
}

// InitializeOpenTelemetry installs a global tracer provider that hands
// finished spans to exporter. A nil exporter records spans without exporting
// them. The caller shuts the provider down on exit.
func InitializeOpenTelemetry(serviceName, version string, exporter tracesdk.SpanExporter) *tracesdk.TracerProvider {
	opts := []tracesdk.TracerProviderOption{
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		)),
	}
	if exporter != nil {
		opts = append(opts, tracesdk.WithSyncer(exporter))
	}

	tp := tracesdk.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}
