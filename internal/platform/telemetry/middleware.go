package telemetry

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/library-catalog/telemetry"

// HeaderTraceID echoes the trace ID of the request span. The same ID is
// added to the request logger as trace_id.
const HeaderTraceID = "X-Trace-ID"

// ServerMetrics are the OpenTelemetry HTTP server instruments.
type ServerMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewServerMetrics creates the server instruments on the global meter.
func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
	}, nil
}

// Middleware returns the otelgin tracing middleware followed by the server
// metrics middleware. Register both with engine.Use(Middleware(name)...).
func Middleware(serviceName string) []gin.HandlerFunc {
	metrics, err := NewServerMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return []gin.HandlerFunc{otelgin.Middleware(serviceName), metrics.handler}
}

func (m *ServerMetrics) handler(c *gin.Context) {
	ctx := c.Request.Context()

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		traceID := sc.TraceID().String()
		c.Header(HeaderTraceID, traceID)

		ctx = logging.WithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
	}

	if m == nil {
		c.Next()
		return
	}

	start := time.Now()
	route := attribute.String("http.route", c.FullPath())
	method := attribute.String("http.method", c.Request.Method)

	m.activeRequests.Add(ctx, 1, metric.WithAttributes(method, route))
	defer m.activeRequests.Add(ctx, -1, metric.WithAttributes(method, route))

	c.Next()

	attrs := metric.WithAttributes(method, route, attribute.Int("http.status_code", c.Writer.Status()))
	m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	m.requestTotal.Add(ctx, 1, attrs)
}
