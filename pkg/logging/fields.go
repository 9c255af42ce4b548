// Package logging provides structured logging with zerolog, annotated with the
// correlation scope of the request being handled.
//
// Every event that carries a context (Event.Ctx, or the *Ctx record methods)
// is enriched at emission time with requestId, customerId and a request
// object, so call sites never pass that data explicitly.
//
// Example usage:
//
//	logger, err := logging.New(cfg.Log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.InfoCtx(ctx, "order created", []string{"orders"}, nil)
//	logger.Info().Ctx(ctx).Str("order_id", id).Msg("order created")
package logging

// Standard field names for structured logging.
// Correlation field names match the records of the other services in the
// fleet so log pipelines can index them uniformly.
const (
	// Timestamp is the field name for when the log was created (RFC 3339, UTC).
	Timestamp = "@timestamp"

	// Host is the field name for the machine hostname.
	Host = "host"

	// PID is the field name for the process id.
	PID = "pid"

	// RequestID is the field name for the correlation request id.
	RequestID = "requestId"

	// CustomerID is the field name for the customer the request acts for.
	CustomerID = "customerId"

	// Request is the field name for the request object.
	Request = "request"

	// Method, URL, NormalizedURL and RemoteAddress are the request object fields.
	Method        = "method"
	URL           = "url"
	NormalizedURL = "normalizedUrl"
	RemoteAddress = "remoteAddress"

	// ResponseField is the field name for the response object.
	ResponseField = "response"

	// StatusCode, FullHeaders and Data are the response object fields.
	StatusCode  = "statusCode"
	FullHeaders = "fullHeaders"
	Data        = "data"

	// Tags is the field name for free-form record tags.
	Tags = "tags"

	// TraceID is the field name for the OpenTelemetry trace id.
	TraceID = "trace_id"

	// SpanID is the field name for the OpenTelemetry span id.
	SpanID = "span_id"

	// ServiceName is the field name for the service generating the log.
	ServiceName = "service_name"

	// Component is the field name for the component/package generating the log.
	Component = "component"

	// Error is the field name for error information.
	Error = "error"

	// Duration is the field name for operation duration.
	Duration = "duration_ms"
)
