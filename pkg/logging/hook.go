package logging

import (
	"context"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// CorrelationHook adds the correlation scope of the event's context to every
// event. Fields are always present; they are empty when the event has no
// context or the context is not bound to a scope.
type CorrelationHook struct {
	// Store to read from. Default: correlation.Default().
	Store *correlation.Store

	// Timestamp adds the @timestamp field.
	Timestamp bool
}

// Run implements zerolog.Hook.
func (h CorrelationHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if h.Timestamp {
		e.Str(Timestamp, time.Now().UTC().Format(timestampFormat))
	}

	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}

	var values map[correlation.Key]string
	if h.Store != nil {
		values = h.Store.Values(ctx)
	} else {
		values = correlation.Values(ctx)
	}

	e.Str(CustomerID, values[correlation.CustomerID]).
		Str(RequestID, values[correlation.RequestID]).
		Dict(Request, zerolog.Dict().
			Str(Method, values[correlation.RequestMethod]).
			Str(URL, values[correlation.RequestURL]).
			Str(NormalizedURL, values[correlation.NormalizedURL]).
			Str(RemoteAddress, values[correlation.RemoteAddress]))

	// only read spans someone else started
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.Str(TraceID, sc.TraceID().String()).Str(SpanID, sc.SpanID().String())
	}
}
