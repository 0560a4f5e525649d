package client

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ccanvas/bindings"
)

const tracerName = "ccanvas/client"

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		return otel.Tracer(tracerName)
	}
	return tp.Tracer(tracerName)
}

func (c *Client) startRequestSpan(ctx context.Context, req bindings.Request) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "ccanvas."+bindings.RequestTag(req.Content()),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("ccanvas.request_id", int64(req.ID())),
			attribute.String("ccanvas.target", req.Target().String()),
			attribute.String("ccanvas.request_type", bindings.RequestTag(req.Content())),
			attribute.String("ccanvas.session_id", c.sessionID),
		),
	)
}

func endRequestSpan(span trace.Span, content bindings.ResponseContent, err error) {
	if content != nil {
		span.SetAttributes(attribute.String("ccanvas.response_type", bindings.ResponseTag(content)))
	}
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrUndelivered):
		span.SetStatus(codes.Error, "undelivered")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
