package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRequestID is the id of an outbound request awaiting a response.
	FieldRequestID = "request_id"
	// FieldEventID is the server-side id of an inbound event.
	FieldEventID = "event_id"
	// FieldSocket is a Unix socket path.
	FieldSocket = "socket"
	// FieldRequestType is the wire tag of an outbound request.
	FieldRequestType = "request_type"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is a short next step for the operator.
	FieldErrorHint = "error_hint"
)

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID tags ctx with the request id being awaited.
func WithRequestID(ctx context.Context, id uint32) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (uint32, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(requestIDKey).(uint32)
	return id, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := RequestIDFromContext(ctx); ok {
		return []slog.Attr{slog.Uint64(FieldRequestID, uint64(id))}
	}
	return nil
}
