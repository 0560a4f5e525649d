// Package logging assembles structured slog loggers for ccanvas clients and
// the ccanvas CLI.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// and the standardized field keys (component, request_id, event_id, socket,
// session_id) that client code attaches to its records. A no-op logger is
// provided for tests and for library callers that do not pass one.
package logging
