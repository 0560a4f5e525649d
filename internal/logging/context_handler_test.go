package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextHandlerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(WithRequestID(context.Background(), 42), "waiting")

	output := buf.String()
	if !strings.Contains(output, `"request_id":42`) {
		t.Errorf("expected request_id in output, got: %s", output)
	}
}

func TestContextHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newContextHandler(slog.NewJSONHandler(&buf, nil))).With("extra", "value")

	logger.Info("no context")

	output := buf.String()
	if strings.Contains(output, "request_id") {
		t.Errorf("unexpected request_id without context: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}

	buf.Reset()
	logger.WithGroup("wire").InfoContext(WithRequestID(context.Background(), 7), "sent", "bytes", 10)
	if !strings.Contains(buf.String(), `"wire":{"bytes":10,"request_id":7}`) {
		t.Errorf("expected grouped attrs, got: %s", buf.String())
	}
}

func TestContextHandlerNilBase(t *testing.T) {
	handler := newContextHandler(nil)
	if _, ok := handler.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler when base is nil, got: %T", handler)
	}
}
