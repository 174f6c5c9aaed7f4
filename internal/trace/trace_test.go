package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpan_Disabled(t *testing.T) {
	if err := Init(Options{Enabled: false}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx := context.Background()
	got, span := StartSpan(ctx, "noop")
	span.End()

	if got != ctx {
		t.Error("Expected disabled StartSpan to return the parent context")
	}
	if _, _, ok := TraceFields(got); ok {
		t.Error("Expected no trace fields when tracing is disabled")
	}
}

func TestStartSpan_Enabled(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Enabled: true, ServiceName: "trace-test", Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		_ = Shutdown(context.Background())
		_ = Init(Options{Enabled: false})
	}()

	ctx, span := StartSpan(context.Background(), "simulate", attribute.String("symbol", "AAPL"))
	traceID, spanID, ok := TraceFields(ctx)
	span.End()

	if !ok {
		t.Fatal("Expected trace fields for an active span")
	}
	if traceID == "" || spanID == "" {
		t.Errorf("Expected non-empty IDs, got trace=%q span=%q", traceID, spanID)
	}
	if !strings.Contains(buf.String(), "simulate") {
		t.Errorf("Expected exported span named simulate, got %q", buf.String())
	}
}
