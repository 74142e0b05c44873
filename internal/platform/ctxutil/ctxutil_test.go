package ctxutil

import (
	"context"
	"testing"
)

func TestViewerRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := ViewerID(ctx); got != "" {
		t.Fatalf("anonymous viewer: want=\"\" got=%q", got)
	}
	ctx = WithViewer(ctx, &Viewer{UserID: "u1", Username: "ann"})
	if got := ViewerID(ctx); got != "u1" {
		t.Fatalf("viewer id: want=u1 got=%q", got)
	}
}

func TestTraceDataAndDefault(t *testing.T) {
	if Default(nil) == nil {
		t.Fatalf("Default(nil) returned nil")
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	td := GetTraceData(ctx)
	if td == nil || td.TraceID != "t" || td.RequestID != "r" {
		t.Fatalf("trace data mismatch: got=%+v", td)
	}
}
