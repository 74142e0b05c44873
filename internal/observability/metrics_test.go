package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ObserveIngest("stored", time.Second)
	m.IncSideEffectFailure("blob_write")
	m.ObserveRepair("ok")
	m.ObserveSearch("text", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/media", "201", 30*time.Millisecond)
	m.ObserveIngest("stored", 400*time.Millisecond)
	m.ObserveIngest("duplicate_media", 50*time.Millisecond)
	m.IncSideEffectFailure("vector_insert")
	m.ObserveSearch("visual", "ok", 120*time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightInc()
	m.ApiInflightDec()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE mh_api_requests_total counter",
		`mh_api_requests_total{method="POST",route="/api/media",status="201"} 1`,
		`mh_ingest_total{outcome="duplicate_media"} 1`,
		`mh_ingest_duration_seconds_bucket{outcome="stored",le="0.5"} 1`,
		`mh_ingest_duration_seconds_bucket{outcome="stored",le="0.25"} 0`,
		`mh_ingest_duration_seconds_count{outcome="stored"} 1`,
		`mh_side_effect_failures_total{step="vector_insert"} 1`,
		`mh_search_duration_seconds_count{kind="visual",status="ok"} 1`,
		"mh_api_inflight_requests 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route", "status"}, []string{`a"b\c`})
	want := `{route="a\"b\\c",status="unknown"}`
	if got != want {
		t.Fatalf("labelString: want=%s got=%s", want, got)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe empty: got=%s", got)
	}
}

func TestSampleDegraded(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	owner := testutil.SeedUser(t, ctx, tx, "metrics-owner")
	testutil.SeedMedia(t, ctx, tx, owner.ID, "settled")
	pending := testutil.SeedMedia(t, ctx, tx, owner.ID, "pending")
	if err := tx.Model(pending).Update("blob_state", domainmedia.StateFailed).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	m := New()
	if err := m.sampleDegraded(ctx, tx); err != nil {
		t.Fatalf("sampleDegraded: %v", err)
	}
	if got := m.degraded.Value("blob_write"); got != 1 {
		t.Fatalf("blob_write: want=1 got=%v", got)
	}
	if got := m.degraded.Value("vector_insert"); got != 0 {
		t.Fatalf("vector_insert: want=0 got=%v", got)
	}
}
