package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordAnswer("force_retrieval", "grounded")
	m.RecordAnswer("force_retrieval", "grounded")
	m.RecordCacheLookup("retrieval", true)
	m.RecordCacheLookup("retrieval", false)
	m.RecordGenerationFailure()
	m.RecordExternalCall("llm", errors.New("boom"))
	m.RecordExternalCall("llm", nil)
	m.SetLibrarySize(3, 42)
	m.RecordBookLoad("missing")
	m.RecordRetrieval(5*time.Millisecond, 4)
	m.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"answers", testutil.ToFloat64(m.AnswersTotal.WithLabelValues("force_retrieval", "grounded")), 2},
		{"cache hits", testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("retrieval", "hit")), 1},
		{"cache misses", testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("retrieval", "miss")), 1},
		{"generation failures", testutil.ToFloat64(m.GenerationFailuresTotal), 1},
		{"external errors", testutil.ToFloat64(m.ExternalCallsTotal.WithLabelValues("llm", "error")), 1},
		{"documents", testutil.ToFloat64(m.DocumentsLoaded), 3},
		{"chunks", testutil.ToFloat64(m.ChunksLoaded), 42},
		{"book loads", testutil.ToFloat64(m.BookLoadsTotal.WithLabelValues("missing")), 1},
		{"http requests", testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAnswer("general", "fallback")
	m.RecordCacheLookup("translation", true)
	m.RecordGenerationFailure()
	m.SetLibrarySize(1, 1)
	m.RecordHTTPRequest("GET", "/", 200, time.Second)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordAnswer("general", "fallback")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `breslov_answers_total{outcome="fallback",strategy="general"} 1`) {
		t.Errorf("metrics output missing answer counter:\n%s", body)
	}
}
