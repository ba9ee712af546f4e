package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got *ctxutil.TraceData
	var route string
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/api/jobs/:stage/:enrichmentId", func(c *gin.Context) {
		got = ctxutil.GetTraceData(c.Request.Context())
		route = metricRoute(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/other/:stage", func(c *gin.Context) {
		route = metricRoute(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/Translation/abc", nil)
	req.Header.Set(headerRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got == nil {
		t.Fatalf("trace data not attached")
	}
	if got.RequestID != "req-1" || w.Header().Get(headerRequestID) != "req-1" {
		t.Fatalf("request id not propagated: %+v header=%q", got, w.Header().Get(headerRequestID))
	}
	if got.TraceID == "" || w.Header().Get(headerTraceID) != got.TraceID {
		t.Fatalf("trace id not echoed: %+v", got)
	}
	if got.Stage != "translation" || got.EnrichmentID != "abc" {
		t.Fatalf("job coordinates: %+v", got)
	}
	if route != "/api/jobs/translation/:enrichmentId" {
		t.Fatalf("metric route: %q", route)
	}

	fields := got.LogFields()
	if len(fields) != 8 {
		t.Fatalf("LogFields: %v", fields)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/other/bogus", nil))
	if route != "/api/other/:stage" {
		t.Fatalf("unknown stage must keep template, got %q", route)
	}
}
