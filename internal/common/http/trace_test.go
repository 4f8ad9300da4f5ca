package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devsanjithm/accountd/internal/common/logger"
)

func TestTraceIDMiddleware_GeneratesID(t *testing.T) {
	var seen string
	handler := TraceIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.TraceIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected a trace id in the request context")
	}
	if got := rec.Header().Get("X-Trace-ID"); got != seen {
		t.Errorf("expected the response header to match the context id, got %q and %q", got, seen)
	}
}

func TestTraceIDMiddleware_HonorsIncomingID(t *testing.T) {
	var seen string
	handler := TraceIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc123" {
		t.Errorf("expected the supplied trace id kept, got %q", seen)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != "abc123" {
		t.Errorf("expected the supplied trace id echoed, got %q", got)
	}
}
