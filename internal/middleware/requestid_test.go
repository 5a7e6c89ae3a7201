package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revisant/dictum/internal/logger"
	"github.com/revisant/dictum/internal/middleware"
)

func TestRequestIDGenerated(t *testing.T) {
	var ctxID string
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxID == "" {
		t.Fatal("no request id in context")
	}
	if len(ctxID) != 32 {
		t.Errorf("generated id length = %d, want 32", len(ctxID))
	}
	if got := rec.Header().Get("X-Request-ID"); got != ctxID {
		t.Errorf("response header = %q, context = %q", got, ctxID)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var ctxID string
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ctxID != "req-abc" {
		t.Errorf("context id = %q, want req-abc", ctxID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("response header = %q, want req-abc", got)
	}
}
