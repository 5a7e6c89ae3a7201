package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revisant/dictum/internal/middleware"
)

func TestScopeExtractsHeaders(t *testing.T) {
	var company, actor string
	h := middleware.Scope(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		company = middleware.CompanyIDFromContext(r.Context())
		actor = middleware.ActorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Company-ID", "co-7")
	req.Header.Set("X-Actor-ID", "alice")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if company != "co-7" {
		t.Errorf("company = %q, want co-7", company)
	}
	if actor != "alice" {
		t.Errorf("actor = %q, want alice", actor)
	}
}

func TestScopeDefaultsCompany(t *testing.T) {
	var company, actor string
	h := middleware.Scope(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		company = middleware.CompanyIDFromContext(r.Context())
		actor = middleware.ActorIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if company != middleware.DefaultCompanyID {
		t.Errorf("company = %q, want default", company)
	}
	if actor != "" {
		t.Errorf("actor = %q, want empty", actor)
	}
}

func TestCompanyIDFromBareContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := middleware.CompanyIDFromContext(req.Context()); got != middleware.DefaultCompanyID {
		t.Errorf("bare context company = %q, want default", got)
	}
}
