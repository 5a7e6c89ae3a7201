package middleware

import (
	"context"
	"net/http"
)

// DefaultCompanyID is the single-company default used when no X-Company-ID
// header is set.
const DefaultCompanyID = "00000000-0000-0000-0000-000000000000"

const (
	headerCompanyID = "X-Company-ID"
	headerActorID   = "X-Actor-ID"
)

type companyCtxKey struct{}
type actorCtxKey struct{}

// Scope is middleware that extracts the actor and company identifiers from
// request headers and stores them in the context. Every mutating call
// carries this context; the core never trusts client-supplied authorization
// claims beyond it.
func Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(headerCompanyID)
		if cid == "" {
			cid = DefaultCompanyID
		}
		ctx := context.WithValue(r.Context(), companyCtxKey{}, cid)
		if actor := r.Header.Get(headerActorID); actor != "" {
			ctx = context.WithValue(ctx, actorCtxKey{}, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CompanyIDFromContext returns the company ID stored in ctx, or
// DefaultCompanyID if absent.
func CompanyIDFromContext(ctx context.Context) string {
	if cid, ok := ctx.Value(companyCtxKey{}).(string); ok {
		return cid
	}
	return DefaultCompanyID
}

// ActorIDFromContext returns the actor ID stored in ctx, or an empty string.
func ActorIDFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorCtxKey{}).(string)
	return actor
}

// WithCompanyID returns a context carrying the given company scope. Used by
// internal callers (queue consumers, tests) outside the HTTP path.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyCtxKey{}, companyID)
}
