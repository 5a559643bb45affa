package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/httpx"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims of the current request.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved actor in the request context.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			claims, err := svc.Authenticate(r.Context(), raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			ctx = shared.ContextWithActor(ctx, claims.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
