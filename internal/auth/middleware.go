package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type customerIDKey struct{}

// CustomerIDFromContext returns the customer authenticated by Middleware.
func CustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(customerIDKey{}).(int64)
	return id, ok
}

// ContextWithCustomerID stores an authenticated customer id in ctx.
func ContextWithCustomerID(ctx context.Context, customerID int64) context.Context {
	return context.WithValue(ctx, customerIDKey{}, customerID)
}

// Middleware requires a valid bearer access token.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				unauthorized(w, r, "Not authenticated")
				return
			}

			claims, err := tokens.Verify(token, TokenTypeAccess)
			if err != nil {
				unauthorized(w, r, "Could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCustomerID(r.Context(), claims.CustomerID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"detail": detail})
}
