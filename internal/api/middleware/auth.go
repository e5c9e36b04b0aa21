package middleware

import (
	"context"
	"net/http"

	"github.com/openmunicipal/portal/internal/api/response"
	"github.com/openmunicipal/portal/internal/model"
)

type contextKey string

// APIKeyIDKey carries the authenticated key's ID for audit logging.
const APIKeyIDKey contextKey = "api_key_id"

// Authenticator resolves a raw API key to its stored record.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error)
}

// Auth returns a middleware that validates the X-API-Key header.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			key, err := auth.Authenticate(r.Context(), rawKey)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyIDKey, key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the authenticated key ID from the context, if present.
func ActorID(ctx context.Context) *string {
	if id, ok := ctx.Value(APIKeyIDKey).(string); ok {
		return &id
	}
	return nil
}
