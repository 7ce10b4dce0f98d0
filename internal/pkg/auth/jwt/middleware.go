package jwt

import (
	"context"
	"net/http"
	"strings"

	"liveshop/internal/pkg/logx"
)

type contextKey string

// ContextAuthPayloadKey is the context key of the parsed *Payload.
const ContextAuthPayloadKey contextKey = "auth_payload"

// IdentityExtractorMiddleware parses an optional "Authorization: Bearer" host
// token. Missing or invalid tokens leave the request anonymous; handlers
// decide whether anonymity is acceptable. An empty secretKey disables parsing.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secretKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, tokenString, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Ctx(r.Context()).Warn().Err(err).Msg("Invalid or expired host token, treating as anonymous")
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext returns the authenticated payload, or nil for anonymous requests.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, _ := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	return payload
}
