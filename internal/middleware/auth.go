package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/fraudgate/fraudgate/internal/port/resultstore"
	"github.com/fraudgate/fraudgate/internal/service"
)

type reviewerCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth returns middleware that validates reviewer credentials sent as
// "Authorization: Bearer <email>:<api-key>". When authEnabled is false, a
// default reviewer context is injected so local setups work without
// provisioning accounts.
func Auth(authSvc *service.AuthService, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				defaultReviewer := &resultstore.Reviewer{
					ID:      "00000000-0000-0000-0000-000000000000",
					Email:   "reviewer@localhost",
					Name:    "Review Desk",
					Enabled: true,
				}
				ctx := context.WithValue(r.Context(), reviewerCtxKey{}, defaultReviewer)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Browser WebSocket clients cannot set the Authorization header;
			// they carry credentials in the subprotocol list instead. Query
			// parameters are not an option: they end up in access logs and
			// proxy buffers.
			credential := ""
			if r.URL.Path == "/ws" {
				credential = websocketCredential(r)
			} else {
				authHeader := r.Header.Get("Authorization")
				credential = strings.TrimPrefix(authHeader, "Bearer ")
				if credential == authHeader {
					credential = ""
				}
			}
			if credential == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			email, key, ok := strings.Cut(credential, ":")
			if !ok {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			reviewer, err := authSvc.Authenticate(r.Context(), email, key)
			if err != nil {
				http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), reviewerCtxKey{}, reviewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WSAuthProtocolPrefix prefixes the credential-bearing entry in the
// Sec-WebSocket-Protocol list: "fraudgate.bearer.<base64url(email:key)>".
// Clients offer it alongside the plain "fraudgate" protocol; the server
// echoes only the plain one, so the credential never appears in a response.
const WSAuthProtocolPrefix = "fraudgate.bearer."

// websocketCredential extracts the "email:key" credential from the
// subprotocol offer of a WebSocket upgrade request.
func websocketCredential(r *http.Request) string {
	for _, field := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, proto := range strings.Split(field, ",") {
			rest, ok := strings.CutPrefix(strings.TrimSpace(proto), WSAuthProtocolPrefix)
			if !ok {
				continue
			}
			raw, err := base64.RawURLEncoding.DecodeString(rest)
			if err != nil {
				return ""
			}
			return string(raw)
		}
	}
	return ""
}

// ReviewerFromContext returns the authenticated reviewer, if any.
func ReviewerFromContext(ctx context.Context) (*resultstore.Reviewer, bool) {
	r, ok := ctx.Value(reviewerCtxKey{}).(*resultstore.Reviewer)
	return r, ok
}
