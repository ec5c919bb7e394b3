package auth

import (
	"net/http"
	"strings"
)

const (
	HeaderUserID      = "X-User-Id"
	HeaderOrganizerID = "X-Organizer-Id"
	HeaderRole        = "X-Role"
)

// RequireAuth verifies the bearer token and projects the verified claims
// onto request headers so downstream handlers can trust them as given.
// Client-supplied copies of those headers are always stripped first.
func RequireAuth(next http.Handler, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(HeaderUserID)
		r.Header.Del(HeaderOrganizerID)
		r.Header.Del(HeaderRole)

		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(raw, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := ParseAndVerifyHS256(strings.TrimPrefix(raw, "Bearer "), secret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set(HeaderUserID, claims.Sub)
		if claims.OrganizerID != "" {
			r.Header.Set(HeaderOrganizerID, claims.OrganizerID)
		}
		r.Header.Set(HeaderRole, claims.Role)
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a handler on one of the allowed roles. Meant to wrap
// handlers behind RequireAuth, which owns the role header.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get(HeaderRole)
		for _, allowed := range roles {
			if role == allowed {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	})
}
