package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/shelfimport/internal/core"
)

// withClientIP stores the caller's address (already resolved by
// TrustedRealIP) in the request context for rate limiting and import logs.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := core.ContextWithClientIP(r.Context(), ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
