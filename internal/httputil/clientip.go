package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address for rate limiting and
// log correlation. Proxy headers win over the socket address: the first
// entry of X-Forwarded-For, then X-Real-IP, then RemoteAddr with its port
// stripped.
func ClientIP(r *http.Request) string {
	if ip := firstForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, keep it as is
		return r.RemoteAddr
	}
	return host
}

// firstForwardedFor returns the leftmost hop of a forwarding chain, which
// is the original client when the edge proxy is trusted.
func firstForwardedFor(chain string) string {
	if chain == "" {
		return ""
	}
	first, _, _ := strings.Cut(chain, ",")
	return strings.TrimSpace(first)
}
