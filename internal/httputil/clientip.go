package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used to key per-client stream limits and
// request logs. With trustProxy set, the leftmost X-Forwarded-For entry and
// then X-Real-IP win over RemoteAddr; leave it off unless a trusted reverse
// proxy sits in front of the service.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedFor(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
