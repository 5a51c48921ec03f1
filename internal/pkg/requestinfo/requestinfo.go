// Package requestinfo captures the client metadata recorded on sessions,
// activities and audit entries.
package requestinfo

import (
	"net"
	"net/http"
	"strings"
)

// Info is the per-request client metadata.
type Info struct {
	IPAddress string
	UserAgent string
	Method    string
	URL       string
}

// FromRequest extracts Info from an inbound request.
func FromRequest(r *http.Request) Info {
	if r == nil {
		return Info{}
	}
	url := ""
	if r.URL != nil {
		url = r.URL.RequestURI()
	}
	return Info{
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		URL:       url,
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
