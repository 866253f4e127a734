// internal/security/security.go
//
// Transport and payload heuristics shared by the HTTPS middleware, the
// submission pipeline, and the guarded key-value store.
//
// Context
// -------
//   - IsSecureContext    reports whether a request arrived over HTTPS (or a
//     loopback origin reached from a loopback peer, which browsers also
//     treat as secure).
//   - IsLocalHost        recognises development hosts that must never be
//     redirected to HTTPS: localhost, loopback, and private networks.
//   - PreventSensitiveStorage  rejects data whose serialized form contains a
//     credential-looking word.
//
// These are UX-layer guards.  They stop accidents, not attackers.
//
// Notes
// -----
// • False positives on the block-list (a field that literally contains
//   “key”) are accepted.
// • Oxford commas, two spaces after periods.
package security

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/yanizio/leadsite/internal/metrics"
)

// sensitiveWords is matched against the lower-cased serialized payload.
var sensitiveWords = []string{"password", "token", "api_key", "secret", "key"}

// IsSecureContext reports whether r should be considered secure.  When
// trustProxy is true the X-Forwarded-Proto header set by a TLS-terminating
// proxy is honoured.  A loopback Host only counts when the connection itself
// came from a loopback address; the Host header alone is client-supplied.
func IsSecureContext(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	if trustProxy && strings.EqualFold(firstToken(r.Header.Get("X-Forwarded-Proto")), "https") {
		return true
	}
	return isLoopback(StripPort(r.Host)) && loopbackPeer(r.RemoteAddr)
}

// IsLocalHost reports whether host (with or without port) is a development
// address: localhost, *.localhost, loopback, or RFC 1918 / ULA private space.
func IsLocalHost(host string) bool {
	h := StripPort(host)
	if isLoopback(h) {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && (ip.IsPrivate() || ip.IsLinkLocalUnicast())
}

// PreventSensitiveStorage returns false when data, serialized and lowered,
// contains any block-listed word.  It returns true when data is safe to
// store or send.
func PreventSensitiveStorage(data any) bool {
	var s string
	switch v := data.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(b)
		}
	}

	s = strings.ToLower(s)
	for _, w := range sensitiveWords {
		if strings.Contains(s, w) {
			metrics.SensitiveStorageBlockedTotal.Inc()
			return false
		}
	}
	return true
}

// StripPort removes any “:port” suffix from a Host header, including the
// bracketed IPv6 form.
func StripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return strings.Trim(h, "[]")
}

func isLoopback(h string) bool {
	h = strings.ToLower(h)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

// loopbackPeer reports whether addr (host:port as in Request.RemoteAddr) is
// a loopback IP.  Names are not resolved.
func loopbackPeer(addr string) bool {
	ip := net.ParseIP(StripPort(addr))
	return ip != nil && ip.IsLoopback()
}

func firstToken(v string) string {
	if i := strings.IndexByte(v, ','); i != -1 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
