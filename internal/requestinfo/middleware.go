// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits right after the access log.  For every request it:

  1. Resolves the client IP.  X-Forwarded-For and X-Real-IP are honoured
     only when the direct peer is a trusted proxy, so a visitor cannot
     pick their own rate-limit key by sending a header.
  2. Parses the User-Agent header and Accept-Language list.
  3. Performs a GeoLite2 lookup when a database was configured.
  4. Decides whether the request arrived over a secure transport.
  5. Stores an *Info in the request context for handlers.

Notes
-----
  • All look-ups are read-only, so the middleware is safe under heavy
    concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/security"
)

// Options configures a Resolver.
type Options struct {
	TrustedProxies []string // IPs or CIDRs of TLS-terminating proxies
	GeoDBPath      string   // GeoLite2-City.mmdb; empty disables geo
	Log            *zap.SugaredLogger
}

// Resolver builds *Info for requests.
type Resolver struct {
	trusted []*net.IPNet
	geo     geoDB
	log     *zap.SugaredLogger
	now     func() time.Time
}

// New parses the proxy list and opens the geo database if configured.
func New(o Options) (*Resolver, error) {
	r := &Resolver{log: o.Log, now: time.Now}
	if r.log == nil {
		r.log = zap.S()
	}

	for _, p := range o.TrustedProxies {
		n, err := parseNet(p)
		if err != nil {
			return nil, err
		}
		r.trusted = append(r.trusted, n)
	}

	if o.GeoDBPath != "" {
		db, err := openGeo(o.GeoDBPath)
		if err != nil {
			return nil, err
		}
		r.geo = db
	}
	return r, nil
}

// Close releases the geo database.
func (r *Resolver) Close() error {
	if r.geo != nil {
		return r.geo.Close()
	}
	return nil
}

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *Info, and forwards.
func (r *Resolver) Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		info := r.Resolve(req)

		r.log.Debugw("request info",
			"ip", info.IPString(),
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"secure", info.Secure,
			"path", req.URL.Path,
		)

		next.ServeHTTP(w, req.WithContext(WithInfo(req.Context(), info)))
	})
}

// Resolve computes *Info for req without touching its context.
func (r *Resolver) Resolve(req *http.Request) *Info {
	ip := r.clientIP(req)
	return &Info{
		ClientIP:  ip,
		UA:        parseUA(req.UserAgent(), req.Header.Get("Accept-Language")),
		Geo:       lookupGeo(r.geo, ip),
		Secure:    security.IsSecureContext(req, r.TrustedPeer(req)),
		Timestamp: r.now().UTC(),
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP returns the direct peer, or when the peer is a trusted proxy,
// the right-most untrusted address in X-Forwarded-For (then X-Real-IP).
func (r *Resolver) clientIP(req *http.Request) net.IP {
	peer := remoteIP(req)
	if peer == nil || !r.isTrusted(peer) {
		return peer
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		for i := len(parts) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(parts[i]))
			if ip == nil {
				continue
			}
			if !r.isTrusted(ip) {
				return ip
			}
		}
	}
	if xrip := req.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}

// TrustedPeer reports whether the direct peer of req is a configured proxy,
// and so whether its X-Forwarded-* headers may be believed.
func (r *Resolver) TrustedPeer(req *http.Request) bool {
	peer := remoteIP(req)
	return peer != nil && r.isTrusted(peer)
}

func (r *Resolver) isTrusted(ip net.IP) bool {
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteIP(req *http.Request) net.IP {
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(req.RemoteAddr)
}

// parseNet accepts "10.0.0.0/8" or a bare address.
func parseNet(s string) (*net.IPNet, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, n, err := net.ParseCIDR(s)
		return n, err
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: s}
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	} else {
		ip = ip.To4()
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}
