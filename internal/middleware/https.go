// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"

	"github.com/yanizio/leadsite/internal/security"
)

// ForceHTTPS wraps h.  If the request is not in a secure context and the host
// is not a development address (localhost, loopback, or a private network),
// the wrapper issues a 308 Permanent Redirect to the HTTPS version of the
// same URL, path and query included.  Otherwise it calls h unchanged.
//
// trusted decides, per request, whether the direct peer is a proxy whose
// X-Forwarded-Proto is believed.  A nil trusted never believes it.
func ForceHTTPS(trusted func(*http.Request) bool, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viaProxy := trusted != nil && trusted(r)
		if security.IsSecureContext(r, viaProxy) || security.IsLocalHost(r.Host) {
			h.ServeHTTP(w, r)
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}
