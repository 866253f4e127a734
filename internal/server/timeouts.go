// internal/server/timeouts.go
//
// *http.Server construction for the lead API.
//
// Context
// -------
// Lead forms post small JSON bodies and the content routes answer from a
// cache, so every phase of a request is expected to finish quickly.  The
// limits come from the http section of the config (read_timeout,
// read_header_timeout, write_timeout, idle_timeout); a zero field falls back
// to the value below.
//
//   • Read        10 s   whole request, body included
//   • ReadHeader   5 s   slow-loris guard on the header phase
//   • Write       15 s   handler plus response write
//   • Idle        60 s   keep-alive between requests
//
// Notes
// -----
// • TLS is terminated at the proxy; TLSConfig is never set here.
package server

import (
	"net/http"
	"time"
)

// Timeouts holds per-phase server limits.  Zero means use the default.
type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
}

const (
	defaultRead       = 10 * time.Second
	defaultReadHeader = 5 * time.Second
	defaultWrite      = 15 * time.Second
	defaultIdle       = 60 * time.Second
)

// New returns an *http.Server for handler on addr with t applied.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       orDefault(t.Read, defaultRead),
		ReadHeaderTimeout: orDefault(t.ReadHeader, defaultReadHeader),
		WriteTimeout:      orDefault(t.Write, defaultWrite),
		IdleTimeout:       orDefault(t.Idle, defaultIdle),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
