package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avct/uasurfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"

func newResolver(t *testing.T, proxies ...string) *Resolver {
	t.Helper()
	r, err := New(Options{TrustedProxies: proxies, Log: zap.NewNop().Sugar()})
	require.NoError(t, err)
	return r
}

func TestClientIP_IgnoresHeadersFromUntrustedPeer(t *testing.T) {
	r := newResolver(t, "10.0.0.0/8")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.9", r.Resolve(req).IPString())
}

func TestClientIP_TrustedProxyChain(t *testing.T) {
	r := newResolver(t, "10.0.0.0/8", "192.0.2.1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:443"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 198.51.100.7, 192.0.2.1")

	assert.Equal(t, "198.51.100.7", r.Resolve(req).IPString())

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-Ip", "198.51.100.8")
	assert.Equal(t, "198.51.100.8", r.Resolve(req).IPString())
}

func TestResolve_SecureContext(t *testing.T) {
	r := newResolver(t, "10.0.0.1")

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/contact", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, r.Resolve(req).Secure)

	req.RemoteAddr = "203.0.113.9:1234"
	assert.False(t, r.Resolve(req).Secure, "proto header from untrusted peer")
}

func TestParseUA(t *testing.T) {
	ua := parseUA(chromeMac, "en-US,en;q=0.9")
	assert.Equal(t, "Chrome", ua.Browser)
	assert.Equal(t, "macOS", ua.OS)
	assert.Equal(t, "Desktop", ua.Device)
	assert.False(t, ua.IsBot)
	assert.Equal(t, "en-us", ua.PrimaryLang)

	bot := parseUA("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "")
	assert.True(t, bot.IsBot)
}

func TestEnrich_StoresInfo(t *testing.T) {
	r := newResolver(t)
	var got *Info
	h := r.Enrich(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		got = FromContext(req.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", chromeMac)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "192.0.2.1", got.IPString())
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Empty(t, got.Geo.CountryISO)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)

	_, err = New(Options{GeoDBPath: "/nonexistent/GeoLite2-City.mmdb"})
	assert.Error(t, err)
}

func TestTrimVersion(t *testing.T) {
	assert.Equal(t, "0", trimVersion(uasurfer.Version{}))
	assert.Equal(t, "124", trimVersion(uasurfer.Version{Major: 124}))
	assert.Equal(t, "10.15.7", trimVersion(uasurfer.Version{Major: 10, Minor: 15, Patch: 7}))
}
