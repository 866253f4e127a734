package security

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestPreventSensitiveStorage(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"password key", map[string]any{"password": "x"}, false},
		{"first name", map[string]any{"first_name": "Jane"}, true},
		{"api key mixed case", map[string]string{"API_KEY": "abc"}, false},
		{"token in value", []string{"bearer TOKEN here"}, false},
		{"secret string", "my Secret", false},
		{"key false positive", map[string]any{"note": "Keystone Plaza"}, false},
		{"timestamps", []int64{1700000000000, 1700000001000}, true},
		{"raw bytes", []byte(`{"email":"a@b.co"}`), true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreventSensitiveStorage(tt.in); got != tt.want {
				t.Errorf("PreventSensitiveStorage(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsLocalHost(t *testing.T) {
	tests := map[string]bool{
		"localhost":          true,
		"localhost:8080":     true,
		"app.localhost":      true,
		"127.0.0.1:3000":     true,
		"[::1]:8080":         true,
		"192.168.1.20":       true,
		"10.0.0.5:8080":      true,
		"172.16.4.1":         true,
		"example.com":        false,
		"www.example.com:80": false,
		"8.8.8.8":            false,
	}
	for host, want := range tests {
		if got := IsLocalHost(host); got != want {
			t.Errorf("IsLocalHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsSecureContext(t *testing.T) {
	plain := httptest.NewRequest("GET", "http://example.com/contact", nil)
	if IsSecureContext(plain, true) {
		t.Fatal("plain HTTP request reported secure")
	}

	tlsReq := httptest.NewRequest("GET", "https://example.com/contact", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	if !IsSecureContext(tlsReq, false) {
		t.Fatal("TLS request reported insecure")
	}

	proxied := httptest.NewRequest("GET", "http://example.com/contact", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https, http")
	if !IsSecureContext(proxied, true) {
		t.Fatal("trusted forwarded proto ignored")
	}
	if IsSecureContext(proxied, false) {
		t.Fatal("untrusted forwarded proto honoured")
	}

	local := httptest.NewRequest("GET", "http://localhost:3000/contact", nil)
	local.RemoteAddr = "127.0.0.1:52000"
	if !IsSecureContext(local, false) {
		t.Fatal("localhost should count as a secure context")
	}
}

func TestIsSecureContext_LoopbackHostNeedsLoopbackPeer(t *testing.T) {
	tests := []struct {
		host, remote string
		want         bool
	}{
		{"localhost:3000", "127.0.0.1:52000", true},
		{"localhost", "[::1]:52000", true},
		{"127.0.0.1:8080", "127.0.0.1:40000", true},
		{"localhost", "203.0.113.5:1", false},
		{"127.0.0.1", "198.51.100.7:443", false},
		{"app.localhost", "", false},
	}
	for _, tc := range tests {
		r := httptest.NewRequest("POST", "http://example.com/api/contact", nil)
		r.Host = tc.host
		r.RemoteAddr = tc.remote
		if got := IsSecureContext(r, false); got != tc.want {
			t.Errorf("IsSecureContext(Host=%q, RemoteAddr=%q) = %v, want %v", tc.host, tc.remote, got, tc.want)
		}
	}
}
