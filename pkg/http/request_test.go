package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		config     *pkghttp.IPConfig
		expected   string
	}{
		{
			name:       "direct connection ignores forwarding headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xRealIP:    "192.168.1.1",
			config:     pkghttp.NewIPConfig([]string{"10.0.0.0/8", "172.16.0.0/12", "127.0.0.1/32"}),
			expected:   "203.0.113.10",
		},
		{
			name:       "trusted proxy uses X-Forwarded-For",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 10.0.0.5",
			xRealIP:    "203.0.113.42",
			config:     pkghttp.NewIPConfig([]string{"10.0.0.0/8"}),
			expected:   "203.0.113.42",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.0.0.5:54321",
			xRealIP:    "198.51.100.7",
			config:     pkghttp.NewIPConfig([]string{"10.0.0.0/8"}),
			expected:   "198.51.100.7",
		},
		{
			name:       "IPv6 trusted proxy",
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			config:     pkghttp.NewIPConfig([]string{"::1/128"}),
			expected:   "2001:db8::1",
		},
		{
			name:       "nil config trusts nobody",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     nil,
			expected:   "203.0.113.10",
		},
		{
			name:       "empty config trusts nobody",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     pkghttp.NewIPConfig(nil),
			expected:   "203.0.113.10",
		},
		{
			name:       "invalid CIDRs are skipped",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     pkghttp.NewIPConfig([]string{"invalid-cidr-range", "also-invalid"}),
			expected:   "203.0.113.10",
		},
		{
			name:       "first valid forwarded address wins",
			remoteAddr: "10.0.0.5:54321",
			xff:        "garbage, 203.0.113.42, 203.0.113.43",
			config:     pkghttp.NewIPConfig([]string{"10.0.0.0/8"}),
			expected:   "203.0.113.42",
		},
		{
			name:       "untrusted peer cannot claim localhost",
			remoteAddr: "203.0.113.10:54321",
			xff:        "127.0.0.1, 203.0.113.10",
			config:     pkghttp.NewIPConfig([]string{"10.0.0.0/8"}),
			expected:   "203.0.113.10",
		},
		{
			name:       "remote address without port",
			remoteAddr: "203.0.113.10",
			config:     nil,
			expected:   "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expected, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
