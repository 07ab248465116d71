package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are trusted
type IPConfig struct {
	trusted []netip.Prefix
}

// NewIPConfig parses CIDR ranges. Invalid entries are skipped.
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{}
	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		cfg.trusted = append(cfg.trusted, prefix.Masked())
	}
	return cfg
}

func (c *IPConfig) trusts(addr netip.Addr) bool {
	if c == nil {
		return false
	}
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the client address. X-Forwarded-For and X-Real-IP
// are honoured only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remote := remoteAddr(r)

	peer, err := netip.ParseAddr(remote)
	if err != nil || !config.trusts(peer.Unmap()) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if _, err := netip.ParseAddr(candidate); err == nil {
				return candidate
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return remote
}

// remoteAddr strips the port from RemoteAddr
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
