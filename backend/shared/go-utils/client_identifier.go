package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// ProxyTrust lists the reverse proxies whose forwarding headers are
// believed. A nil or empty ProxyTrust believes no headers at all.
type ProxyTrust struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts CIDRs or bare addresses, e.g. "10.0.0.0/8"
// or "127.0.0.1". Blank entries are skipped.
func ParseTrustedProxies(entries []string) (*ProxyTrust, error) {
	t := &ProxyTrust{}
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			t.nets = append(t.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		t.nets = append(t.nets, n)
	}
	return t, nil
}

func (t *ProxyTrust) trusts(ip string) bool {
	if t == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the direct peer unless that peer is a trusted proxy. Then
// it walks X-Forwarded-For from the right and returns the first hop that is
// not itself trusted, since only the entries our proxies appended are
// reliable.
func (t *ProxyTrust) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isValidIP(peer) {
		return ""
	}
	if !t.trusts(peer) {
		return peer
	}

	if forwardedFor := r.Header.Values("X-Forwarded-For"); len(forwardedFor) > 0 {
		hops := strings.Split(strings.Join(forwardedFor, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if !isValidIP(hop) {
				// nothing left of a malformed hop can be trusted
				break
			}
			client = hop
			if !t.trusts(hop) {
				break
			}
		}
		return client
	}

	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if v := strings.TrimSpace(r.Header.Get(h)); isValidIP(v) {
			return v
		}
	}

	if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "for=") {
				maybeIP := strings.Trim(strings.TrimPrefix(part, "for="), "\"")
				if isValidIP(maybeIP) {
					return maybeIP
				}
			}
		}
	}
	return peer
}

var trustedProxies atomic.Pointer[ProxyTrust]

// SetTrustedProxies replaces the proxy list used by ClientIP.
func SetTrustedProxies(t *ProxyTrust) {
	trustedProxies.Store(t)
}

// ClientIP resolves the caller's address through the proxies configured
// with SetTrustedProxies. Used for rate limiting and signature records.
func ClientIP(r *http.Request) string {
	return trustedProxies.Load().ClientIP(r)
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
