package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies holds the networks whose forwarding headers are believed.
// A nil *TrustedProxies trusts nobody.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts bare IPs and CIDR ranges.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	t := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: not an IP or CIDR", entry)
			}
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			entry = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		t.nets = append(t.nets, ipNet)
	}
	return t, nil
}

func (t *TrustedProxies) contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Trusts reports whether r arrived directly from a trusted proxy, so its
// X-Forwarded-* headers may be used.
func (t *TrustedProxies) Trusts(r *http.Request) bool {
	return t.contains(net.ParseIP(remoteHost(r)))
}

// ClientIP is the connection's remote address unless that address is a
// trusted proxy. Then X-Forwarded-For is walked from the right and the first
// hop that is not itself a trusted proxy wins.
func (t *TrustedProxies) ClientIP(r *http.Request) string {
	remote := remoteHost(r)
	if !t.contains(net.ParseIP(remote)) {
		return remote
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := remote
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		ip := net.ParseIP(hop)
		if ip == nil {
			return remote
		}
		client = ip.String()
		if !t.contains(ip) {
			return client
		}
	}
	return client
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
