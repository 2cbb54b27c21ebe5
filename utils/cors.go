package utils

import (
	"net"
	"net/url"
	"strings"
)

var privateRanges = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16", // link-local IPv4
		"::1/128",        // loopback IPv6
		"fe80::/10",      // link-local IPv6
		"fc00::/7",       // unique local IPv6
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		_, network, err := net.ParseCIDR(s)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}()

// IsAllowedOrigin checks whether an Origin header value should be trusted.
// The server fronts a local UI, so localhost, private/RFC1918 IPs, link-local
// IPs, .local hostnames, and single-label LAN names are allowed. Public
// internet origins are blocked.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()

	if hostname == "localhost" {
		return true
	}

	// mDNS hostnames (e.g., mybox.local)
	if strings.HasSuffix(hostname, ".local") {
		return true
	}

	// Single-label hostnames (no dots = LAN names)
	if !strings.Contains(hostname, ".") {
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}

	return false
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
