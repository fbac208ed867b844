package web

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Hostnames that must never be fetched regardless of what they resolve
// to. Covers loopback aliases and cloud metadata services.
var blockedHostnames = map[string]bool{
	"localhost":                 true,
	"metadata":                  true,
	"metadata.google.internal":  true,
	"metadata.goog":             true,
	"instance-data":             true,
	"instance-data.ec2.internal": true,
}

// ValidateURL reports whether a URL is safe for the fetcher to touch:
// http or https only, a real hostname, and nothing that resolves into
// private, loopback, link-local, or otherwise internal address space.
// Catching these before the request closes the SSRF hole a crawler
// following untrusted links would otherwise open.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("scheme %q not allowed (http and https only)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url %q has no hostname", raw)
	}
	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("host %q is not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if internalIP(ip) {
			return fmt.Errorf("address %s is not allowed", ip)
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", host, err)
	}
	for _, ip := range ips {
		if internalIP(ip) {
			return fmt.Errorf("host %q resolves to internal address %s", host, ip)
		}
	}
	return nil
}

// internalIP reports whether an address belongs to space a crawl must
// not reach: loopback, RFC 1918 and ULA ranges, link-local (which
// includes the 169.254.169.254 metadata endpoint), multicast,
// unspecified, and the reserved class E block.
func internalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil && ip4[0] >= 240 {
		return true
	}
	return false
}
