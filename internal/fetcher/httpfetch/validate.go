package httpfetch

import (
	"fmt"
	"net"
	"net/url"
)

// ValidateURL rejects URLs the watcher must never fetch: anything that is
// not absolute http/https, and hosts on loopback or private networks. The
// private-range rejection is a basic SSRF guard; it runs both at config
// validation time and before every fetch.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	host := u.Hostname()
	if host == "localhost" {
		return fmt.Errorf("host %q resolves to a local network", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("ip %q is in a private or local range", host)
		}
	}
	return nil
}
