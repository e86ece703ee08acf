package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS classes attached to connect errors.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

var dnsTimeout = 3 * time.Second

type resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// ClassifyHost tells an unreachable server apart from a name that does not
// resolve, using the OS resolver.
func ClassifyHost(ctx context.Context, host string) string {
	return classify(ctx, &net.Resolver{}, host)
}

func classify(ctx context.Context, r resolver, host string) string {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "://") {
		return DNSInvalidName
	}
	if net.ParseIP(host) != nil {
		return DNSResolves
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", host)
	if err == nil && len(ips) > 0 {
		return DNSResolves
	}

	class := DNSServfail
	var de *net.DNSError
	if err != nil && errors.As(err, &de) && de.IsNotFound {
		class = DNSNXDomain
	}
	if err == nil {
		class = DNSNXDomain
	}
	// the zone exists but has no address for this name
	if ns, nsErr := r.LookupNS(ctx, host); nsErr == nil && len(ns) > 0 && class == DNSNXDomain {
		class = DNSNoARecord
	}
	return class
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
