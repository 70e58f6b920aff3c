package certmanager

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSVerifier checks that a domain resolves to the gateway before an ACME
// order is attempted, so obviously misconfigured domains are rejected at
// attach time instead of burning CA rate limits.
type DNSVerifier interface {
	Verify(ctx context.Context, domainName string) error
}

// Verifier resolves CNAME and A records for a candidate domain and accepts
// it when the CNAME equals the configured target or an A record matches a
// configured gateway address.
type Verifier struct {
	client      *dns.Client
	server      string
	cnameTarget string
	gatewayIPs  map[string]struct{}
}

// NewVerifier builds a verifier from config. With an empty DNSResolver the
// system resolver configuration is used, falling back to a public resolver
// when /etc/resolv.conf is unreadable.
func NewVerifier(cfg Config) *Verifier {
	server := strings.TrimSpace(cfg.DNSResolver)
	if server == "" {
		if rc, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(rc.Servers) > 0 {
			server = net.JoinHostPort(rc.Servers[0], rc.Port)
		} else {
			server = "1.1.1.1:53"
		}
	}

	ips := make(map[string]struct{}, len(cfg.GatewayIPs))
	for _, ip := range cfg.GatewayIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips[ip] = struct{}{}
		}
	}

	return &Verifier{
		client:      &dns.Client{Timeout: 5 * time.Second},
		server:      server,
		cnameTarget: strings.TrimSuffix(strings.ToLower(strings.TrimSpace(cfg.CNAMETarget)), "."),
		gatewayIPs:  ips,
	}
}

// Verify returns nil when domainName points at the gateway, and an error
// wrapping ErrDNSVerificationFailed otherwise. The error text names the
// expected records so it can be surfaced to the tenant as instructions.
func (v *Verifier) Verify(ctx context.Context, domainName string) error {
	fqdn := dns.Fqdn(strings.ToLower(strings.TrimSpace(domainName)))

	if v.cnameTarget != "" {
		target, err := v.lookupCNAME(ctx, fqdn)
		if err == nil && target == v.cnameTarget {
			return nil
		}
	}

	if len(v.gatewayIPs) > 0 {
		addrs, err := v.lookupA(ctx, fqdn)
		if err != nil {
			return fmt.Errorf("%w: lookup failed for %s: %v", ErrDNSVerificationFailed, domainName, err)
		}
		for _, addr := range addrs {
			if _, ok := v.gatewayIPs[addr]; ok {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: point %s at %s via CNAME %s or an A record",
		ErrDNSVerificationFailed, domainName, v.expected(), v.cnameTarget)
}

func (v *Verifier) lookupCNAME(ctx context.Context, fqdn string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeCNAME)

	resp, _, err := v.client.ExchangeContext(ctx, msg, v.server)
	if err != nil {
		return "", err
	}
	for _, rr := range resp.Answer {
		if cname, ok := rr.(*dns.CNAME); ok {
			return strings.TrimSuffix(strings.ToLower(cname.Target), "."), nil
		}
	}
	return "", fmt.Errorf("no CNAME record for %s", fqdn)
}

func (v *Verifier) lookupA(ctx context.Context, fqdn string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeA)

	resp, _, err := v.client.ExchangeContext(ctx, msg, v.server)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no A records for %s", fqdn)
	}
	return addrs, nil
}

func (v *Verifier) expected() string {
	if len(v.gatewayIPs) == 0 {
		return "the gateway address"
	}
	ips := make([]string, 0, len(v.gatewayIPs))
	for ip := range v.gatewayIPs {
		ips = append(ips, ip)
	}
	return strings.Join(ips, " or ")
}
