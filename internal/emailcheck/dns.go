package emailcheck

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rotisserie/eris"
)

const (
	defaultResolvConf = "/etc/resolv.conf"
	fallbackServer    = "8.8.8.8:53"
)

// DNSResolver resolves MX records by querying a single nameserver directly.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver. An empty server selects the first
// nameserver in /etc/resolv.conf, falling back to a public resolver.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if server == "" {
		server = systemNameserver(defaultResolvConf)
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// Server returns the nameserver address in use.
func (r *DNSResolver) Server() string { return r.server }

func systemNameserver(path string) string {
	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackServer
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// LookupMX implements MXResolver.
func (r *DNSResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, eris.Wrapf(err, "emailcheck: query %s", domain)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, ErrNoRecords
	default:
		return nil, eris.Errorf("emailcheck: query %s: rcode %s", domain, dns.RcodeToString[resp.Rcode])
	}

	var hosts []string
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			hosts = append(hosts, strings.TrimSuffix(mx.Mx, "."))
		}
	}
	if len(hosts) == 0 {
		return nil, ErrNoRecords
	}
	return hosts, nil
}
