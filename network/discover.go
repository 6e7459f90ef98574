package network

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// SRVLedger is the service label for ledger query servers: _ledger._tcp.{domain}.
	SRVLedger = "ledger"

	// SchemeSRV marks an endpoint that must be discovered via DNS.
	SchemeSRV = "srv://"

	defaultUpstream = "8.8.8.8:53"
	dnssecTimeout   = 10 * time.Second
	edns0BufSize    = 4096
)

// DNSResolver looks up SRV records. Tests substitute a fake.
type DNSResolver interface {
	LookupSRV(service, proto, name string) (string, []*net.SRV, error)
}

type defaultDNSResolver struct{}

func (d *defaultDNSResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	return net.LookupSRV(service, proto, name)
}

// DefaultDNSResolver uses the system resolver.
var DefaultDNSResolver DNSResolver = &defaultDNSResolver{}

// DNSSECResolver implements DNSResolver against a validating recursive
// resolver and requires the AD flag on every answer.
type DNSSECResolver struct {
	Upstream string
	Timeout  time.Duration
}

// NewDNSSECResolver creates a DNSSECResolver. An empty upstream means 8.8.8.8:53.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream, Timeout: dnssecTimeout}
}

// LookupSRV queries _service._proto.name with the DO bit set. The cname
// return is always empty.
func (r *DNSSECResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	qname := fmt.Sprintf("_%s._%s.%s", service, proto, name)

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), dns.TypeSRV)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true)

	client := &dns.Client{Timeout: r.Timeout}
	resp, _, err := client.Exchange(msg, r.Upstream)
	if err != nil {
		return "", nil, fmt.Errorf("%w: query %s SRV: %w", ErrDNSLookupFailed, qname, err)
	}
	srvs, err := srvAnswers(resp, qname)
	if err != nil {
		return "", nil, err
	}
	return "", srvs, nil
}

// srvAnswers validates a DNSSEC response and extracts its SRV records.
func srvAnswers(resp *dns.Msg, qname string) ([]*net.SRV, error) {
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s SRV: rcode %s",
			ErrDNSLookupFailed, qname, dns.RcodeToString[resp.Rcode])
	}
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s SRV", ErrDNSSECValidationFailed, qname)
	}

	var srvs []*net.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, &net.SRV{
				Target:   strings.TrimSuffix(srv.Target, "."),
				Port:     srv.Port,
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	if len(srvs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for %s", ErrNoEndpoints, qname)
	}
	return srvs, nil
}

// ResolveEndpoint turns an endpoint into a base URL. http(s) endpoints are
// returned unchanged; srv://domain is resolved through _ledger._tcp.domain
// and the best record (lowest priority, then highest weight) wins. Port 443
// maps to https, anything else to http.
func ResolveEndpoint(endpoint string, resolver DNSResolver) (string, error) {
	if !strings.HasPrefix(endpoint, SchemeSRV) {
		return endpoint, nil
	}
	domain := strings.TrimSuffix(strings.TrimPrefix(endpoint, SchemeSRV), "/")
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain in %q", ErrInvalidEndpoint, endpoint)
	}
	if resolver == nil {
		resolver = DefaultDNSResolver
	}

	_, addrs, err := resolver.LookupSRV(SRVLedger, "tcp", domain)
	if err != nil {
		return "", fmt.Errorf("%w: SRV lookup for _%s._tcp.%s: %w", ErrDNSLookupFailed, SRVLedger, domain, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrNoEndpoints, SRVLedger, domain)
	}

	sort.SliceStable(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	best := addrs[0]
	host := strings.TrimSuffix(best.Target, ".")
	if host == "" {
		return "", fmt.Errorf("%w: empty SRV target for %s", ErrNoEndpoints, domain)
	}
	scheme := "http"
	if best.Port == 443 {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, fmt.Sprint(best.Port))), nil
}
