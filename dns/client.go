package dns

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// MXRecord is one MX record: preference and exchange host, host stripped
// of the trailing root-label dot.
type MXRecord struct {
	Pref uint16 `json:"priority"`
	Host string `json:"host"`
}

// Client wraps a Resolver with the lookup policy the checkers share:
// a missing record and a failed query both come back as an empty result.
// Transport failures are logged, absence is not. Client is safe for
// concurrent use as long as the underlying Resolver is.
type Client struct {
	resolver Resolver
	log      *slog.Logger
}

// NewClient creates a Client on top of the given resolver.
// If logger is nil, slog.Default() is used.
func NewClient(resolver Resolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{resolver: resolver, log: logger}
}

// absorb collapses a lookup error into "no records", logging transport
// faults so they remain visible without becoming a failure surface.
func (c *Client) absorb(err error, qtype, name string) {
	if err == nil || IsNotFound(err) {
		return
	}
	c.log.Warn("dns lookup degraded to empty result",
		slog.String("type", qtype),
		slog.String("name", name),
		slog.Any("error", err),
	)
}

// ResolveMX returns the domain's MX records sorted ascending by
// preference. Ties keep their response order.
func (c *Client) ResolveMX(ctx context.Context, domain string) []MXRecord {
	result, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		c.absorb(err, "MX", domain)
		return nil
	}

	records := make([]MXRecord, 0, len(result.Records))
	for _, mx := range result.Records {
		records = append(records, MXRecord{
			Pref: mx.Pref,
			Host: strings.TrimSuffix(mx.Host, "."),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})
	return records
}

// ResolveTXT returns the domain's TXT records, one concatenated string
// per record.
func (c *Client) ResolveTXT(ctx context.Context, domain string) []string {
	result, err := c.resolver.LookupTXT(ctx, domain)
	if err != nil {
		c.absorb(err, "TXT", domain)
		return nil
	}
	return result.Records
}

// ResolveA returns the domain's IPv4 addresses as strings.
func (c *Client) ResolveA(ctx context.Context, domain string) []string {
	result, err := c.resolver.LookupA(ctx, domain)
	if err != nil {
		c.absorb(err, "A", domain)
		return nil
	}

	addrs := make([]string, 0, len(result.Records))
	for _, ip := range result.Records {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// ResolveAAAA returns the domain's IPv6 addresses as strings.
func (c *Client) ResolveAAAA(ctx context.Context, domain string) []string {
	result, err := c.resolver.LookupAAAA(ctx, domain)
	if err != nil {
		c.absorb(err, "AAAA", domain)
		return nil
	}

	addrs := make([]string, 0, len(result.Records))
	for _, ip := range result.Records {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// ResolveCNAME returns the domain's CNAME target with the trailing dot
// stripped, or "" when none exists.
func (c *Client) ResolveCNAME(ctx context.Context, domain string) string {
	result, err := c.resolver.LookupCNAME(ctx, domain)
	if err != nil {
		c.absorb(err, "CNAME", domain)
		return ""
	}
	if len(result.Records) == 0 {
		return ""
	}
	return strings.TrimSuffix(result.Records[0], ".")
}

// HostExists reports whether the host resolves to at least one A or
// AAAA record.
func (c *Client) HostExists(ctx context.Context, host string) bool {
	if len(c.ResolveA(ctx, host)) > 0 {
		return true
	}
	return len(c.ResolveAAAA(ctx, host)) > 0
}

// SPFRecord returns the domain's SPF record: the first TXT record whose
// value starts with "v=spf1", case-insensitively. Returns "" when the
// domain publishes none.
func (c *Client) SPFRecord(ctx context.Context, domain string) string {
	for _, record := range c.ResolveTXT(ctx, domain) {
		if strings.HasPrefix(strings.ToLower(record), "v=spf1") {
			return record
		}
	}
	return ""
}

// DMARCRecords queries _dmarc.<domain> and returns the first record
// starting with "v=dmarc1" plus the full list of such records. More
// than one entry in the list is a misconfiguration the caller scores.
func (c *Client) DMARCRecords(ctx context.Context, domain string) (string, []string) {
	var records []string
	for _, record := range c.ResolveTXT(ctx, "_dmarc."+domain) {
		if strings.HasPrefix(strings.ToLower(record), "v=dmarc1") {
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return "", nil
	}
	return records[0], records
}

// DKIMRecord returns the DKIM key record published at
// <selector>._domainkey.<domain>. If a CNAME exists there, it is
// followed once and TXT is queried at the target. The first record
// containing "v=dkim1", "k=" or "p=" (case-insensitively) is returned;
// this heuristic accepts records that omit the version tag.
func (c *Client) DKIMRecord(ctx context.Context, domain, selector string) string {
	name := selector + "._domainkey." + domain

	var records []string
	if target := c.ResolveCNAME(ctx, name); target != "" {
		records = c.ResolveTXT(ctx, target)
	} else {
		records = c.ResolveTXT(ctx, name)
	}

	for _, record := range records {
		lower := strings.ToLower(record)
		if strings.Contains(lower, "v=dkim1") || strings.Contains(lower, "k=") || strings.Contains(lower, "p=") {
			return record
		}
	}
	return ""
}

// DKIMCNAME returns the CNAME target for a DKIM selector, used to
// verify provider key delegation. Returns "" when no CNAME exists.
func (c *Client) DKIMCNAME(ctx context.Context, domain, selector string) string {
	return c.ResolveCNAME(ctx, selector+"._domainkey."+domain)
}
