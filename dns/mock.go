package dns

import (
	"context"
	"net"
	"slices"
)

// MockResolver is a Resolver used for testing.
// Set DNS records in the fields, which map FQDNs (with trailing dot) to values.
type MockResolver struct {
	A     map[string][]string
	AAAA  map[string][]string
	TXT   map[string][]string
	MX    map[string][]*net.MX
	CNAME map[string]string

	// Fail contains records that will return a temporary error (SERVFAIL).
	// Format: "type name", e.g. "txt example.com." where type is lowercase.
	Fail []string

	// AllAuthentic sets the default value for Authentic in responses.
	AllAuthentic bool
}

var _ Resolver = MockResolver{}

// mockReq represents a mock DNS request.
type mockReq struct {
	Type string // E.g. "txt", "a", "aaaa", "mx", "cname"
	Name string // FQDN with trailing dot
}

func (mr mockReq) String() string {
	return mr.Type + " " + mr.Name
}

// ensureFQDN ensures the name ends with a dot.
func ensureFQDN(name string) string {
	if len(name) == 0 || name[len(name)-1] != '.' {
		return name + "."
	}
	return name
}

func (r MockResolver) check(ctx context.Context, mr mockReq) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if slices.Contains(r.Fail, mr.String()) {
		return ErrDNSServFail
	}
	return nil
}

// LookupTXT returns TXT records for the given domain.
func (r MockResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	fqdn := ensureFQDN(name)
	result := Result[string]{Authentic: r.AllAuthentic}

	if err := r.check(ctx, mockReq{"txt", fqdn}); err != nil {
		return result, err
	}

	records, ok := r.TXT[fqdn]
	if !ok || len(records) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = records
	return result, nil
}

// LookupA returns A records for the given domain.
func (r MockResolver) LookupA(ctx context.Context, name string) (Result[net.IP], error) {
	return r.lookupIP(ctx, "a", r.A, name)
}

// LookupAAAA returns AAAA records for the given domain.
func (r MockResolver) LookupAAAA(ctx context.Context, name string) (Result[net.IP], error) {
	return r.lookupIP(ctx, "aaaa", r.AAAA, name)
}

func (r MockResolver) lookupIP(ctx context.Context, qtype string, table map[string][]string, name string) (Result[net.IP], error) {
	fqdn := ensureFQDN(name)
	result := Result[net.IP]{Authentic: r.AllAuthentic}

	if err := r.check(ctx, mockReq{qtype, fqdn}); err != nil {
		return result, err
	}

	var ips []net.IP
	for _, ip := range table[fqdn] {
		ips = append(ips, net.ParseIP(ip))
	}

	if len(ips) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = ips
	return result, nil
}

// LookupMX returns MX records for the given domain.
func (r MockResolver) LookupMX(ctx context.Context, name string) (Result[*net.MX], error) {
	fqdn := ensureFQDN(name)
	result := Result[*net.MX]{Authentic: r.AllAuthentic}

	if err := r.check(ctx, mockReq{"mx", fqdn}); err != nil {
		return result, err
	}

	records, ok := r.MX[fqdn]
	if !ok || len(records) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = records
	return result, nil
}

// LookupCNAME returns the CNAME target for the given domain.
func (r MockResolver) LookupCNAME(ctx context.Context, name string) (Result[string], error) {
	fqdn := ensureFQDN(name)
	result := Result[string]{Authentic: r.AllAuthentic}

	if err := r.check(ctx, mockReq{"cname", fqdn}); err != nil {
		return result, err
	}

	target, ok := r.CNAME[fqdn]
	if !ok || target == "" {
		return result, ErrDNSNotFound
	}

	result.Records = []string{target}
	return result, nil
}
