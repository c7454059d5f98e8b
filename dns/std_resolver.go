package dns

import (
	"context"
	"errors"
	"net"
	"strings"
)

// StdResolver implements the Resolver interface using the standard library
// net package. It uses whatever resolver the platform provides and does not
// support DNSSEC validation (Authentic will always be false).
// Use DNSResolver when custom nameservers or DNSSEC are needed.
type StdResolver struct {
	resolver *net.Resolver
}

var _ Resolver = (*StdResolver)(nil)

// NewStdResolver creates a resolver using the standard library.
func NewStdResolver() *StdResolver {
	return &StdResolver{
		resolver: net.DefaultResolver,
	}
}

// NewStdResolverWithDialer creates a resolver using a custom dialer.
// This allows configuring custom DNS servers while using the stdlib interface.
func NewStdResolverWithDialer(dial func(ctx context.Context, network, address string) (net.Conn, error)) *StdResolver {
	return &StdResolver{
		resolver: &net.Resolver{
			PreferGo: true,
			Dial:     dial,
		},
	}
}

// LookupTXT retrieves TXT records using the standard library.
func (r *StdResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	// Strip trailing dot for stdlib compatibility
	name = strings.TrimSuffix(name, ".")

	records, err := r.resolver.LookupTXT(ctx, name)
	if err != nil {
		return Result[string]{}, convertError(err)
	}

	if len(records) == 0 {
		return Result[string]{}, ErrDNSNotFound
	}

	return Result[string]{Records: records}, nil
}

// LookupA retrieves A records using the standard library.
func (r *StdResolver) LookupA(ctx context.Context, name string) (Result[net.IP], error) {
	return r.lookupIP(ctx, "ip4", name)
}

// LookupAAAA retrieves AAAA records using the standard library.
func (r *StdResolver) LookupAAAA(ctx context.Context, name string) (Result[net.IP], error) {
	return r.lookupIP(ctx, "ip6", name)
}

func (r *StdResolver) lookupIP(ctx context.Context, network, name string) (Result[net.IP], error) {
	name = strings.TrimSuffix(name, ".")

	ips, err := r.resolver.LookupIP(ctx, network, name)
	if err != nil {
		return Result[net.IP]{}, convertError(err)
	}

	if len(ips) == 0 {
		return Result[net.IP]{}, ErrDNSNotFound
	}

	return Result[net.IP]{Records: ips}, nil
}

// LookupMX retrieves MX records using the standard library.
func (r *StdResolver) LookupMX(ctx context.Context, name string) (Result[*net.MX], error) {
	name = strings.TrimSuffix(name, ".")

	records, err := r.resolver.LookupMX(ctx, name)
	if err != nil {
		return Result[*net.MX]{}, convertError(err)
	}

	if len(records) == 0 {
		return Result[*net.MX]{}, ErrDNSNotFound
	}

	return Result[*net.MX]{Records: records}, nil
}

// LookupCNAME retrieves the CNAME target using the standard library.
func (r *StdResolver) LookupCNAME(ctx context.Context, name string) (Result[string], error) {
	name = strings.TrimSuffix(name, ".")

	target, err := r.resolver.LookupCNAME(ctx, name)
	if err != nil {
		return Result[string]{}, convertError(err)
	}

	// The stdlib returns the name itself when no CNAME chain exists.
	if target == "" || strings.TrimSuffix(target, ".") == name {
		return Result[string]{}, ErrDNSNotFound
	}

	return Result[string]{Records: []string{target}}, nil
}

// convertError converts standard library DNS errors to package errors.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ErrDNSNotFound
		}
		if dnsErr.IsTimeout {
			return ErrDNSTimeout
		}
		if dnsErr.IsTemporary {
			return ErrDNSServFail
		}
	}

	return ErrDNSServFail
}
