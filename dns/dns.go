// Package dns provides the DNS resolution layer for posture scans.
//
// The package separates two concerns:
//
//   - Resolver is the low-level lookup interface (MX, TXT, A, AAAA,
//     CNAME). Implementations exist for github.com/miekg/dns
//     (DNSResolver) and the standard library (StdResolver), plus a
//     MockResolver for tests.
//   - Client wraps a Resolver with the record-fetching policy the
//     checkers need: "not found" and transport failures both degrade to
//     empty results, because the absence of a record is a scored fact,
//     not an error.
package dns

import (
	"context"
	"net"
)

// Result is a generic DNS lookup result.
type Result[T any] struct {
	// Records contains the records returned by the query.
	Records []T

	// Authentic indicates if the DNS response was DNSSEC-validated.
	// Always false for resolvers without DNSSEC support.
	Authentic bool
}

// Resolver is the low-level lookup interface used by Client.
// All methods return ErrDNSNotFound when the name exists but has no
// matching records, or when the name does not exist at all.
type Resolver interface {
	// LookupTXT retrieves TXT records for the given name.
	// Multi-segment TXT records are joined into one string per record.
	LookupTXT(ctx context.Context, name string) (Result[string], error)

	// LookupA retrieves A records for the given name.
	LookupA(ctx context.Context, name string) (Result[net.IP], error)

	// LookupAAAA retrieves AAAA records for the given name.
	LookupAAAA(ctx context.Context, name string) (Result[net.IP], error)

	// LookupMX retrieves MX records for the given name, in response order.
	LookupMX(ctx context.Context, name string) (Result[*net.MX], error)

	// LookupCNAME retrieves the CNAME target for the given name.
	// At most one record is returned.
	LookupCNAME(ctx context.Context, name string) (Result[string], error)
}
