// Package mx validates a domain's MX records: that any exist, and that
// every advertised exchange host resolves to at least one address.
package mx

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dns"
)

// Points breakdown, out of 10.
const (
	pointsExists     = 5
	pointsAllResolve = 5
)

// hostConcurrency caps the fan-out of per-host resolution lookups.
const hostConcurrency = 5

// Checker validates MX records.
type Checker struct {
	resolver *dns.Client
	log      *slog.Logger
}

// New creates an MX checker using the given resolver.
func New(resolver *dns.Client, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, log: logger}
}

// Check evaluates the domain's MX posture.
func (c *Checker) Check(ctx context.Context, domain string) *check.Result {
	result := check.NewResult(check.ControlMX)

	records := c.resolver.ResolveMX(ctx, domain)

	result.RawRecords = make([]string, 0, len(records))
	parsed := make([]any, 0, len(records))
	for _, rec := range records {
		result.RawRecords = append(result.RawRecords, fmt.Sprintf("%d %s", rec.Pref, rec.Host))
		parsed = append(parsed, map[string]any{"priority": int(rec.Pref), "host": rec.Host})
	}
	result.ParsedData["records"] = parsed

	if len(records) == 0 {
		result.Errorf("No MX records found")
		result.Remediate("Add MX records to enable email delivery")
		return result
	}
	result.Award(pointsExists)
	result.Successf("Found %d MX record(s)", len(records))

	resolved, unresolved := c.resolveHosts(ctx, records)
	result.ParsedData["resolved_hosts"] = check.List(resolved)
	result.ParsedData["unresolved_hosts"] = check.List(unresolved)

	if len(unresolved) == 0 {
		result.Award(pointsAllResolve)
		result.Successf("All MX hosts resolve correctly")
	} else {
		result.Errorf("Dangling MX record(s): %s", strings.Join(unresolved, ", "))
		result.Remediate(fmt.Sprintf("Fix or remove dangling MX records: %s", strings.Join(unresolved, ", ")))
	}

	return result
}

// resolveHosts checks every MX host concurrently with a bounded pool.
// A failing lookup never blocks or cancels the sibling lookups; every
// input host lands in exactly one of the returned sets.
func (c *Checker) resolveHosts(ctx context.Context, records []dns.MXRecord) (resolved, unresolved []string) {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hostConcurrency)

	for _, rec := range records {
		host := rec.Host
		g.Go(func() error {
			exists := c.resolver.HostExists(ctx, host)
			mu.Lock()
			defer mu.Unlock()
			if exists {
				resolved = append(resolved, host)
			} else {
				unresolved = append(unresolved, host)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(resolved)
	sort.Strings(unresolved)
	return resolved, unresolved
}
