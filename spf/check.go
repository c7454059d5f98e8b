package spf

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

// Points breakdown, out of 25.
const (
	pointsExists       = 5
	pointsSyntaxValid  = 5
	pointsLookupLimit  = 2
	pointsHostsResolve = 3
	pointsTerminalFail = 6 // -all
	pointsTerminalSoft = 3 // ~all
	pointsHygiene      = 4 // no ptr, no excessive includes
)

// maxLookups is the RFC 7208 evaluation budget.
const maxLookups = 10

// maxIncludes is the hygiene threshold for include expansion.
const maxIncludes = 5

// hostConcurrency caps the fan-out of per-host resolution lookups.
const hostConcurrency = 5

// Checker validates and scores SPF records.
type Checker struct {
	resolver *dns.Client
	log      *slog.Logger
}

// New creates an SPF checker using the given resolver.
func New(resolver *dns.Client, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, log: logger}
}

// Check evaluates the domain's SPF posture.
func (c *Checker) Check(ctx context.Context, domain string) *check.Result {
	result := check.NewResult(check.ControlSPF)

	record := c.resolver.SPFRecord(ctx, domain)
	if record == "" {
		result.Errorf("No SPF record found")
		result.Remediate("Add an SPF record: v=spf1 include:<your-mail-provider> -all")
		return result
	}

	result.RawRecords = []string{record}
	result.Award(pointsExists)
	result.Successf("SPF record found")

	parsed := Parse(record)
	storeParsed(result, parsed)

	// +all voids the whole control: it invites anyone to send as the
	// domain, so points already earned are reset, not just withheld.
	if parsed.Terminal == "+all" {
		result.Points = 0
		result.Errorf("SPF uses +all which allows anyone to spoof your domain")
		result.Remediate("Change +all to -all to reject unauthorized senders")
		return result
	}

	if len(parsed.SyntaxErrors) == 0 && len(parsed.Duplicates) == 0 {
		result.Award(pointsSyntaxValid)
		result.Successf("SPF syntax is valid")
	} else {
		for _, e := range parsed.SyntaxErrors {
			result.Errorf("Syntax error: %s", e)
		}
		if len(parsed.SyntaxErrors) > 0 {
			result.Remediate("Fix SPF syntax errors")
		}
		if len(parsed.Duplicates) > 0 {
			result.Warnf("Duplicate mechanisms: %s", strings.Join(parsed.Duplicates, ", "))
			result.Remediate("Remove duplicate mechanisms from SPF record")
		}
	}

	if parsed.LookupCount <= maxLookups {
		result.Award(pointsLookupLimit)
		result.Successf("DNS lookups: %d/%d", parsed.LookupCount, maxLookups)
	} else {
		result.Errorf("Too many DNS lookups: %d/%d (SPF may fail)", parsed.LookupCount, maxLookups)
		result.Remediate("Reduce DNS lookups by flattening includes or using ip4/ip6 instead")
	}

	unresolved := c.unresolvedHosts(ctx, parsed.HostsToCheck)
	result.ParsedData["unresolved_hosts"] = check.List(unresolved)

	if len(parsed.HostsToCheck) == 0 || len(unresolved) == 0 {
		result.Award(pointsHostsResolve)
		result.Successf("All referenced hosts resolve")
	} else {
		result.Warnf("Unresolved hosts: %s", strings.Join(unresolved, ", "))
		result.Remediate(fmt.Sprintf("Fix or remove references to unresolved hosts: %s", strings.Join(unresolved, ", ")))
	}

	switch parsed.Terminal {
	case "-all":
		result.Award(pointsTerminalFail)
		result.Successf("SPF uses -all (strict reject)")
	case "~all":
		result.Award(pointsTerminalSoft)
		result.Warnf("SPF uses ~all (soft fail) - consider upgrading to -all")
		result.Remediate("Change ~all to -all for stricter enforcement")
	case "?all":
		result.Warnf("SPF uses ?all (neutral) - this provides no protection")
		result.Remediate("Change ?all to -all for protection")
	default:
		result.Warnf("SPF missing terminal 'all' mechanism")
		result.Remediate("Add -all at the end of your SPF record")
	}

	excessiveIncludes := parsed.IncludeCount > maxIncludes
	if !parsed.HasPTR && !excessiveIncludes {
		result.Award(pointsHygiene)
		result.Successf("No deprecated ptr mechanism used")
	} else {
		if parsed.HasPTR {
			result.Warnf("SPF uses ptr mechanism (deprecated and unreliable)")
			result.Remediate("Remove ptr mechanism from SPF record")
		}
		if excessiveIncludes {
			result.Infof("Many includes (%d) - consider flattening", parsed.IncludeCount)
		}
	}

	return result
}

// storeParsed copies the parse state into the result's parsed data.
func storeParsed(result *check.Result, parsed *Record) {
	mechanisms := make([]any, 0, len(parsed.Mechanisms))
	for _, m := range parsed.Mechanisms {
		mechanisms = append(mechanisms, map[string]any{
			"qualifier": m.Qualifier,
			"mechanism": m.Name,
			"value":     m.Value,
		})
	}
	result.ParsedData["mechanisms"] = mechanisms
	result.ParsedData["terminal"] = parsed.Terminal
	result.ParsedData["lookup_count"] = parsed.LookupCount
	result.ParsedData["syntax_errors"] = check.List(parsed.SyntaxErrors)
	result.ParsedData["duplicates"] = check.List(parsed.Duplicates)
	result.ParsedData["has_ptr"] = parsed.HasPTR
	result.ParsedData["hosts_to_check"] = check.List(parsed.HostsToCheck)
	result.ParsedData["include_count"] = parsed.IncludeCount
}

// unresolvedHosts checks each referenced host concurrently with a
// bounded pool and returns the ones without any A or AAAA record.
func (c *Checker) unresolvedHosts(ctx context.Context, hosts []string) []string {
	var mu sync.Mutex
	var unresolved []string

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hostConcurrency)

	for _, host := range hosts {
		g.Go(func() error {
			if !c.resolver.HostExists(ctx, host) {
				mu.Lock()
				unresolved = append(unresolved, host)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(unresolved)
	return unresolved
}
