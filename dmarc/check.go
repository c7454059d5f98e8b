package dmarc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dns"
)

// Points breakdown, out of 40.
const (
	pointsExists     = 10
	pointsReject     = 15
	pointsQuarantine = 10
	pointsRUA        = 5
	pointsStrictBoth = 5
	pointsStrictOne  = 3
	pointsFO         = 3
	pointsPctFull    = 2
	pointsPctPartial = 1
	pointsSubdomain  = 2
)

// Checker validates and scores DMARC records.
type Checker struct {
	resolver *dns.Client
	log      *slog.Logger
}

// New creates a DMARC checker using the given resolver.
func New(resolver *dns.Client, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, log: logger}
}

// Check evaluates the domain's DMARC posture.
func (c *Checker) Check(ctx context.Context, domain string) *check.Result {
	result := check.NewResult(check.ControlDMARC)

	record, all := c.resolver.DMARCRecords(ctx, domain)
	result.RawRecords = all

	if record == "" {
		result.Errorf("No DMARC record found")
		result.Remediate(`Add a DMARC record: _dmarc.yourdomain.com TXT "v=DMARC1; p=reject; rua=mailto:dmarc@yourdomain.com"`)
		return result
	}

	// Policy enforcement with conflicting DMARC records is undefined,
	// so duplicates withhold the existence points entirely.
	if len(all) > 1 {
		result.Warnf("Multiple DMARC records found (%d) - this may cause issues", len(all))
		result.Remediate("Remove duplicate DMARC records, keep only one")
	} else {
		result.Award(pointsExists)
		result.Successf("DMARC record found and unique")
	}

	tags := ParseTags(record)
	for name, value := range tags {
		result.ParsedData[name] = value
	}

	policy := c.scorePolicy(result, tags)
	c.scoreAggregateReporting(result, tags)
	c.scoreAlignment(result, tags)
	c.scoreFailureReporting(result, tags)
	c.scorePercentage(result, tags)
	c.scoreSubdomainPolicy(result, tags, policy)

	return result
}

// scorePolicy scores the p= tag and returns the normalized policy.
func (c *Checker) scorePolicy(result *check.Result, tags TagMap) string {
	policy := strings.ToLower(tags.Get("p", ""))

	switch policy {
	case "reject":
		result.Award(pointsReject)
		result.Successf("DMARC policy is 'reject' (strongest)")
	case "quarantine":
		result.Award(pointsQuarantine)
		result.Warnf("DMARC policy is 'quarantine' - consider upgrading to 'reject'")
		result.Remediate("Upgrade DMARC policy from p=quarantine to p=reject")
	case "none":
		result.Warnf("DMARC policy is 'none' (monitoring only, no protection)")
		result.Remediate("Upgrade DMARC policy to p=quarantine or p=reject after analyzing reports")
	default:
		result.Errorf("DMARC policy (p=) not specified or invalid")
		result.Remediate("Add a policy tag: p=reject")
	}

	return policy
}

// scoreAggregateReporting scores the rua= tag.
func (c *Checker) scoreAggregateReporting(result *check.Result, tags TagMap) {
	uris := MailtoURIs(tags.Get("rua", ""))
	result.ParsedData["rua_uris"] = check.List(uris)

	if len(uris) > 0 {
		result.Award(pointsRUA)
		result.Successf("Aggregate reporting configured: %d recipient(s)", len(uris))
	} else {
		result.Warnf("No aggregate reporting (rua) configured")
		result.Remediate("Add rua=mailto:dmarc-reports@yourdomain.com for visibility")
	}
}

// scoreAlignment scores the adkim= and aspf= tags. Both default to
// relaxed when absent.
func (c *Checker) scoreAlignment(result *check.Result, tags TagMap) {
	adkim := strings.ToLower(tags.Get("adkim", "r"))
	aspf := strings.ToLower(tags.Get("aspf", "r"))
	result.ParsedData["adkim"] = adkim
	result.ParsedData["aspf"] = aspf

	strict := 0
	if adkim == "s" {
		strict++
	}
	if aspf == "s" {
		strict++
	}

	switch strict {
	case 2:
		result.Award(pointsStrictBoth)
		result.Successf("Both DKIM and SPF alignment are strict")
	case 1:
		result.Award(pointsStrictOne)
		strictWhich, relaxedWhich := "DKIM", "SPF"
		if aspf == "s" {
			strictWhich, relaxedWhich = "SPF", "DKIM"
		}
		lower := strings.ToLower(relaxedWhich)
		result.Infof("%s alignment is strict, %s is relaxed", strictWhich, relaxedWhich)
		result.Remediate(fmt.Sprintf("Consider setting %s alignment to strict (a%s=s)", lower, lower[:1]))
	default:
		result.Infof("Both DKIM and SPF alignment are relaxed (default)")
		result.Remediate("Consider strict alignment (adkim=s; aspf=s) for better protection")
	}
}

// scoreFailureReporting scores the fo= tag. Default "0" reports only
// when every authentication method fails.
func (c *Checker) scoreFailureReporting(result *check.Result, tags TagMap) {
	fo := tags.Get("fo", "0")
	result.ParsedData["fo"] = fo

	if strings.ContainsAny(fo, "1sd") {
		result.Award(pointsFO)
		result.Successf("Failure reporting enabled (fo=%s)", fo)
	} else {
		result.Infof("Failure reporting set to default (fo=0, only on full failure)")
		result.Remediate("Add fo=1 for detailed failure reports")
	}
}

// scorePercentage scores the pct= tag. Unparseable values coerce to 100.
func (c *Checker) scorePercentage(result *check.Result, tags TagMap) {
	pct, err := strconv.Atoi(tags.Get("pct", "100"))
	if err != nil {
		pct = 100
	}
	result.ParsedData["pct"] = pct

	switch {
	case pct == 100:
		result.Award(pointsPctFull)
		result.Successf("Policy applies to 100%% of messages")
	case pct > 0:
		result.Award(pointsPctPartial)
		result.Infof("Policy applies to %d%% of messages (rollout mode)", pct)
		result.Remediate("Increase pct to 100 after testing")
	default:
		result.Warnf("pct=0 means policy is not being applied")
		result.Remediate("Set pct to 100 to enforce your policy")
	}
}

// scoreSubdomainPolicy scores the sp= tag against the parent policy.
// A valid sp that diverges from the parent still earns the points:
// divergence is a deliberate choice, not a fault.
func (c *Checker) scoreSubdomainPolicy(result *check.Result, tags TagMap, policy string) {
	sp, ok := tags["sp"]
	if !ok || sp == "" {
		result.Infof("No subdomain policy (sp) set - inherits parent policy")
		return
	}

	sp = strings.ToLower(sp)
	result.ParsedData["sp"] = sp

	switch {
	case sp == policy || (policy == "" && sp == "none"):
		result.Award(pointsSubdomain)
		result.Successf("Subdomain policy (sp=%s) is set", sp)
	case sp == "reject" || sp == "quarantine" || sp == "none":
		result.Award(pointsSubdomain)
		result.Infof("Subdomain policy (sp=%s) differs from parent (%s)", sp, policy)
	default:
		result.Warnf("Invalid subdomain policy: sp=%s", sp)
	}
}
