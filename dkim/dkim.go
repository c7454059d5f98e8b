// Package dkim audits a domain's DKIM readiness by probing a fixed list
// of candidate selectors. DKIM selectors are not enumerable through DNS,
// so discovery is best-effort: provider-specific selectors first when
// the provider is known, a broader conventional list otherwise.
//
// This validates published DNS key material only; it does not verify
// live message signing.
package dkim

import (
	"context"
	"encoding/base64"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dns"
	"github.com/mailgrade/mailgrade/provider"
)

// Points breakdown, out of 25.
const (
	pointsSelectorExists = 5
	pointsKey2048        = 8
	pointsKey1024        = 4
	pointsM365Both       = 8
	pointsM365One        = 4
	pointsMultiSelector  = 4
)

// m365Selectors are the two standard Microsoft 365 signing selectors.
var m365Selectors = []string{"selector1", "selector2"}

// commonSelectors is the generic probe list: provider conventions and
// common defaults, in probe order.
var commonSelectors = []string{
	"selector1", // Microsoft 365 primary
	"selector2", // Microsoft 365 secondary
	"google",    // Google Workspace
	"default",
	"dkim",
	"mail",
	"k1", // Mailchimp
	"s1",
	"s2",
	"smtp",
	"mandrill",
	"mxvault",
	"everlytickey1", // Everlytic
	"everlytickey2",
}

// publicKeyPattern extracts the base64 value of the p= tag.
var publicKeyPattern = regexp.MustCompile(`p=([A-Za-z0-9+/=]+)`)

// Checker validates DKIM selector records.
type Checker struct {
	resolver *dns.Client
	log      *slog.Logger
}

// New creates a DKIM checker using the given resolver.
func New(resolver *dns.Client, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, log: logger}
}

// Check evaluates the domain's DKIM posture for the detected provider.
func (c *Checker) Check(ctx context.Context, domain string, prov provider.Provider) *check.Result {
	result := check.NewResult(check.ControlDKIM)

	isM365 := prov.IsMicrosoft365()
	result.ParsedData["provider"] = string(prov)
	result.ParsedData["is_m365"] = isM365

	selectors := commonSelectors
	if isM365 {
		selectors = m365Selectors
	}

	var discovered []string
	records := map[string]string{}
	for _, selector := range selectors {
		record := c.resolver.DKIMRecord(ctx, domain, selector)
		if record == "" {
			continue
		}
		discovered = append(discovered, selector)
		records[selector] = record
		result.RawRecords = append(result.RawRecords, selector+": "+truncate(record, 100))
	}

	result.ParsedData["discovered_selectors"] = check.List(discovered)
	result.ParsedData["selector_count"] = len(discovered)

	if len(discovered) == 0 {
		result.Errorf("No DKIM selectors found")
		result.Remediate("Configure DKIM signing with your email provider")
		return result
	}
	result.Award(pointsSelectorExists)
	result.Successf("Found %d DKIM selector(s): %s", len(discovered), strings.Join(discovered, ", "))

	// Strongest key across all discovered selectors decides the score.
	maxKeyLength := 0
	keyLengths := map[string]any{}
	for _, selector := range discovered {
		length := KeyLength(records[selector])
		keyLengths[selector] = length
		if length > maxKeyLength {
			maxKeyLength = length
		}
	}
	result.ParsedData["key_lengths"] = keyLengths
	result.ParsedData["max_key_length"] = maxKeyLength

	switch {
	case maxKeyLength >= 2048:
		result.Award(pointsKey2048)
		result.Successf("DKIM key length: %d bits (strong)", maxKeyLength)
	case maxKeyLength >= 1024:
		result.Award(pointsKey1024)
		result.Warnf("DKIM key length: %d bits (consider upgrading to 2048)", maxKeyLength)
		result.Remediate("Upgrade DKIM key to 2048 bits for stronger security")
	case maxKeyLength > 0:
		result.Errorf("DKIM key length: %d bits (too weak)", maxKeyLength)
		result.Remediate("DKIM key is too short. Upgrade to at least 2048 bits")
	default:
		result.Warnf("Could not determine DKIM key length")
	}

	if isM365 {
		c.checkM365Delegation(ctx, domain, result)
	} else if len(discovered) >= 2 {
		result.Award(pointsMultiSelector)
		result.Successf("Multiple DKIM selectors found (good for key rotation)")
	} else {
		result.Infof("Single DKIM selector found. Consider adding a second for key rotation")
	}

	return result
}

// checkM365Delegation verifies that both standard Microsoft 365
// selectors are CNAME-delegated to the tenant's onmicrosoft.com zone.
func (c *Checker) checkM365Delegation(ctx context.Context, domain string, result *check.Result) {
	valid := 0
	cnames := map[string]any{}
	for _, selector := range m365Selectors {
		target := c.resolver.DKIMCNAME(ctx, domain, selector)
		if target != "" && strings.Contains(strings.ToLower(target), "onmicrosoft.com") {
			valid++
			cnames[selector] = target
		}
	}

	result.ParsedData["m365_cnames"] = cnames
	result.ParsedData["m365_selectors_valid"] = valid

	switch {
	case valid >= 2:
		result.Award(pointsM365Both)
		result.Successf("Both M365 DKIM selectors (selector1, selector2) are configured")
	case valid == 1:
		result.Award(pointsM365One)
		result.Warnf("Only one M365 DKIM selector configured")
		result.Remediate("Enable both selector1 and selector2 in Microsoft 365 admin")
	default:
		result.Errorf("M365 DKIM selectors not properly configured")
		result.Remediate("Configure DKIM in Microsoft 365 admin center")
	}
}

// KeyLength estimates the public key strength of a DKIM record in bits.
//
// The p= value is base64-decoded and the byte count times eight is
// snapped into standard buckets (>=2000 -> 2048, >=1000 -> 1024,
// >=500 -> 512). This deliberately avoids ASN.1 parsing: the DER
// framing overhead is small enough that bucketing on raw decoded size
// classifies standard RSA keys correctly. Returns 0 when the key is
// missing, empty (revoked), or not decodable.
func KeyLength(record string) int {
	match := publicKeyPattern.FindStringSubmatch(record)
	if match == nil {
		return 0
	}

	keyBytes, err := base64.StdEncoding.DecodeString(match[1])
	if err != nil {
		return 0
	}

	bits := len(keyBytes) * 8
	switch {
	case bits >= 2000:
		return 2048
	case bits >= 1000:
		return 1024
	case bits >= 500:
		return 512
	default:
		return bits
	}
}

// truncate shortens long records for display in raw record lists.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
