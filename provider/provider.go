// Package provider classifies a domain's mail provider from its MX
// hostnames. The classification feeds DKIM selector probing and is
// reported for display; it is never stored.
package provider

import (
	"strings"

	"github.com/mailgrade/mailgrade/dns"
)

// Provider is a detected email provider.
type Provider string

const (
	Microsoft365    Provider = "microsoft365"
	GoogleWorkspace Provider = "google_workspace"
	Unknown         Provider = "unknown"
)

// mxPattern maps an MX hostname suffix to a provider. Order matters
// only for readability; a hostname matches at most one entry.
type mxPattern struct {
	suffix   string
	provider Provider
}

var mxPatterns = []mxPattern{
	{".mail.protection.outlook.com", Microsoft365},
	{".google.com", GoogleWorkspace},
	{".googlemail.com", GoogleWorkspace},
	{"aspmx.l.google.com", GoogleWorkspace},
}

// Detect classifies the provider from priority-sorted MX records.
// The first matching record wins, so the highest-priority mail host
// decides. No match across all records returns Unknown.
func Detect(records []dns.MXRecord) Provider {
	for _, record := range records {
		host := strings.ToLower(record.Host)
		for _, pattern := range mxPatterns {
			if strings.HasSuffix(host, pattern.suffix) || host == strings.TrimPrefix(pattern.suffix, ".") {
				return pattern.provider
			}
		}
	}
	return Unknown
}

// IsMicrosoft365 reports whether p is Microsoft 365.
func (p Provider) IsMicrosoft365() bool {
	return p == Microsoft365
}
