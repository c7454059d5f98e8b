// Package dmarc parses and scores a domain's DMARC policy record.
//
// Parsing is deliberately lenient: a DMARC record is a semicolon-
// delimited list of tag=value pairs, and unknown tags are retained
// rather than rejected, since the tag registry is extensible and a
// posture audit should never fail on a tag it has not seen.
package dmarc

import "strings"

// TagMap maps lower-cased DMARC tag names to their raw values.
// It is transient state for one checker invocation.
type TagMap map[string]string

// ParseTags splits a DMARC record into its tag map. Segments without
// an "=" are skipped; tag names are lower-cased and both sides trimmed.
func ParseTags(record string) TagMap {
	tags := TagMap{}
	for _, segment := range strings.Split(record, ";") {
		segment = strings.TrimSpace(segment)
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		tags[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return tags
}

// Get returns the tag's value, or def when the tag is absent.
func (t TagMap) Get(name, def string) string {
	if v, ok := t[name]; ok {
		return v
	}
	return def
}

// MailtoURIs parses a comma-separated URI list (rua/ruf values) and
// returns only the mailto: entries, matched case-insensitively.
func MailtoURIs(s string) []string {
	if s == "" {
		return nil
	}

	var uris []string
	for _, uri := range strings.Split(s, ",") {
		uri = strings.TrimSpace(uri)
		if strings.HasPrefix(strings.ToLower(uri), "mailto:") {
			uris = append(uris, uri)
		}
	}
	return uris
}
