// Package spf parses and scores a domain's SPF record.
//
// The parser implements the small mechanism grammar needed for posture
// auditing rather than full RFC 7208 macro expansion: it recognizes
// qualifiers, splits mechanism names from values, tracks the DNS lookup
// budget, and accumulates syntax errors without aborting, so one bad
// mechanism never hides the rest of the record.
package spf

import "strings"

// Mechanism is one parsed SPF directive: qualifier, mechanism name and
// optional value.
type Mechanism struct {
	Qualifier string
	Name      string
	Value     string
}

// Record is the transient parse state for one SPF record. It exists
// only for the duration of one checker invocation.
type Record struct {
	// Mechanisms lists the recognized directives in record order.
	Mechanisms []Mechanism

	// Terminal is the trailing all qualifier: "-all", "~all", "+all",
	// "?all", or "" when the record has none. A bare "all" parses as
	// the implicit "+all".
	Terminal string

	// LookupCount is the number of mechanisms that cost a DNS lookup
	// at evaluation time (include, a, mx, ptr, exists, redirect).
	LookupCount int

	// SyntaxErrors lists unknown mechanisms and structural problems.
	SyntaxErrors []string

	// Duplicates lists repeated (mechanism, value) signatures.
	Duplicates []string

	// HasPTR reports use of the deprecated ptr mechanism.
	HasPTR bool

	// HostsToCheck collects a and mx mechanism hostnames for the host
	// resolution check. Include targets are omitted: they carry SPF TXT
	// records, not addresses.
	HostsToCheck []string

	// IncludeCount is the number of include mechanisms.
	IncludeCount int
}

// validMechanisms are the mechanism and modifier names the grammar accepts.
var validMechanisms = map[string]bool{
	"all": true, "include": true, "a": true, "mx": true, "ptr": true,
	"ip4": true, "ip6": true, "exists": true, "redirect": true, "exp": true,
}

// lookupMechanisms count toward the 10-lookup evaluation budget of RFC 7208.
var lookupMechanisms = map[string]bool{
	"include": true, "a": true, "mx": true, "ptr": true, "exists": true, "redirect": true,
}

// Parse parses an SPF record into its transient parse state. Parsing
// never fails: problems accumulate in SyntaxErrors and scoring decides
// what they cost.
func Parse(record string) *Record {
	r := &Record{}

	parts := strings.Fields(record)
	if len(parts) == 0 || !strings.EqualFold(parts[0], "v=spf1") {
		r.SyntaxErrors = append(r.SyntaxErrors, "Missing or invalid v=spf1")
		return r
	}

	seen := map[string]bool{}

	for _, part := range parts[1:] {
		lower := strings.ToLower(part)

		// Terminal all, with or without explicit qualifier.
		switch lower {
		case "-all", "~all", "+all", "?all":
			r.Terminal = lower
			continue
		case "all":
			r.Terminal = "+all" // implicit +
			continue
		}

		qualifier := "+"
		if strings.ContainsRune("+-~?", rune(part[0])) {
			qualifier = part[:1]
			part = part[1:]
		}
		if part == "" {
			r.SyntaxErrors = append(r.SyntaxErrors, "Empty mechanism")
			continue
		}

		// Split name from value on the first of ":", "=", "/". A CIDR
		// suffix without a separator keeps the whole token as value.
		var name, value string
		if before, after, ok := strings.Cut(part, ":"); ok {
			name, value = before, after
		} else if before, after, ok := strings.Cut(part, "="); ok {
			name, value = before, after
		} else if i := strings.IndexByte(part, '/'); i >= 0 {
			name, value = part[:i], part
		} else {
			name = part
		}

		name = strings.ToLower(name)

		if !validMechanisms[name] {
			r.SyntaxErrors = append(r.SyntaxErrors, "Unknown mechanism: "+name)
			continue
		}

		r.Mechanisms = append(r.Mechanisms, Mechanism{
			Qualifier: qualifier,
			Name:      name,
			Value:     value,
		})

		signature := name
		if value != "" {
			signature = name + ":" + value
		}
		if seen[signature] {
			r.Duplicates = append(r.Duplicates, signature)
		}
		seen[signature] = true

		if lookupMechanisms[name] {
			r.LookupCount++
			if value != "" && (name == "a" || name == "mx") {
				r.HostsToCheck = append(r.HostsToCheck, value)
			}
		}

		if name == "ptr" {
			r.HasPTR = true
		}
		if name == "include" {
			r.IncludeCount++
		}
	}

	return r
}
