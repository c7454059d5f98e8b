// Package mailgrade audits a domain's email authentication posture.
//
// A scan resolves and grades four DNS-published controls: MX records,
// SPF, DKIM, and DMARC. Each control contributes a weighted share of a
// 0 to 100 score that maps to a letter grade, and every finding carries
// a human readable remediation step. All lookups go through the dns
// package, so the whole engine can run against a mock resolver in
// tests or a miekg/dns transport in production.
package mailgrade
