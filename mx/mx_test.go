package mx

import (
	"context"
	"net"
	"testing"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dns"
)

func checker(mock dns.MockResolver) *Checker {
	return New(dns.NewClient(mock, nil), nil)
}

func TestCheckNoRecords(t *testing.T) {
	result := checker(dns.MockResolver{}).Check(context.Background(), "example.com")

	if result.Control != check.ControlMX {
		t.Errorf("control = %q", result.Control)
	}
	if result.Points != 0 {
		t.Errorf("points = %d, want 0", result.Points)
	}
	if len(result.Remediation) == 0 {
		t.Error("expected remediation for missing MX records")
	}
}

func TestCheckAllHostsResolve(t *testing.T) {
	mock := dns.MockResolver{
		MX: map[string][]*net.MX{
			"example.com.": {
				{Host: "mail1.example.com.", Pref: 10},
				{Host: "mail2.example.com.", Pref: 20},
			},
		},
		A: map[string][]string{
			"mail1.example.com.": {"192.0.2.1"},
		},
		AAAA: map[string][]string{
			"mail2.example.com.": {"2001:db8::1"},
		},
	}

	result := checker(mock).Check(context.Background(), "example.com")
	if result.Points != 10 {
		t.Errorf("points = %d, want 10", result.Points)
	}
	if len(result.RawRecords) != 2 {
		t.Errorf("raw records = %v", result.RawRecords)
	}
}

func TestCheckDanglingHost(t *testing.T) {
	mock := dns.MockResolver{
		MX: map[string][]*net.MX{
			"example.com.": {
				{Host: "mail.example.com.", Pref: 10},
				{Host: "ghost.example.com.", Pref: 20},
			},
		},
		A: map[string][]string{
			"mail.example.com.": {"192.0.2.1"},
		},
	}

	result := checker(mock).Check(context.Background(), "example.com")
	if result.Points != 5 {
		t.Errorf("points = %d, want 5", result.Points)
	}

	unresolved := result.ParsedData["unresolved_hosts"].([]any)
	if len(unresolved) != 1 || unresolved[0] != "ghost.example.com" {
		t.Errorf("unresolved = %v", unresolved)
	}

	found := false
	for _, r := range result.Remediation {
		if r == "Fix or remove dangling MX records: ghost.example.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("remediation = %v, want dangling host named", result.Remediation)
	}
}

// TestResolveHostsExhaustive checks that the concurrent fan-out puts
// every input host in exactly one of the two output sets.
func TestResolveHostsExhaustive(t *testing.T) {
	mock := dns.MockResolver{
		MX: map[string][]*net.MX{"example.com.": nil},
		A: map[string][]string{
			"a.example.com.": {"192.0.2.1"},
			"c.example.com.": {"192.0.2.3"},
		},
		Fail: []string{"a d.example.com.", "aaaa d.example.com."},
	}

	records := []dns.MXRecord{
		{Pref: 10, Host: "a.example.com"},
		{Pref: 20, Host: "b.example.com"},
		{Pref: 30, Host: "c.example.com"},
		{Pref: 40, Host: "d.example.com"},
		{Pref: 50, Host: "e.example.com"},
		{Pref: 60, Host: "f.example.com"},
		{Pref: 70, Host: "g.example.com"},
	}

	resolved, unresolved := checker(mock).resolveHosts(context.Background(), records)

	if len(resolved)+len(unresolved) != len(records) {
		t.Fatalf("got %d+%d hosts, want %d", len(resolved), len(unresolved), len(records))
	}

	seen := map[string]int{}
	for _, h := range resolved {
		seen[h]++
	}
	for _, h := range unresolved {
		seen[h]++
	}
	for _, rec := range records {
		if seen[rec.Host] != 1 {
			t.Errorf("host %s appears %d times, want exactly once", rec.Host, seen[rec.Host])
		}
	}

	if len(resolved) != 2 {
		t.Errorf("resolved = %v, want a and c", resolved)
	}
}
