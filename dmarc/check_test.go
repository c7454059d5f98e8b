package dmarc

import (
	"context"
	"strings"
	"testing"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dns"
)

func checkerFor(records ...string) *Checker {
	mock := dns.MockResolver{TXT: map[string][]string{}}
	if len(records) > 0 {
		mock.TXT["_dmarc.example.com."] = records
	}
	return New(dns.NewClient(mock, nil), nil)
}

func run(t *testing.T, records ...string) *check.Result {
	t.Helper()
	return checkerFor(records...).Check(context.Background(), "example.com")
}

func TestCheckNoRecord(t *testing.T) {
	result := run(t)
	if result.Points != 0 {
		t.Errorf("points = %d, want 0", result.Points)
	}
	if len(result.Remediation) != 1 || !strings.Contains(result.Remediation[0], "_dmarc.yourdomain.com") {
		t.Errorf("remediation = %v", result.Remediation)
	}
}

func TestCheckFullScore(t *testing.T) {
	result := run(t, "v=DMARC1; p=reject; rua=mailto:d@example.com; adkim=s; aspf=s; fo=1")
	if result.Points != 40 {
		t.Errorf("points = %d, want 40", result.Points)
	}
	if len(result.Remediation) != 0 {
		t.Errorf("remediation = %v, want none", result.Remediation)
	}
}

func TestCheckDuplicateRecordsWithholdExistence(t *testing.T) {
	record := "v=DMARC1; p=reject; rua=mailto:d@example.com; adkim=s; aspf=s; fo=1"
	result := run(t, record, record)
	if result.Points != 30 {
		t.Errorf("points = %d, want 30 (existence withheld)", result.Points)
	}
	warned := false
	for _, m := range result.Messages {
		if m.Level == "warning" && strings.Contains(m.Text, "Multiple DMARC records found (2)") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("missing duplicate warning, messages = %v", result.Messages)
	}
	if len(result.RawRecords) != 2 {
		t.Errorf("raw records = %v, want both", result.RawRecords)
	}
}

func TestCheckPolicyScores(t *testing.T) {
	// Minimal records so only existence, policy, and the pct default
	// contribute.
	tests := []struct {
		record string
		points int
	}{
		{"v=DMARC1; p=reject", 10 + 15 + 2},
		{"v=DMARC1; p=quarantine", 10 + 10 + 2},
		{"v=DMARC1; p=none", 10 + 0 + 2},
		{"v=DMARC1", 10 + 0 + 2},
		{"v=DMARC1; p=bogus", 10 + 0 + 2},
	}
	for _, tt := range tests {
		result := run(t, tt.record)
		if result.Points != tt.points {
			t.Errorf("%q: points = %d, want %d", tt.record, result.Points, tt.points)
		}
	}
}

func TestCheckMissingPolicyIsError(t *testing.T) {
	result := run(t, "v=DMARC1; rua=mailto:d@example.com")
	found := false
	for _, m := range result.Messages {
		if m.Level == "error" && strings.Contains(m.Text, "p=") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected policy error, messages = %v", result.Messages)
	}
}

func TestCheckSingleStrictAlignment(t *testing.T) {
	result := run(t, "v=DMARC1; p=reject; adkim=s")
	if result.Points != 10+15+3+2 {
		t.Errorf("points = %d, want 30", result.Points)
	}
	found := false
	for _, r := range result.Remediation {
		if strings.Contains(r, "(as=s)") {
			found = true
		}
	}
	if !found {
		t.Errorf("remediation = %v, want spf alignment hint", result.Remediation)
	}
}

func TestCheckFailureReporting(t *testing.T) {
	for _, fo := range []string{"1", "d", "s", "0:1", "1:d:s"} {
		result := run(t, "v=DMARC1; p=reject; fo="+fo)
		if result.Points != 10+15+3+2 {
			t.Errorf("fo=%s: points = %d, want 30", fo, result.Points)
		}
	}
	result := run(t, "v=DMARC1; p=reject; fo=0")
	if result.Points != 10+15+2 {
		t.Errorf("fo=0: points = %d, want 27", result.Points)
	}
}

func TestCheckPercentage(t *testing.T) {
	tests := []struct {
		pct    string
		points int
		parsed int
	}{
		{"100", 10 + 15 + 2, 100},
		{"50", 10 + 15 + 1, 50},
		{"0", 10 + 15 + 0, 0},
		{"abc", 10 + 15 + 2, 100}, // unparseable coerces to 100
	}
	for _, tt := range tests {
		result := run(t, "v=DMARC1; p=reject; pct="+tt.pct)
		if result.Points != tt.points {
			t.Errorf("pct=%s: points = %d, want %d", tt.pct, result.Points, tt.points)
		}
		if got, _ := result.ParsedData["pct"].(int); got != tt.parsed {
			t.Errorf("pct=%s: parsed pct = %v, want %d", tt.pct, result.ParsedData["pct"], tt.parsed)
		}
	}
}

func TestCheckSubdomainPolicy(t *testing.T) {
	tests := []struct {
		name   string
		record string
		points int
		level  check.Severity
	}{
		{"matches parent", "v=DMARC1; p=reject; sp=reject", 10 + 15 + 2 + 2, "success"},
		{"diverges but valid", "v=DMARC1; p=reject; sp=none", 10 + 15 + 2 + 2, "info"},
		{"none with no parent policy", "v=DMARC1; sp=none", 10 + 0 + 2 + 2, "success"},
		{"invalid", "v=DMARC1; p=reject; sp=bogus", 10 + 15 + 2, "warning"},
		{"absent", "v=DMARC1; p=reject", 10 + 15 + 2, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(t, tt.record)
			if result.Points != tt.points {
				t.Errorf("points = %d, want %d", result.Points, tt.points)
			}
			found := false
			for _, m := range result.Messages {
				if m.Level == tt.level && strings.Contains(strings.ToLower(m.Text), "subdomain") {
					found = true
				}
			}
			if !found {
				t.Errorf("no %s subdomain message in %v", tt.level, result.Messages)
			}
		})
	}
}

func TestCheckAggregateReporting(t *testing.T) {
	result := run(t, "v=DMARC1; p=reject; rua=mailto:a@b.com,mailto:c@d.com")
	if result.Points != 10+15+5+2 {
		t.Errorf("points = %d, want 32", result.Points)
	}
	uris, _ := result.ParsedData["rua_uris"].([]any)
	if len(uris) != 2 {
		t.Errorf("rua_uris = %v, want 2 entries", result.ParsedData["rua_uris"])
	}
}
