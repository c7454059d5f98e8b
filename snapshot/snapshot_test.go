package snapshot

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/mailgrade/mailgrade"
	"github.com/mailgrade/mailgrade/check"
)

func sampleResult() *mailgrade.ScanResult {
	dmarc := check.NewResult(check.ControlDMARC)
	dmarc.Award(25)
	dmarc.Successf("DMARC record found and unique")
	dmarc.Warnf("DMARC policy is 'quarantine' - consider upgrading to 'reject'")
	dmarc.Remediate("Upgrade DMARC policy from p=quarantine to p=reject")
	dmarc.RawRecords = []string{"v=DMARC1; p=quarantine"}
	dmarc.ParsedData["p"] = "quarantine"
	dmarc.ParsedData["pct"] = 100
	dmarc.ParsedData["rua_uris"] = check.List([]string{"mailto:d@example.com"})

	mx := check.NewResult(check.ControlMX)
	mx.Award(10)
	mx.Successf("Found 1 MX record(s)")

	return &mailgrade.ScanResult{
		Domain:       "example.com",
		Score:        35,
		MaxScore:     100,
		Grade:        "F",
		GradeColor:   "#ff1744",
		ScoreVersion: "1.0",
		Provider:     "unknown",
		Checks: map[string]*check.Result{
			check.ControlDMARC: dmarc,
			check.ControlMX:    mx,
		},
		Remediation: []string{"Upgrade DMARC policy from p=quarantine to p=reject"},
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleResult()
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Domain != "example.com" || decoded.Score != 35 ||
		decoded.Grade != "F" || decoded.GradeColor != "#ff1744" ||
		decoded.ScoreVersion != "1.0" || decoded.Provider != "unknown" {
		t.Errorf("header fields = %+v", decoded)
	}
	if len(decoded.Checks) != 2 {
		t.Fatalf("checks = %v", decoded.Checks)
	}

	dmarc := decoded.Checks[check.ControlDMARC]
	if dmarc.Points != 25 || dmarc.MaxPoints != 40 {
		t.Errorf("dmarc = %+v", dmarc)
	}
	if !reflect.DeepEqual(dmarc.Messages, original.Checks[check.ControlDMARC].Messages) {
		t.Errorf("messages = %v", dmarc.Messages)
	}
	if dmarc.ParsedData["p"] != "quarantine" {
		t.Errorf("parsed p = %v", dmarc.ParsedData["p"])
	}
	// Integers come back as int64 from the generic decoder.
	if pct, ok := dmarc.ParsedData["pct"].(int64); !ok || pct != 100 {
		t.Errorf("parsed pct = %v (%T)", dmarc.ParsedData["pct"], dmarc.ParsedData["pct"])
	}
	uris, ok := dmarc.ParsedData["rua_uris"].([]any)
	if !ok || len(uris) != 1 || uris[0] != "mailto:d@example.com" {
		t.Errorf("rua_uris = %v", dmarc.ParsedData["rua_uris"])
	}
	if !reflect.DeepEqual(decoded.Remediation, original.Remediation) {
		t.Errorf("remediation = %v", decoded.Remediation)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(sampleResult())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(sampleResult())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("equal results produced different bytes")
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xc3}); err == nil {
		t.Error("expected error for non-map payload")
	}
	if _, err := Unmarshal(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}
