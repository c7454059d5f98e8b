package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mailgrade/mailgrade"
	"github.com/mailgrade/mailgrade/cache"
	"github.com/mailgrade/mailgrade/check"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type scannerFunc func(ctx context.Context, domain string) (*mailgrade.ScanResult, error)

func (f scannerFunc) Scan(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
	return f(ctx, domain)
}

func fixedResult(domain string) *mailgrade.ScanResult {
	return &mailgrade.ScanResult{
		Domain:       domain,
		Score:        65,
		MaxScore:     100,
		Grade:        "D",
		GradeColor:   "#ff9100",
		ScoreVersion: "1.0",
		Provider:     "unknown",
		Checks:       map[string]*check.Result{},
	}
}

func post(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	server := NewServer(scannerFunc(nil), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestScanOK(t *testing.T) {
	server := NewServer(scannerFunc(func(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
		return fixedResult(domain), nil
	}), nil, nil)

	w := post(t, server, `{"domain": "Example.COM."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if w.Header().Get("X-Scan-Id") == "" {
		t.Error("missing X-Scan-Id header")
	}

	var result mailgrade.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Domain != "example.com" || result.Score != 65 || result.Grade != "D" {
		t.Errorf("result = %+v", result)
	}
}

func TestScanBadRequests(t *testing.T) {
	server := NewServer(scannerFunc(func(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
		t.Error("scanner called for invalid input")
		return nil, nil
	}), nil, nil)

	for _, body := range []string{``, `{}`, `{"domain": ""}`, `{"domain": "   "}`, `not json`} {
		w := post(t, server, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestScanFailure(t *testing.T) {
	server := NewServer(scannerFunc(func(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
		return nil, errors.New("resolver down")
	}), nil, nil)

	w := post(t, server, `{"domain": "example.com"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "scan failed" || resp["domain"] != "example.com" {
		t.Errorf("resp = %v", resp)
	}
}

func TestScanServedFromCache(t *testing.T) {
	calls := 0
	server := NewServer(scannerFunc(func(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
		calls++
		return fixedResult(domain), nil
	}), cache.New(time.Minute, 10), nil)

	for i := 0; i < 3; i++ {
		w := post(t, server, `{"domain": "example.com"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
		var result mailgrade.ScanResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Score != 65 {
			t.Errorf("request %d: score = %d", i, result.Score)
		}
	}
	if calls != 1 {
		t.Errorf("scanner called %d times, want 1", calls)
	}
}

func TestScanIDNADomain(t *testing.T) {
	var scanned string
	server := NewServer(scannerFunc(func(ctx context.Context, domain string) (*mailgrade.ScanResult, error) {
		scanned = domain
		return fixedResult(domain), nil
	}), nil, nil)

	w := post(t, server, `{"domain": "bücher.example"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if scanned != "xn--bcher-kva.example" {
		t.Errorf("scanned = %q", scanned)
	}
}
