package mailgrade

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailgrade/mailgrade/check"
	"github.com/mailgrade/mailgrade/dkim"
	"github.com/mailgrade/mailgrade/dmarc"
	"github.com/mailgrade/mailgrade/dns"
	"github.com/mailgrade/mailgrade/mx"
	"github.com/mailgrade/mailgrade/provider"
	"github.com/mailgrade/mailgrade/spf"
)

// ScanResult is the complete outcome of auditing one domain.
type ScanResult struct {
	Domain       string                   `json:"domain"`
	Score        int                      `json:"score"`
	MaxScore     int                      `json:"max_score"`
	Grade        string                   `json:"grade"`
	GradeColor   string                   `json:"grade_color"`
	ScoreVersion string                   `json:"score_version"`
	Provider     string                   `json:"provider"`
	Checks       map[string]*check.Result `json:"checks"`
	Remediation  []string                 `json:"remediation"`
}

// Config controls how an Engine resolves and audits domains.
type Config struct {
	// Resolver overrides the DNS transport, typically with a
	// dns.MockResolver in tests. When nil a miekg/dns resolver is
	// built from the remaining fields.
	Resolver dns.Resolver

	Nameservers []string
	Timeout     time.Duration
	Retries     int
	DNSSEC      bool

	Logger *slog.Logger
}

// Engine runs the four control checkers against one DNS client and
// aggregates their results into a graded score.
type Engine struct {
	client *dns.Client
	mx     *mx.Checker
	spf    *spf.Checker
	dkim   *dkim.Checker
	dmarc  *dmarc.Checker
	log    *slog.Logger
}

// New creates an Engine, applying defaults for unset config fields.
func New(config Config) *Engine {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	resolver := config.Resolver
	if resolver == nil {
		resolver = dns.NewResolver(dns.ResolverConfig{
			Nameservers: config.Nameservers,
			Timeout:     config.Timeout,
			Retries:     config.Retries,
			DNSSEC:      config.DNSSEC,
		})
	}

	client := dns.NewClient(resolver, log)
	return &Engine{
		client: client,
		mx:     mx.New(client, log),
		spf:    spf.New(client, log),
		dkim:   dkim.New(client, log),
		dmarc:  dmarc.New(client, log),
		log:    log,
	}
}

// Scan audits domain and returns its scored result. The four checkers
// run concurrently; MX records are resolved up front because DKIM
// selector probing depends on the detected mail provider.
func (e *Engine) Scan(ctx context.Context, domain string) (*ScanResult, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}

	mxRecords := e.client.ResolveMX(ctx, domain)
	prov := provider.Detect(mxRecords)
	e.log.Debug("scan started", "domain", domain, "provider", string(prov))

	checks := make([]*check.Result, 4)
	g, gctx := errgroup.WithContext(ctx)
	run := func(slot int, control string, fn func(context.Context) *check.Result) {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &CheckerError{Control: control, Value: v}
				}
			}()
			checks[slot] = fn(gctx)
			return nil
		})
	}

	run(0, check.ControlMX, func(ctx context.Context) *check.Result {
		return e.mx.Check(ctx, domain)
	})
	run(1, check.ControlSPF, func(ctx context.Context) *check.Result {
		return e.spf.Check(ctx, domain)
	})
	run(2, check.ControlDKIM, func(ctx context.Context) *check.Result {
		return e.dkim.Check(ctx, domain, prov)
	})
	run(3, check.ControlDMARC, func(ctx context.Context) *check.Result {
		return e.dmarc.Check(ctx, domain)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Domain:       domain,
		MaxScore:     MaxScore,
		ScoreVersion: ScoreVersion,
		Provider:     string(prov),
		Checks:       make(map[string]*check.Result, len(checks)),
	}
	for _, c := range checks {
		result.Score += c.Points
		result.Checks[c.Control] = c
		result.Remediation = append(result.Remediation, c.Remediation...)
	}
	result.Grade = GradeFor(result.Score)
	result.GradeColor = GradeColor(result.Grade)

	e.log.Info("scan finished",
		"domain", domain,
		"score", result.Score,
		"grade", result.Grade,
	)
	return result, nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
}
