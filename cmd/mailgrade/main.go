// Command mailgrade audits a domain's email authentication posture,
// either as a one-shot scan printed to stdout or as an HTTP service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jamiealquiza/envy"
	"golang.org/x/net/idna"

	"github.com/mailgrade/mailgrade"
	"github.com/mailgrade/mailgrade/api"
	"github.com/mailgrade/mailgrade/cache"
)

func main() {
	var (
		domain      = flag.String("domain", "", "Domain to scan (one-shot mode)")
		listen      = flag.String("listen", "", "Listen address for serve mode, e.g. :8080")
		nameservers = flag.String("nameservers", "", "Comma-separated DNS servers (host:port), system resolvers when empty")
		timeout     = flag.Duration("timeout", 5*time.Second, "Per-query DNS timeout")
		retries     = flag.Int("retries", 2, "DNS retries per nameserver")
		dnssec      = flag.Bool("dnssec", false, "Request DNSSEC validation (AD bit)")
		cacheTTL    = flag.Duration("cache-ttl", 15*time.Minute, "Snapshot cache TTL in serve mode, 0 disables")
		pretty      = flag.Bool("pretty", false, "Indent JSON output")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	envy.Parse("MAILGRADE")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	config := mailgrade.Config{
		Timeout: *timeout,
		Retries: *retries,
		DNSSEC:  *dnssec,
		Logger:  log,
	}
	if *nameservers != "" {
		for _, ns := range strings.Split(*nameservers, ",") {
			config.Nameservers = append(config.Nameservers, strings.TrimSpace(ns))
		}
	}
	engine := mailgrade.New(config)

	switch {
	case *domain != "":
		if err := scanOnce(engine, *domain, *pretty); err != nil {
			log.Error("scan failed", "domain", *domain, "error", err)
			os.Exit(1)
		}
	case *listen != "":
		serve(engine, *listen, *cacheTTL, log)
	default:
		fmt.Fprintln(os.Stderr, "either -domain or -listen is required")
		flag.Usage()
		os.Exit(2)
	}
}

func scanOnce(engine *mailgrade.Engine, domain string, pretty bool) error {
	ascii, err := idna.Lookup.ToASCII(strings.ToLower(strings.TrimSuffix(domain, ".")))
	if err != nil {
		return fmt.Errorf("invalid domain %q: %w", domain, err)
	}

	result, err := engine.Scan(context.Background(), ascii)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func serve(engine *mailgrade.Engine, listen string, cacheTTL time.Duration, log *slog.Logger) {
	var snapshots *cache.Cache
	if cacheTTL > 0 {
		snapshots = cache.New(cacheTTL, 0)
	}

	server := api.NewServer(engine, snapshots, log)
	log.Info("listening", "addr", listen)
	if err := server.Router().Run(listen); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
