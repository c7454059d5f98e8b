// Package api exposes domain scans over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"golang.org/x/net/idna"

	"github.com/mailgrade/mailgrade"
	"github.com/mailgrade/mailgrade/cache"
	"github.com/mailgrade/mailgrade/snapshot"
)

// Scanner audits one domain. *mailgrade.Engine implements it.
type Scanner interface {
	Scan(ctx context.Context, domain string) (*mailgrade.ScanResult, error)
}

// Server handles scan requests, optionally serving repeats from a
// snapshot cache.
type Server struct {
	scanner   Scanner
	snapshots *cache.Cache
	log       *slog.Logger
}

// NewServer creates a Server. snapshots may be nil to disable caching.
func NewServer(scanner Scanner, snapshots *cache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{scanner: scanner, snapshots: snapshots, log: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.health)
	r.POST("/v1/scan", s.scan)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type scanRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) scan(c *gin.Context) {
	// Every request gets an id so log lines and the response header
	// can be correlated.
	id := ulid.Make().String()
	c.Header("X-Scan-Id", id)
	log := s.log.With("scan_id", id)

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	domain, err := normalizeDomain(req.Domain)
	if err != nil || domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain", "domain": req.Domain})
		return
	}

	if s.snapshots != nil {
		if data, ok := s.snapshots.Get(domain); ok {
			if result, err := snapshot.Unmarshal(data); err == nil {
				log.Debug("serving cached scan", "domain", domain)
				c.JSON(http.StatusOK, result)
				return
			}
		}
	}

	result, err := s.scanner.Scan(c.Request.Context(), domain)
	if err != nil {
		log.Error("scan failed", "domain", domain, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "scan failed", "domain": domain})
		return
	}

	if s.snapshots != nil {
		if data, err := snapshot.Marshal(result); err == nil {
			s.snapshots.Set(domain, data)
		} else {
			log.Warn("snapshot encode failed", "domain", domain, "error", err)
		}
	}
	c.JSON(http.StatusOK, result)
}

// normalizeDomain lowercases, strips the trailing dot, and converts
// internationalized names to their ASCII form.
func normalizeDomain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return "", nil
	}
	return idna.Lookup.ToASCII(domain)
}
