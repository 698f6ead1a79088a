// Package scraper is the extraction core's entry point: it routes a URL to
// the right transport, runs the matching parser and returns a uniform
// result. No internal fault escapes Extract as anything but a failed
// ExtractionResult.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/browser"
	"github.com/pricewatch/pricewatch/internal/fetch"
	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/parser"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// Fetcher performs a single static GET. Implemented by fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error)
}

type Service struct {
	fetcher     Fetcher
	browser     *browser.Browser
	snapshotDir string
	logger      *slog.Logger
}

// Options configures optional service behavior.
type Options struct {
	// SnapshotDir, when set, receives a copy of every fetched document for
	// debugging selector drift. Snapshots are a side artifact, not a
	// contract; write failures are logged and ignored.
	SnapshotDir string
}

func NewService(fetcher Fetcher, b *browser.Browser, opts Options, logger *slog.Logger) *Service {
	return &Service{
		fetcher:     fetcher,
		browser:     b,
		snapshotDir: opts.SnapshotDir,
		logger:      logger.With("component", "scraper"),
	}
}

// Extract resolves title and price for a product URL. It always returns an
// ExtractionResult; validation, transport, render and parse failures all
// surface through the result's Error field.
func (s *Service) Extract(ctx context.Context, rawURL string) models.ExtractionResult {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return models.Failure("URL cannot be empty")
	}

	plan := retailer.Route(rawURL)
	s.logger.Info("extracting product", "url", rawURL, "retailer", plan.Kind.String(),
		"scripted", plan.Transport == retailer.ScriptedBrowser)

	if plan.Transport == retailer.ScriptedBrowser {
		return s.renderAndScrape(ctx, rawURL, plan.Kind)
	}
	return s.fetchAndParse(ctx, rawURL, plan.Kind)
}

func (s *Service) fetchAndParse(ctx context.Context, rawURL string, kind retailer.Kind) models.ExtractionResult {
	body, err := s.fetcher.Fetch(ctx, rawURL, fetch.RandomIdentity())
	if err != nil {
		s.logger.Warn("static fetch failed", "url", rawURL, "error", err)
		return models.Failure(fmt.Sprintf("request failed: %v", err))
	}

	s.snapshot(kind, body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to parse document: %v", err))
	}

	result := parser.ForKind(kind).Parse(doc, body, rawURL)
	if result.Success {
		s.logger.Info("extracted product", "url", rawURL, "title", result.Title, "price", *result.Price)
	} else {
		s.logger.Warn("extraction failed", "url", rawURL, "error", result.Error)
	}
	return result
}

func (s *Service) snapshot(kind retailer.Kind, body []byte) {
	if s.snapshotDir == "" {
		return
	}
	path := filepath.Join(s.snapshotDir, kind.String()+"_debug.html")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Warn("failed to write snapshot", "path", path, "error", err)
	}
}
