package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/parser"
	"github.com/pricewatch/pricewatch/internal/price"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// renderAndScrape drives a headless session for retailers whose prices only
// exist after client-side rendering. The session slot is released on every
// exit path, and any crash inside the session is downgraded to a failed
// result.
func (s *Service) renderAndScrape(ctx context.Context, rawURL string, kind retailer.Kind) (result models.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("browser session crashed", "url", rawURL, "panic", r)
			result = models.Failure("scraper timeout or crash")
		}
	}()

	if s.browser == nil {
		return models.Failure("scripted browser transport unavailable")
	}

	page, release, err := s.browser.AcquirePage(ctx)
	if err != nil {
		s.logger.Error("failed to acquire browser session", "url", rawURL, "error", err)
		return models.Failure("scraper timeout or crash")
	}
	defer release()

	if err := s.browser.Navigate(page, rawURL); err != nil {
		return models.Failure(fmt.Sprintf("navigation failed: %v", err))
	}

	// Let client-side price widgets render before reading the DOM.
	select {
	case <-ctx.Done():
		return models.Failure("scraper timeout or crash")
	case <-time.After(kind.Profile().SettleDelay):
	}

	html, err := page.Content()
	if err != nil {
		s.logger.Error("failed to read rendered document", "url", rawURL, "error", err)
		return models.Failure("scraper timeout or crash")
	}
	s.snapshot(kind, []byte(html))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to parse document: %v", err))
	}

	if kind == retailer.AliExpress {
		result = s.scrapeAliExpress(page, doc, rawURL)
	} else {
		result = s.scrapeRendered(page, doc, []byte(html), rawURL, kind)
	}

	if result.Success {
		s.logger.Info("extracted product", "url", rawURL, "title", result.Title, "price", *result.Price)
	} else {
		s.logger.Warn("extraction failed", "url", rawURL, "error", result.Error)
	}
	return result
}

// scrapeRendered runs the retailer's document chain first, then extends it
// with techniques only the live session offers: a direct DOM query for the
// price and the browser's own document title.
func (s *Service) scrapeRendered(page playwright.Page, doc *goquery.Document, raw []byte, rawURL string, kind retailer.Kind) models.ExtractionResult {
	result := parser.ForKind(kind).Parse(doc, raw, rawURL)
	if result.Success {
		return result
	}

	title := result.Title
	if title == "" {
		title = pageTitle(page)
	}

	priceValue := result.Price
	if priceValue == nil {
		priceValue = s.livePrice(page, kind)
	}

	return models.Resolved(kind.String(), title, priceValue)
}

func (s *Service) scrapeAliExpress(page playwright.Page, doc *goquery.Document, rawURL string) models.ExtractionResult {
	p := parser.NewAliExpress()

	title := p.Title(doc)
	if title == "" {
		if t, err := page.Title(); err == nil {
			title = strings.TrimSpace(strings.ReplaceAll(t, " - AliExpress", ""))
		}
	}
	if title == "" {
		title = parser.FallbackTitle(rawURL)
	}

	priceValue := s.evalRunParams(page)
	if priceValue == nil {
		priceValue = p.DocumentPrice(doc, rawURL)
	}

	return models.Resolved("aliexpress", title, priceValue)
}

// evalRunParams asks the live page for the client-state price object. The
// object's shape follows upstream scripts and changes without notice, so a
// miss here is silent and the document chain takes over.
func (s *Service) evalRunParams(page playwright.Page) *float64 {
	value, err := page.Evaluate(`() => {
		if (window.runParams && window.runParams.data) {
			var data = window.runParams.data;
			if (data.priceModule && data.priceModule.minActivityAmount) {
				return data.priceModule.minActivityAmount.value;
			}
			if (data.priceModule && data.priceModule.minAmount) {
				return data.priceModule.minAmount.value;
			}
		}
		return null;
	}`)
	if err != nil {
		s.logger.Debug("runParams evaluation failed", "error", err)
		return nil
	}
	return asPrice(value)
}

// livePrice queries the retailer's price element through the live session,
// the last technique in the scripted chain.
func (s *Service) livePrice(page playwright.Page, kind retailer.Kind) *float64 {
	var selector string
	switch kind {
	case retailer.Walmart:
		selector = `[itemprop="price"]`
	case retailer.BestBuy:
		selector = `[class*="priceView"]`
	case retailer.Newegg:
		selector = `.price-current`
	default:
		return nil
	}

	locator := page.Locator(selector).First()
	count, err := locator.Count()
	if err != nil || count == 0 {
		return nil
	}

	if text, err := locator.TextContent(); err == nil {
		if v, ok := price.Normalize(text); ok {
			return &v
		}
	}
	if content, err := locator.GetAttribute("content"); err == nil {
		if v, ok := price.Normalize(content); ok {
			return &v
		}
	}
	return nil
}

func pageTitle(page playwright.Page) string {
	title, err := page.Title()
	if err != nil {
		return ""
	}
	title, _, _ = strings.Cut(title, "|")
	title, _, _ = strings.Cut(title, "-")
	return strings.TrimSpace(title)
}

// asPrice accepts the loosely typed values page evaluation returns.
func asPrice(v any) *float64 {
	switch value := v.(type) {
	case float64:
		if value < price.MinValid || value > price.MaxValid {
			return nil
		}
		return &value
	case int:
		f := float64(value)
		return asPrice(f)
	case string:
		if p, ok := price.Normalize(value); ok {
			return &p
		}
	}
	return nil
}
