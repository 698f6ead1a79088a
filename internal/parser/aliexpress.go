package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/price"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

var (
	// Sale listings embed the original and discounted price in the share URL.
	urlPricePairPattern   = regexp.MustCompile(`USD.*?([\d,]+\.?\d{1,2}).*?([\d,]+\.?\d{1,2})`)
	urlPriceSinglePattern = regexp.MustCompile(`US\s*\$\s*([\d,]+\.?\d{0,2})`)
)

// AliExpressParser handles AliExpress product pages after client-side
// rendering. Prices come from the runParams client-state object embedded in
// a script tag, from price pairs encoded in the URL itself, or from tracked
// price spans. All of these follow upstream markup that changes without
// notice, so every technique is best-effort.
type AliExpressParser struct {
	profile retailer.Profile
}

// NewAliExpress builds the parser the scripted path composes its live
// techniques around.
func NewAliExpress() *AliExpressParser {
	return &AliExpressParser{profile: retailer.AliExpress.Profile()}
}

func (p *AliExpressParser) Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult {
	title := firstTitle(
		func() string { return p.Title(doc) },
		func() string { return FallbackTitle(rawURL) },
	)
	return models.Resolved("aliexpress", title, p.DocumentPrice(doc, rawURL))
}

// Title runs the document-level title chain: the first substantial heading,
// then og:title. The scripted path appends its own browser-title fallback
// after these.
func (p *AliExpressParser) Title(doc *goquery.Document) string {
	var heading string
	doc.Find("h1").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 10 {
			heading = text
			return false
		}
		return true
	})

	return firstTitle(
		func() string { return heading },
		func() string { return metaProperty(doc, "og:title") },
	)
}

// FallbackTitle derives a placeholder title from the item id in the URL,
// used when the rendered page exposes no usable heading.
func FallbackTitle(rawURL string) string {
	item := rawURL
	if i := strings.LastIndex(item, "/"); i >= 0 {
		item = item[i+1:]
	}
	item, _, _ = strings.Cut(item, ".")
	item, _, _ = strings.Cut(item, "?")
	if item == "" {
		return ""
	}
	return fmt.Sprintf("AliExpress Product %s", item)
}

// DocumentPrice runs the document-level price chain: the runParams script
// payload, then prices encoded in the URL, then tracked price spans. The
// scripted path tries live in-page evaluation before any of these.
func (p *AliExpressParser) DocumentPrice(doc *goquery.Document, rawURL string) *float64 {
	return firstPrice(
		func() *float64 { return runParamsPrice(doc) },
		func() *float64 { return p.urlPrice(rawURL) },
		func() *float64 { return p.spanPrice(doc) },
	)
}

// runParamsPrice digs the price out of the window.runParams assignment
// embedded in a script tag, trying the priceModule amounts in the order the
// storefront populates them.
func runParamsPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		start := strings.Index(text, "window.runParams")
		if start < 0 {
			return true
		}

		open := strings.Index(text[start:], "{")
		close := strings.LastIndex(text, "}")
		if open < 0 || close <= start+open {
			return true
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(text[start+open:close+1]), &data); err != nil {
			return true
		}

		inner, ok := data["data"].(map[string]any)
		if !ok {
			return true
		}
		module, ok := inner["priceModule"].(map[string]any)
		if !ok {
			return true
		}

		for _, field := range []string{"minActivityAmount", "minAmount", "maxActivityAmount"} {
			amount, ok := module[field].(map[string]any)
			if !ok {
				continue
			}
			if value, ok := normalizeAny(amount["value"]); ok {
				found = &value
				return false
			}
		}
		return true
	})
	return found
}

// urlPrice decodes price pairs the storefront embeds in share URLs. For a
// pair the second number is the sale price.
func (p *AliExpressParser) urlPrice(rawURL string) *float64 {
	decoded, err := url.QueryUnescape(rawURL)
	if err != nil {
		decoded = rawURL
	}

	if match := urlPricePairPattern.FindStringSubmatch(decoded); len(match) == 3 {
		if value, ok := price.NormalizeWithin(match[2], p.profile.ScanFloor, p.profile.ScanCeiling); ok {
			return &value
		}
	}
	if match := urlPriceSinglePattern.FindStringSubmatch(decoded); len(match) == 2 {
		if value, ok := price.NormalizeWithin(match[1], p.profile.ScanFloor, p.profile.ScanCeiling); ok {
			return &value
		}
	}
	return nil
}

// spanPrice scans the tracked spans AliExpress renders prices into.
func (p *AliExpressParser) spanPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("span[data-spm-anchor-id]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.Contains(text, "$") && !strings.Contains(text, "USD") {
			return true
		}
		if value, ok := price.NormalizeWithin(text, p.profile.ScanFloor, p.profile.ScanCeiling); ok {
			found = &value
			return false
		}
		return true
	})
	return found
}
