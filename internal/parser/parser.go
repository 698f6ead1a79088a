// Package parser extracts product title and price from retailer documents.
// Each retailer gets an ordered fallback chain per field: the first
// technique yielding a value wins and later techniques are never attempted.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/price"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// Parser is a pure function over a parsed document tree. raw is the
// undecoded document for regex scans; parsing the same document twice
// yields the same result.
type Parser interface {
	Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult
}

// ForKind selects the parser implementation for a classified retailer.
func ForKind(kind retailer.Kind) Parser {
	switch kind {
	case retailer.Walmart:
		return &WalmartParser{profile: kind.Profile()}
	case retailer.BestBuy:
		return &BestBuyParser{profile: kind.Profile()}
	case retailer.Newegg:
		return &NeweggParser{profile: kind.Profile()}
	case retailer.AliExpress:
		return &AliExpressParser{profile: kind.Profile()}
	default:
		return &GenericParser{}
	}
}

// titleTechnique and priceTechnique are single steps in a fallback chain.
type titleTechnique func() string

type priceTechnique func() *float64

func firstTitle(techniques ...titleTechnique) string {
	for _, technique := range techniques {
		if title := technique(); title != "" {
			return title
		}
	}
	return ""
}

func firstPrice(techniques ...priceTechnique) *float64 {
	for _, technique := range techniques {
		if p := technique(); p != nil {
			return p
		}
	}
	return nil
}

// Shared techniques.

func elementText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// attrOrText normalizes a price from the element's attribute if present,
// falling back to its text.
func attrOrText(sel *goquery.Selection, attr string) *float64 {
	if sel.Length() == 0 {
		return nil
	}
	if v, ok := sel.Attr(attr); ok {
		if p, ok := price.Normalize(v); ok {
			return &p
		}
	}
	if p, ok := price.Normalize(sel.Text()); ok {
		return &p
	}
	return nil
}

// Embedded "price" fields in scripts and inline JSON.
var embeddedPricePattern = regexp.MustCompile(`"price"[:\s]+"?([\d,]+\.?\d{0,2})"?`)

// scanRaw walks currency-like numeric patterns in the raw document and
// returns the first one inside the retailer's plausibility window.
func scanRaw(raw []byte, pattern *regexp.Regexp, profile retailer.Profile) *float64 {
	for _, match := range pattern.FindAllSubmatch(raw, -1) {
		if len(match) < 2 {
			continue
		}
		if p, ok := price.NormalizeWithin(string(match[1]), profile.ScanFloor, profile.ScanCeiling); ok {
			return &p
		}
	}
	return nil
}

// jsonLDOfferPrice reads schema.org product blocks and returns the
// offers.price value of the first one that has it.
func jsonLDOfferPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		offers, ok := data["offers"].(map[string]any)
		if !ok {
			return true
		}
		if p, ok := normalizeAny(offers["price"]); ok {
			found = &p
			return false
		}
		return true
	})
	return found
}

// normalizeAny accepts the string-or-number values JSON payloads carry.
func normalizeAny(v any) (float64, bool) {
	switch value := v.(type) {
	case string:
		return price.Normalize(value)
	case float64:
		if value < price.MinValid || value > price.MaxValid {
			return 0, false
		}
		return value, true
	default:
		return 0, false
	}
}
