package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/price"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// NeweggParser handles Newegg product pages. The displayed price is split
// into a dollars element and a cents superscript.
type NeweggParser struct {
	profile retailer.Profile
}

func (p *NeweggParser) Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult {
	title := firstTitle(
		func() string { return elementText(doc, "h1.product-title") },
		func() string { return elementText(doc, "h1") },
		func() string { return metaProperty(doc, "og:title") },
	)

	priceValue := firstPrice(
		func() *float64 { return currentPrice(doc) },
		func() *float64 { return attrOrText(doc.Find("div.product-price").First(), "data-price") },
		func() *float64 { return jsonLDOfferPrice(doc) },
		func() *float64 { return scanRaw(raw, embeddedPricePattern, p.profile) },
	)

	return models.Resolved("newegg", title, priceValue)
}

// currentPrice reassembles the li.price-current dollars/cents split.
func currentPrice(doc *goquery.Document) *float64 {
	current := doc.Find("li.price-current").First()
	if current.Length() == 0 {
		return nil
	}

	text := strings.TrimSpace(current.Find("strong").First().Text())
	if text == "" {
		text = current.Text()
	} else if cents := strings.TrimSpace(current.Find("sup").First().Text()); cents != "" {
		text += "." + strings.TrimPrefix(cents, ".")
	}

	if value, ok := price.Normalize(text); ok {
		return &value
	}
	return nil
}
