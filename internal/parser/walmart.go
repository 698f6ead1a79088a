package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// WalmartParser handles Walmart product pages, which carry schema.org
// microdata when served statically.
type WalmartParser struct {
	profile retailer.Profile
}

func (p *WalmartParser) Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult {
	title := firstTitle(
		func() string { return elementText(doc, `h1[itemprop="name"]`) },
		func() string { return elementText(doc, "h1") },
		func() string { return metaProperty(doc, "og:title") },
	)

	priceValue := firstPrice(
		func() *float64 { return attrOrText(doc.Find(`span[itemprop="price"]`).First(), "content") },
		func() *float64 { return attrOrText(doc.Find(`[data-price]`).First(), "data-price") },
		func() *float64 { return scanRaw(raw, embeddedPricePattern, p.profile) },
	)

	return models.Resolved("walmart", title, priceValue)
}
