package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

// BestBuyParser handles BestBuy product pages. Prices live in embedded
// schema.org JSON rather than visible markup; the regex scan uses a
// higher floor because BestBuy listings rarely go below ten dollars.
type BestBuyParser struct {
	profile retailer.Profile
}

func (p *BestBuyParser) Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult {
	title := firstTitle(
		func() string { return elementText(doc, "h1") },
		func() string { return metaProperty(doc, "og:title") },
	)

	priceValue := firstPrice(
		func() *float64 { return jsonLDOfferPrice(doc) },
		func() *float64 { return attrOrText(doc.Find(`div[class*="priceView"]`).First(), "aria-label") },
		func() *float64 { return attrOrText(doc.Find(`[data-price]`).First(), "data-price") },
		func() *float64 { return scanRaw(raw, embeddedPricePattern, p.profile) },
	)

	return models.Resolved("bestbuy", title, priceValue)
}
