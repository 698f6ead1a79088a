package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/price"
)

var priceClassPattern = regexp.MustCompile(`(?i)price`)

// GenericParser is the last-resort strategy for unknown storefronts: the
// top-level heading as title, and schema.org price microdata or the first
// element whose class mentions "price" as the price source. Intentionally
// low-fidelity, no further fallback.
type GenericParser struct{}

func (p *GenericParser) Parse(doc *goquery.Document, raw []byte, rawURL string) models.ExtractionResult {
	title := elementText(doc, "h1")

	priceValue := firstPrice(
		func() *float64 { return attrOrText(doc.Find(`[itemprop="price"]`).First(), "content") },
		func() *float64 { return classPrice(doc) },
	)

	return models.Resolved("generic", title, priceValue)
}

func classPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("[class]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !priceClassPattern.MatchString(class) {
			return true
		}
		if v, ok := price.Normalize(strings.TrimSpace(s.Text())); ok {
			found = &v
			return false
		}
		return true
	})
	return found
}
