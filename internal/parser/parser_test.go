package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/retailer"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func runParser(t *testing.T, kind retailer.Kind, html, url string) models.ExtractionResult {
	t.Helper()
	return ForKind(kind).Parse(parseHTML(t, html), []byte(html), url)
}

func TestWalmartParser(t *testing.T) {
	tests := []struct {
		name          string
		html          string
		expectSuccess bool
		expectTitle   string
		expectPrice   float64
	}{
		{
			name:          "itemprop name and price content attribute",
			html:          `<html><h1 itemprop="name">Widget</h1><span itemprop="price" content="19.99"></span></html>`,
			expectSuccess: true,
			expectTitle:   "Widget",
			expectPrice:   19.99,
		},
		{
			name:          "plain h1 with data-price attribute",
			html:          `<html><h1>Garden Hose</h1><div data-price="34.50">$34.50</div></html>`,
			expectSuccess: true,
			expectTitle:   "Garden Hose",
			expectPrice:   34.5,
		},
		{
			name:          "og:title with embedded json price",
			html:          `<html><head><meta property="og:title" content="Blender"/></head><script>{"price": "89.00"}</script></html>`,
			expectSuccess: true,
			expectTitle:   "Blender",
			expectPrice:   89,
		},
		{
			name:          "title without price",
			html:          `<html><h1>Mystery Item</h1></html>`,
			expectSuccess: false,
			expectTitle:   "Mystery Item",
		},
		{
			name:          "price without title",
			html:          `<html><span itemprop="price" content="12.00"></span></html>`,
			expectSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runParser(t, retailer.Walmart, tt.html, "https://www.walmart.com/ip/x/1")
			assert.Equal(t, tt.expectSuccess, result.Success)
			assert.Equal(t, tt.expectTitle, result.Title)
			if tt.expectSuccess {
				require.NotNil(t, result.Price)
				assert.Equal(t, tt.expectPrice, *result.Price)
				assert.Empty(t, result.Error)
			} else {
				assert.Contains(t, result.Error, "walmart")
			}
		})
	}
}

// When a structured price attribute and a regex-matchable price disagree,
// the structured attribute wins.
func TestWalmartFallbackOrdering(t *testing.T) {
	html := `<html>
		<h1 itemprop="name">Widget</h1>
		<span itemprop="price" content="19.99"></span>
		<script>{"price": "999.99"}</script>
	</html>`

	result := runParser(t, retailer.Walmart, html, "https://www.walmart.com/ip/x/1")
	require.True(t, result.Success)
	assert.Equal(t, 19.99, *result.Price)
}

func TestParserIdempotence(t *testing.T) {
	html := `<html><h1 itemprop="name">Widget</h1><span itemprop="price" content="19.99"></span></html>`

	first := runParser(t, retailer.Walmart, html, "https://www.walmart.com/ip/x/1")
	second := runParser(t, retailer.Walmart, html, "https://www.walmart.com/ip/x/1")
	assert.Equal(t, first, second)
}

func TestTitleClamp(t *testing.T) {
	long := strings.Repeat("x", 400)
	html := `<html><h1>` + long + `</h1><span itemprop="price" content="5.00"></span></html>`

	result := runParser(t, retailer.Walmart, html, "https://www.walmart.com/ip/x/1")
	require.True(t, result.Success)
	assert.Len(t, result.Title, models.MaxTitleLength)
}

func TestBestBuyParser(t *testing.T) {
	t.Run("schema.org offers price", func(t *testing.T) {
		html := `<html><h1>4K TV</h1>
			<script type="application/ld+json">{"@type":"Product","offers":{"price":"499.99"}}</script>
		</html>`

		result := runParser(t, retailer.BestBuy, html, "https://www.bestbuy.com/site/p/1.p")
		require.True(t, result.Success)
		assert.Equal(t, "4K TV", result.Title)
		assert.Equal(t, 499.99, *result.Price)
	})

	t.Run("regex scan respects the higher floor", func(t *testing.T) {
		// 4.99 is a valid price globally but below BestBuy's floor; the
		// scan must skip it and settle on the next plausible number.
		html := `<html><h1>Soundbar</h1><script>{"price": 4.99}{"price": 129.99}</script></html>`

		result := runParser(t, retailer.BestBuy, html, "https://www.bestbuy.com/site/p/1.p")
		require.True(t, result.Success)
		assert.Equal(t, 129.99, *result.Price)
	})

	t.Run("malformed json-ld is skipped", func(t *testing.T) {
		html := `<html><h1>Router</h1>
			<script type="application/ld+json">{not json</script>
			<script type="application/ld+json">{"offers":{"price":59.99}}</script>
		</html>`

		result := runParser(t, retailer.BestBuy, html, "https://www.bestbuy.com/site/p/1.p")
		require.True(t, result.Success)
		assert.Equal(t, 59.99, *result.Price)
	})
}

func TestNeweggParser(t *testing.T) {
	t.Run("split dollars and cents", func(t *testing.T) {
		html := `<html><h1 class="product-title">RTX Card</h1>
			<li class="price-current"><strong>1,299</strong><sup>.99</sup></li>
		</html>`

		result := runParser(t, retailer.Newegg, html, "https://www.newegg.com/p/1")
		require.True(t, result.Success)
		assert.Equal(t, "RTX Card", result.Title)
		assert.Equal(t, 1299.99, *result.Price)
	})

	t.Run("json-ld fallback", func(t *testing.T) {
		html := `<html><h1>SSD Drive</h1>
			<script type="application/ld+json">{"offers":{"price":"84.99"}}</script>
		</html>`

		result := runParser(t, retailer.Newegg, html, "https://www.newegg.com/p/1")
		require.True(t, result.Success)
		assert.Equal(t, 84.99, *result.Price)
	})

	t.Run("missing price names the retailer and field", func(t *testing.T) {
		result := runParser(t, retailer.Newegg, `<html><h1>Bare Item</h1></html>`, "https://www.newegg.com/p/1")
		assert.False(t, result.Success)
		assert.Equal(t, "newegg: title=true, price=false", result.Error)
	})
}

func TestGenericParser(t *testing.T) {
	t.Run("heading and price class", func(t *testing.T) {
		html := `<html><h1>Unknown Shop Item</h1><div class="Product-Price">$42.00</div></html>`

		result := runParser(t, retailer.Generic, html, "https://example.com/p")
		require.True(t, result.Success)
		assert.Equal(t, "Unknown Shop Item", result.Title)
		assert.Equal(t, 42.0, *result.Price)
	})

	t.Run("skips price elements without a number", func(t *testing.T) {
		html := `<html><h1>Item</h1><span class="price-label">Price:</span><span class="price">$7.77</span></html>`

		result := runParser(t, retailer.Generic, html, "https://example.com/p")
		require.True(t, result.Success)
		assert.Equal(t, 7.77, *result.Price)
	})

	t.Run("itemprop microdata on an unknown domain", func(t *testing.T) {
		html := `<html><h1 itemprop="name">Widget</h1><span itemprop="price" content="19.99"></span></html>`

		result := runParser(t, retailer.Generic, html, "https://example.com/p")
		require.True(t, result.Success)
		assert.Equal(t, "Widget", result.Title)
		assert.Equal(t, 19.99, *result.Price)
		assert.Empty(t, result.Error)
	})

	t.Run("no fallback beyond microdata and the price class", func(t *testing.T) {
		html := `<html><h1>Item</h1><script>{"price": "19.99"}</script></html>`

		result := runParser(t, retailer.Generic, html, "https://example.com/p")
		assert.False(t, result.Success)
	})
}
