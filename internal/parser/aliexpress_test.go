package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/retailer"
)

func TestAliExpressRunParamsPrice(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected float64
	}{
		{
			name:     "activity amount preferred",
			script:   `window.runParams = {"data":{"priceModule":{"minActivityAmount":{"value":69.42},"minAmount":{"value":181.96}}}};`,
			expected: 69.42,
		},
		{
			name:     "min amount fallback",
			script:   `window.runParams = {"data":{"priceModule":{"minAmount":{"value":"24.99"}}}};`,
			expected: 24.99,
		},
		{
			name:     "max activity amount last",
			script:   `window.runParams = {"data":{"priceModule":{"maxActivityAmount":{"value":12.5}}}};`,
			expected: 12.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, `<html><h1>Wireless Earbuds Pro Edition</h1><script>`+tt.script+`</script></html>`)
			got := runParamsPrice(doc)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, *got)
		})
	}
}

func TestAliExpressURLPrice(t *testing.T) {
	p := &AliExpressParser{profile: retailer.AliExpress.Profile()}

	t.Run("price pair takes the sale price", func(t *testing.T) {
		got := p.urlPrice("https://www.aliexpress.com/item/123.html?spm=x&title=USD%20181.96%2069.42")
		require.NotNil(t, got)
		assert.Equal(t, 69.42, *got)
	})

	t.Run("single US$ price", func(t *testing.T) {
		got := p.urlPrice("https://www.aliexpress.com/item/123.html?snap=US%20%2434.20")
		require.NotNil(t, got)
		assert.Equal(t, 34.2, *got)
	})

	t.Run("no price in url", func(t *testing.T) {
		assert.Nil(t, p.urlPrice("https://www.aliexpress.com/item/123.html"))
	})
}

func TestAliExpressSpanPrice(t *testing.T) {
	p := &AliExpressParser{profile: retailer.AliExpress.Profile()}

	doc := parseHTML(t, `<html>
		<span data-spm-anchor-id="a.b.c">Ships from China</span>
		<span data-spm-anchor-id="a.b.d">US $23.80</span>
	</html>`)

	got := p.spanPrice(doc)
	require.NotNil(t, got)
	assert.Equal(t, 23.8, *got)
}

func TestAliExpressParse(t *testing.T) {
	html := `<html>
		<h1>Bluetooth Speaker Waterproof Outdoor</h1>
		<script>window.runParams = {"data":{"priceModule":{"minAmount":{"value":15.99}}}};</script>
	</html>`

	result := runParser(t, retailer.AliExpress, html, "https://www.aliexpress.com/item/1005.html")
	require.True(t, result.Success)
	assert.Equal(t, "Bluetooth Speaker Waterproof Outdoor", result.Title)
	assert.Equal(t, 15.99, *result.Price)
}

func TestAliExpressShortHeadingsIgnored(t *testing.T) {
	doc := parseHTML(t, `<html><h1>Sale!</h1><h1>USB-C Charging Cable 2m Braided</h1></html>`)
	p := &AliExpressParser{profile: retailer.AliExpress.Profile()}
	assert.Equal(t, "USB-C Charging Cable 2m Braided", p.Title(doc))
}

func TestAliExpressFallbackTitle(t *testing.T) {
	assert.Equal(t, "AliExpress Product 1005006", FallbackTitle("https://www.aliexpress.com/item/1005006.html?spm=x"))
	assert.Equal(t, "AliExpress Product 42", FallbackTitle("https://aliexpress.com/item/42.html"))
}
