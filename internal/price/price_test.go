package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"dollar sign with thousands separator", "$1,234.56", 1234.56, true},
		{"plain number", "19.99", 19.99, true},
		{"surrounding text", "Now only $49.95 today", 49.95, true},
		{"integer price", "250", 250, true},
		{"leading whitespace", "  12.50", 12.5, true},
		{"empty string", "", 0, false},
		{"no digits", "free", 0, false},
		{"zero is below the floor", "0.00", 0, false},
		{"one cent floor", "0.01", 0.01, true},
		{"ceiling", "999999", 999999, true},
		{"above ceiling", "1000000", 0, false},
		{"currency word", "USD 181.96", 181.96, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeWithin(t *testing.T) {
	// In range for the global bounds but below the retailer floor.
	_, ok := NormalizeWithin("4.99", 9.99, 50000)
	assert.False(t, ok)

	got, ok := NormalizeWithin("49.99", 9.99, 50000)
	assert.True(t, ok)
	assert.Equal(t, 49.99, got)

	_, ok = NormalizeWithin("60000", 0.99, 50000)
	assert.False(t, ok)
}
