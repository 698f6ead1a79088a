package models

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the clamp applied to extracted titles.
const MaxTitleLength = 250

// ExtractionResult is the single contract the extraction core returns.
// Success is true iff both Title and Price are present; Error is set iff
// Success is false.
type ExtractionResult struct {
	Title   string   `json:"title,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
}

// Failure builds a failed result carrying a human-readable reason.
func Failure(reason string) ExtractionResult {
	return ExtractionResult{Success: false, Error: reason}
}

// Resolved builds a result from whatever a parser managed to find. It
// enforces the success invariant and clamps the title; on a partial result
// the error names the retailer and which field is missing.
func Resolved(retailer, title string, price *float64) ExtractionResult {
	if title != "" && price != nil {
		if utf8.RuneCountInString(title) > MaxTitleLength {
			title = string([]rune(title)[:MaxTitleLength])
		}
		return ExtractionResult{Title: title, Price: price, Success: true}
	}
	return ExtractionResult{
		Title: title,
		Price: price,
		Error: fmt.Sprintf("%s: title=%t, price=%t", retailer, title != "", price != nil),
	}
}

type Product struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	CurrentPrice float64   `json:"current_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceObservation is one entry in a product's append-only price log.
type PriceObservation struct {
	ID         int64     `json:"-"`
	ProductID  uuid.UUID `json:"-"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"scraped_at"`
}

// PriceTrend returns "up", "down" or "same" based on the two most recent
// observations. History must be ordered newest first.
func PriceTrend(history []PriceObservation) string {
	if len(history) < 2 {
		return "same"
	}
	latest, previous := history[0].Price, history[1].Price
	switch {
	case latest < previous:
		return "down"
	case latest > previous:
		return "up"
	default:
		return "same"
	}
}

// PriceChangePercent returns the percentage change between the two most
// recent observations, rounded to one decimal place.
func PriceChangePercent(history []PriceObservation) float64 {
	if len(history) < 2 {
		return 0
	}
	latest, previous := history[0].Price, history[1].Price
	if previous == 0 {
		return 0
	}
	return math.Round((latest-previous)/previous*1000) / 10
}
