package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/events"
	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/ratelimit"
)

// DefaultInterval is how often the full rescrape pass runs.
const DefaultInterval = 24 * time.Hour

// Default spacing between consecutive product extractions in a pass.
const (
	minRequestDelay = 2 * time.Second
	maxRequestDelay = 5 * time.Second
)

// Store is the persistence surface the rescraper needs. Outbox events passed
// to RecordPrice commit in the same transaction as the price write.
type Store interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	RecordPrice(ctx context.Context, id uuid.UUID, title string, price float64, events ...*database.OutboxEvent) error
}

// Extractor runs one extraction attempt for a product URL
type Extractor interface {
	Extract(ctx context.Context, rawURL string) models.ExtractionResult
}

// Rescraper periodically refreshes the price of every tracked product.
type Rescraper struct {
	store    Store
	scraper  Extractor
	limiter  ratelimit.Limiter
	logger   *slog.Logger
	interval time.Duration
}

// NewRescraper creates the background rescraper.
func NewRescraper(store Store, scraper Extractor, logger *slog.Logger, interval time.Duration) *Rescraper {
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Rescraper{
		store:    store,
		scraper:  scraper,
		limiter:  ratelimit.NewJittered(minRequestDelay, maxRequestDelay),
		logger:   logger.With("component", "rescraper"),
		interval: interval,
	}
}

// Start runs the rescrape loop until the context is cancelled.
func (r *Rescraper) Start(ctx context.Context) error {
	r.logger.Info("rescraper started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rescraper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RescrapeAll(ctx)
		}
	}
}

// RescrapeAll runs one pass over every tracked product. Individual failures
// are logged and skipped.
func (r *Rescraper) RescrapeAll(ctx context.Context) {
	products, err := r.store.ListProducts(ctx)
	if err != nil {
		r.logger.Error("failed to list products", "error", err)
		return
	}

	r.logger.Info("rescrape pass started", "products", len(products))

	updated := 0
	for _, product := range products {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Info("rescrape pass interrupted")
			return
		}

		result := r.scraper.Extract(ctx, product.URL)
		if !result.Success {
			r.logger.Warn("rescrape failed",
				"product_id", product.ID,
				"url", product.URL,
				"error", result.Error)
			continue
		}

		price := *result.Price
		priceEvents := r.buildEvents(product, result.Title, price)
		if err := r.store.RecordPrice(ctx, product.ID, result.Title, price, priceEvents...); err != nil {
			r.logger.Error("failed to record price",
				"product_id", product.ID,
				"error", err)
			continue
		}

		updated++
	}

	r.logger.Info("rescrape pass complete", "products", len(products), "updated", updated)
}

// buildEvents builds PRICE_RECORDED, plus PRICE_CHANGED when the price moved.
// The store inserts them in the same transaction as the price write.
func (r *Rescraper) buildEvents(product *models.Product, title string, price float64) []*database.OutboxEvent {
	var out []*database.OutboxEvent

	recorded, err := events.NewPriceRecorded(&events.PricePayload{
		ProductID: product.ID.String(),
		URL:       product.URL,
		Title:     title,
		Price:     price,
	})
	if err != nil {
		r.logger.Error("failed to build price recorded event",
			"product_id", product.ID, "error", err)
	} else {
		out = append(out, recorded)
	}

	if product.CurrentPrice != price {
		previous := product.CurrentPrice
		changed, err := events.NewPriceChanged(&events.PricePayload{
			ProductID:     product.ID.String(),
			URL:           product.URL,
			Title:         title,
			Price:         price,
			PreviousPrice: &previous,
		})
		if err != nil {
			r.logger.Error("failed to build price changed event",
				"product_id", product.ID, "error", err)
		} else {
			out = append(out, changed)
		}
	}

	return out
}
