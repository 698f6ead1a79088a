package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/events"
	"github.com/pricewatch/pricewatch/internal/models"
)

// ProductStore is the persistence surface the handlers need. Outbox events
// passed to the write operations commit in the same transaction as the write.
type ProductStore interface {
	FindProductByURL(ctx context.Context, url string) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CreateTrackedProduct(ctx context.Context, id uuid.UUID, url, title string, price float64, events ...*database.OutboxEvent) (*models.Product, error)
	RecordPrice(ctx context.Context, id uuid.UUID, title string, price float64, events ...*database.OutboxEvent) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListObservations(ctx context.Context, productID uuid.UUID) ([]models.PriceObservation, error)
	CountObservations(ctx context.Context, productID uuid.UUID) (int, error)
}

// Extractor runs one extraction attempt for a product URL
type Extractor interface {
	Extract(ctx context.Context, rawURL string) models.ExtractionResult
}

type Handlers struct {
	store   ProductStore
	scraper Extractor
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(store ProductStore, scraper Extractor, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:   store,
		scraper: scraper,
		logger:  logger.With("component", "api"),
	}
}

// AddProductRequest is the body for POST /add-product
type AddProductRequest struct {
	URL *string `json:"url"`
}

// ProductSummary is the product shape returned by add and history endpoints
type ProductSummary struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	CurrentPrice      float64 `json:"current_price"`
	PriceHistoryCount int     `json:"price_history_count,omitempty"`
}

// ProductListing extends ProductSummary with trend data for GET /products
type ProductListing struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	URL                string  `json:"url"`
	CurrentPrice       float64 `json:"current_price"`
	CreatedAt          string  `json:"created_at"`
	PriceHistoryCount  int     `json:"price_history_count"`
	PriceTrend         string  `json:"price_trend"`
	PriceChangePercent float64 `json:"price_change_percent"`
}

// AddProduct scrapes a URL and starts tracking it, or refreshes the price
// when the URL is already tracked.
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == nil {
		h.respondError(w, http.StatusBadRequest, "URL is required in JSON body")
		return
	}

	url := strings.TrimSpace(*req.URL)
	if url == "" {
		h.respondError(w, http.StatusBadRequest, "URL cannot be empty")
		return
	}

	result := h.scraper.Extract(r.Context(), url)
	if !result.Success {
		h.respondError(w, http.StatusBadRequest, result.Error)
		return
	}

	price := *result.Price

	existing, err := h.store.FindProductByURL(r.Context(), url)
	if err != nil {
		h.logger.Error("failed to look up product", "url", url, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to look up product")
		return
	}

	if existing != nil {
		previous := existing.CurrentPrice
		priceEvents := h.buildPriceEvents(existing.ID, url, result.Title, price, &previous)
		if err := h.store.RecordPrice(r.Context(), existing.ID, result.Title, price, priceEvents...); err != nil {
			h.logger.Error("failed to record price", "product_id", existing.ID, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to record price")
			return
		}

		count, err := h.store.CountObservations(r.Context(), existing.ID)
		if err != nil {
			h.logger.Warn("failed to count observations", "product_id", existing.ID, "error", err)
		}

		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Product updated successfully",
			"product": ProductSummary{
				ID:                existing.ID.String(),
				Title:             result.Title,
				URL:               url,
				CurrentPrice:      price,
				PriceHistoryCount: count,
			},
		})
		return
	}

	id := uuid.New()
	priceEvents := h.buildPriceEvents(id, url, result.Title, price, nil)
	product, err := h.store.CreateTrackedProduct(r.Context(), id, url, result.Title, price, priceEvents...)
	if err != nil {
		h.logger.Error("failed to create product", "url", url, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Product added successfully",
		"product": ProductSummary{
			ID:                product.ID.String(),
			Title:             product.Title,
			URL:               product.URL,
			CurrentPrice:      product.CurrentPrice,
			PriceHistoryCount: 1,
		},
	})
}

// ListProducts returns every tracked product with its trend data.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	listings := make([]ProductListing, 0, len(products))
	for _, p := range products {
		history, err := h.store.ListObservations(r.Context(), p.ID)
		if err != nil {
			h.logger.Error("failed to list observations", "product_id", p.ID, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to list products")
			return
		}

		listings = append(listings, ProductListing{
			ID:                 p.ID.String(),
			Title:              p.Title,
			URL:                p.URL,
			CurrentPrice:       p.CurrentPrice,
			CreatedAt:          p.CreatedAt.Format(time.RFC3339),
			PriceHistoryCount:  len(history),
			PriceTrend:         models.PriceTrend(history),
			PriceChangePercent: models.PriceChangePercent(history),
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(listings),
		"products": listings,
	})
}

// GetHistory returns the price history for one product, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}

	history, err := h.store.ListObservations(r.Context(), product.ID)
	if err != nil {
		h.logger.Error("failed to list observations", "product_id", product.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	entries := make([]map[string]interface{}, 0, len(history))
	for _, obs := range history {
		entries = append(entries, map[string]interface{}{
			"price":      obs.Price,
			"scraped_at": obs.ObservedAt.Format(time.RFC3339),
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": ProductSummary{
			ID:           product.ID.String(),
			Title:        product.Title,
			URL:          product.URL,
			CurrentPrice: product.CurrentPrice,
		},
		"history": entries,
	})
}

// DeleteProduct removes a product and its history.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(r.Context(), product.ID); err != nil {
		h.logger.Error("failed to delete product", "product_id", product.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Deleted " + product.Title,
	})
}

// Rescrape runs an on-demand extraction for a tracked product.
func (h *Handlers) Rescrape(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}

	result := h.scraper.Extract(r.Context(), product.URL)
	if !result.Success {
		h.respondError(w, http.StatusBadRequest, result.Error)
		return
	}

	price := *result.Price
	previous := product.CurrentPrice
	priceEvents := h.buildPriceEvents(product.ID, product.URL, result.Title, price, &previous)

	if err := h.store.RecordPrice(r.Context(), product.ID, result.Title, price, priceEvents...); err != nil {
		h.logger.Error("failed to record price", "product_id", product.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to record price")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Re-scraped successfully",
		"new_price": price,
	})
}

// productFromPath resolves the productID URL parameter to a stored product.
// Writes the error response itself when resolution fails.
func (h *Handlers) productFromPath(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	raw := chi.URLParam(r, "productID")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid product ID")
		return nil, false
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return nil, false
	}
	if product == nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return nil, false
	}

	return product, true
}

// buildPriceEvents builds PRICE_RECORDED, plus PRICE_CHANGED when the price
// moved. The store inserts them in the same transaction as the price write.
func (h *Handlers) buildPriceEvents(id uuid.UUID, url, title string, price float64, previous *float64) []*database.OutboxEvent {
	var out []*database.OutboxEvent

	recorded, err := events.NewPriceRecorded(&events.PricePayload{
		ProductID: id.String(),
		URL:       url,
		Title:     title,
		Price:     price,
	})
	if err != nil {
		h.logger.Error("failed to build price recorded event", "product_id", id, "error", err)
	} else {
		out = append(out, recorded)
	}

	if previous != nil && *previous != price {
		changed, err := events.NewPriceChanged(&events.PricePayload{
			ProductID:     id.String(),
			URL:           url,
			Title:         title,
			Price:         price,
			PreviousPrice: previous,
		})
		if err != nil {
			h.logger.Error("failed to build price changed event", "product_id", id, "error", err)
		} else {
			out = append(out, changed)
		}
	}

	return out
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
