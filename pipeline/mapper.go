package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace-stock-sync/adapters"
	"marketplace-stock-sync/feed"
)

var (
	// ErrQuantity reports a feed quantity that is neither a sentinel nor an
	// integer.
	ErrQuantity = errors.New("bad quantity")
	// ErrPrice reports a feed price with no digits before the first '.'.
	ErrPrice = errors.New("bad price")
)

// stockCount applies the quantity business rule: the feed reports ">10" for
// well-stocked items and "1" for display-only leftovers that must not be sold.
func stockCount(quantity string) (int, error) {
	switch quantity {
	case ">10":
		return 100, nil
	case "1":
		return 0, nil
	default:
		n, err := strconv.Atoi(quantity)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrQuantity, quantity)
		}
		return n, nil
	}
}

// buildStocks joins remnants against the offer-id snapshot. Matched offers
// come first in feed order; every remaining known offer is zero-filled after,
// in original listing order. The input slice is never mutated; the ids that
// saw no remnant are returned alongside the stocks. A remnant code repeated
// in the feed matches only on its first occurrence.
func buildStocks[T any](remnants []feed.Remnant, offerIDs []string, build func(offerID string, count int) T) ([]T, []string, error) {
	working := make(map[string]struct{}, len(offerIDs))
	for _, id := range offerIDs {
		working[id] = struct{}{}
	}

	stocks := make([]T, 0, len(offerIDs))
	for _, r := range remnants {
		if _, ok := working[r.Code]; !ok {
			continue
		}
		count, err := stockCount(r.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("offer %s: %w", r.Code, err)
		}
		stocks = append(stocks, build(r.Code, count))
		delete(working, r.Code)
	}

	var unmatched []string
	for _, id := range offerIDs {
		if _, ok := working[id]; ok {
			stocks = append(stocks, build(id, 0))
			unmatched = append(unmatched, id)
		}
	}
	return stocks, unmatched, nil
}

// BuildOzonStocks maps remnants onto the seller API stock shape.
func BuildOzonStocks(remnants []feed.Remnant, offerIDs []string) ([]adapters.OzonStock, []string, error) {
	return buildStocks(remnants, offerIDs, func(offerID string, count int) adapters.OzonStock {
		return adapters.OzonStock{OfferID: offerID, Stock: count}
	})
}

// BuildMarketStocks maps remnants onto the partner API stock shape for one
// warehouse. All rows share a single UTC timestamp taken from now.
func BuildMarketStocks(remnants []feed.Remnant, offerIDs []string, warehouseID int64, now time.Time) ([]adapters.MarketStock, []string, error) {
	updatedAt := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	return buildStocks(remnants, offerIDs, func(offerID string, count int) adapters.MarketStock {
		return adapters.MarketStock{
			SKU:         offerID,
			WarehouseID: warehouseID,
			Items: []adapters.MarketStockItem{{
				Count:     count,
				Type:      adapters.StockTypeFit,
				UpdatedAt: updatedAt,
			}},
		}
	})
}

// BuildOzonPrices maps remnants onto the seller API price shape. Only offers
// present in both the feed and the offer-id set are emitted; offers missing
// from the feed are never zero-filled.
func BuildOzonPrices(remnants []feed.Remnant, offerIDs []string) []adapters.OzonPrice {
	known := make(map[string]struct{}, len(offerIDs))
	for _, id := range offerIDs {
		known[id] = struct{}{}
	}
	var prices []adapters.OzonPrice
	for _, r := range remnants {
		if _, ok := known[r.Code]; !ok {
			continue
		}
		prices = append(prices, adapters.OzonPrice{
			AutoActionEnabled: "UNKNOWN",
			CurrencyCode:      "RUB",
			OfferID:           r.Code,
			OldPrice:          "0",
			Price:             NormalizePrice(r.Price),
		})
	}
	return prices
}

// BuildMarketPrices maps remnants onto the partner API price shape. The
// normalized price must parse to an integer value.
func BuildMarketPrices(remnants []feed.Remnant, offerIDs []string) ([]adapters.MarketPrice, error) {
	known := make(map[string]struct{}, len(offerIDs))
	for _, id := range offerIDs {
		known[id] = struct{}{}
	}
	var prices []adapters.MarketPrice
	for _, r := range remnants {
		if _, ok := known[r.Code]; !ok {
			continue
		}
		value, err := strconv.Atoi(NormalizePrice(r.Price))
		if err != nil {
			return nil, fmt.Errorf("offer %s: %w: %q", r.Code, ErrPrice, r.Price)
		}
		prices = append(prices, adapters.MarketPrice{
			ID:    r.Code,
			Price: adapters.MarketPriceValue{Value: value, CurrencyID: "RUR"},
		})
	}
	return prices, nil
}
