package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Yandex.Market-style partner API: Bearer auth, per-campaign endpoints,
// page-token pagination.
const (
	marketPageLimit = 200

	// StockTypeFit is the stock item type accepted by the partner API.
	StockTypeFit = "FIT"
)

// MarketStock is one SKU stock update for the partner API.
type MarketStock struct {
	SKU         string            `json:"sku"`
	WarehouseID int64             `json:"warehouseId"`
	Items       []MarketStockItem `json:"items"`
}

type MarketStockItem struct {
	Count     int    `json:"count"`
	Type      string `json:"type"`
	UpdatedAt string `json:"updatedAt"`
}

// MarketPrice is one offer price update for the partner API.
type MarketPrice struct {
	ID    string           `json:"id"`
	Price MarketPriceValue `json:"price"`
}

type MarketPriceValue struct {
	Value      int    `json:"value"`
	CurrencyID string `json:"currencyId"`
}

// MarketAdapter talks to a Yandex.Market-style partner API. Campaign ids are
// passed per call since one account manages several campaigns.
type MarketAdapter struct {
	baseURL string
	token   string
	client  *http.Client
}

type MarketOptions struct {
	BaseURL string // e.g. https://api.partner.market.yandex.ru
	Token   string
	Timeout time.Duration
}

func NewMarketAdapter(opts MarketOptions) (*MarketAdapter, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("Token is required")
	}
	to := opts.Timeout
	if to <= 0 {
		to = defaultTimeout
	}
	return &MarketAdapter{
		baseURL: strings.TrimRight(base, "/"),
		token:   opts.Token,
		client:  &http.Client{Timeout: to},
	}, nil
}

func (a *MarketAdapter) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+a.token)
	return h
}

type marketListResponse struct {
	Result struct {
		Paging struct {
			NextPageToken string `json:"nextPageToken"`
		} `json:"paging"`
		OfferMappingEntries []struct {
			Offer struct {
				ShopSKU string `json:"shopSku"`
			} `json:"offer"`
		} `json:"offerMappingEntries"`
	} `json:"result"`
}

// OfferIDs pages through the campaign's offer mappings and returns the shop
// SKUs in listing order. Paging stops when no next-page token is returned.
func (a *MarketAdapter) OfferIDs(ctx context.Context, campaignID string) ([]string, error) {
	var skus []string
	page := ""
	for {
		u := fmt.Sprintf("%s/campaigns/%s/offer-mapping-entries?page_token=%s&limit=%d",
			a.baseURL, url.PathEscape(campaignID), url.QueryEscape(page), marketPageLimit)
		var resp marketListResponse
		if err := doJSON(ctx, a.client, http.MethodGet, u, a.header(), nil, &resp); err != nil {
			return nil, err
		}
		for _, e := range resp.Result.OfferMappingEntries {
			skus = append(skus, e.Offer.ShopSKU)
		}
		page = resp.Result.Paging.NextPageToken
		if page == "" {
			break
		}
	}
	return skus, nil
}

type marketUpdateResponse struct {
	Status string `json:"status"`
}

// UpdateStocks sends one batch of SKU stock updates for a campaign. The API
// status string is returned uninterpreted.
func (a *MarketAdapter) UpdateStocks(ctx context.Context, campaignID string, skus []MarketStock) (string, error) {
	payload := struct {
		SKUs []MarketStock `json:"skus"`
	}{SKUs: skus}
	u := a.baseURL + "/campaigns/" + url.PathEscape(campaignID) + "/offers/stocks"
	var resp marketUpdateResponse
	if err := doJSON(ctx, a.client, http.MethodPut, u, a.header(), payload, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// UpdatePrices sends one batch of offer price updates for a campaign.
func (a *MarketAdapter) UpdatePrices(ctx context.Context, campaignID string, offers []MarketPrice) (string, error) {
	payload := struct {
		Offers []MarketPrice `json:"offers"`
	}{Offers: offers}
	u := a.baseURL + "/campaigns/" + url.PathEscape(campaignID) + "/offer-prices/updates"
	var resp marketUpdateResponse
	if err := doJSON(ctx, a.client, http.MethodPost, u, a.header(), payload, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}
