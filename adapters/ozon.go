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

// Ozon-style seller API: header auth, POST endpoints, cursor pagination.
const (
	ozonPageLimit = 1000
)

// OzonStock is one stock update row for the seller API.
type OzonStock struct {
	OfferID string `json:"offer_id"`
	Stock   int    `json:"stock"`
}

// OzonPrice is one price update row for the seller API.
type OzonPrice struct {
	AutoActionEnabled string `json:"auto_action_enabled"`
	CurrencyCode      string `json:"currency_code"`
	OfferID           string `json:"offer_id"`
	OldPrice          string `json:"old_price"`
	Price             string `json:"price"`
}

// OzonUpdateItem is one per-offer entry from an update response.
type OzonUpdateItem struct {
	ProductID int64  `json:"product_id"`
	OfferID   string `json:"offer_id"`
	Updated   bool   `json:"updated"`
}

// OzonAdapter talks to an Ozon-style seller API for one seller account.
type OzonAdapter struct {
	baseURL  string
	clientID string
	apiKey   string
	client   *http.Client
}

type OzonOptions struct {
	BaseURL  string // e.g. https://api-seller.ozon.ru
	ClientID string
	APIKey   string
	Timeout  time.Duration
}

func NewOzonAdapter(opts OzonOptions) (*OzonAdapter, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("ClientID and APIKey are required")
	}
	to := opts.Timeout
	if to <= 0 {
		to = defaultTimeout
	}
	return &OzonAdapter{
		baseURL:  strings.TrimRight(base, "/"),
		clientID: opts.ClientID,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: to},
	}, nil
}

func (a *OzonAdapter) header() http.Header {
	h := http.Header{}
	h.Set("Client-Id", a.clientID)
	h.Set("Api-Key", a.apiKey)
	return h
}

type ozonListRequest struct {
	Filter ozonListFilter `json:"filter"`
	LastID string         `json:"last_id"`
	Limit  int            `json:"limit"`
}

type ozonListFilter struct {
	Visibility string `json:"visibility"`
}

type ozonListResponse struct {
	Result struct {
		Items []struct {
			OfferID string `json:"offer_id"`
		} `json:"items"`
		Total  int    `json:"total"`
		LastID string `json:"last_id"`
	} `json:"result"`
}

// OfferIDs pages through the product list until every known offer has been
// seen and returns the offer ids in listing order. The cursor starts empty;
// paging stops once the accumulated count reaches the reported total.
func (a *OzonAdapter) OfferIDs(ctx context.Context) ([]string, error) {
	var ids []string
	lastID := ""
	for {
		req := ozonListRequest{
			Filter: ozonListFilter{Visibility: "ALL"},
			LastID: lastID,
			Limit:  ozonPageLimit,
		}
		var resp ozonListResponse
		if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/product/list", a.header(), req, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Result.Items {
			ids = append(ids, it.OfferID)
		}
		lastID = resp.Result.LastID
		if len(ids) >= resp.Result.Total || len(resp.Result.Items) == 0 {
			break
		}
	}
	return ids, nil
}

type ozonUpdateResponse struct {
	Result []OzonUpdateItem `json:"result"`
}

// UpdateStocks sends one batch of stock updates. The per-offer results are
// returned as-is; interpreting them is the caller's concern.
func (a *OzonAdapter) UpdateStocks(ctx context.Context, stocks []OzonStock) ([]OzonUpdateItem, error) {
	payload := struct {
		Stocks []OzonStock `json:"stocks"`
	}{Stocks: stocks}
	var resp ozonUpdateResponse
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v1/product/import/stocks", a.header(), payload, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// UpdatePrices sends one batch of price updates.
func (a *OzonAdapter) UpdatePrices(ctx context.Context, prices []OzonPrice) ([]OzonUpdateItem, error) {
	payload := struct {
		Prices []OzonPrice `json:"prices"`
	}{Prices: prices}
	var resp ozonUpdateResponse
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v1/product/import/prices", a.header(), payload, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}
