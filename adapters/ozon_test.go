package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOzon(t *testing.T, srv *httptest.Server, timeout time.Duration) *OzonAdapter {
	t.Helper()
	a, err := NewOzonAdapter(OzonOptions{
		BaseURL:  srv.URL,
		ClientID: "client123",
		APIKey:   "token456",
		Timeout:  timeout,
	})
	require.NoError(t, err)
	return a
}

func TestOzonOfferIDsCursorPagination(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/product/list", r.URL.Path)
		require.Equal(t, "client123", r.Header.Get("Client-Id"))
		require.Equal(t, "token456", r.Header.Get("Api-Key"))

		var req struct {
			Filter struct {
				Visibility string `json:"visibility"`
			} `json:"filter"`
			LastID string `json:"last_id"`
			Limit  int    `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ALL", req.Filter.Visibility)
		require.Equal(t, 1000, req.Limit)
		cursors = append(cursors, req.LastID)

		w.Header().Set("Content-Type", "application/json")
		if req.LastID == "" {
			w.Write([]byte(`{"result":{"items":[{"offer_id":"A"},{"offer_id":"B"}],"total":3,"last_id":"cur1"}}`))
			return
		}
		w.Write([]byte(`{"result":{"items":[{"offer_id":"C"}],"total":3,"last_id":"cur2"}}`))
	}))
	defer srv.Close()

	ids, err := newTestOzon(t, srv, 0).OfferIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, []string{"", "cur1"}, cursors)
}

func TestOzonOfferIDsStopsOnEmptyPage(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Total never reached; an empty page must still terminate the loop.
		w.Write([]byte(`{"result":{"items":[],"total":10,"last_id":""}}`))
	}))
	defer srv.Close()

	ids, err := newTestOzon(t, srv, 0).OfferIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, pages)
}

func TestOzonUpdateStocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/product/import/stocks", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Stocks []OzonStock `json:"stocks"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []OzonStock{{OfferID: "PG-2404С1", Stock: 4}}, req.Stocks)

		w.Write([]byte(`{"result":[{"product_id":55946,"offer_id":"PG-2404С1","updated":true}]}`))
	}))
	defer srv.Close()

	items, err := newTestOzon(t, srv, 0).UpdateStocks(context.Background(), []OzonStock{{OfferID: "PG-2404С1", Stock: 4}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Updated)
}

func TestOzonUpdatePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/product/import/prices", r.URL.Path)
		var req struct {
			Prices []OzonPrice `json:"prices"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Prices, 1)
		require.Equal(t, "5990", req.Prices[0].Price)
		require.Equal(t, "UNKNOWN", req.Prices[0].AutoActionEnabled)

		w.Write([]byte(`{"result":[{"offer_id":"offer123","updated":true}]}`))
	}))
	defer srv.Close()

	_, err := newTestOzon(t, srv, 0).UpdatePrices(context.Background(), []OzonPrice{{
		AutoActionEnabled: "UNKNOWN",
		CurrencyCode:      "RUB",
		OfferID:           "offer123",
		OldPrice:          "0",
		Price:             "5990",
	}})
	require.NoError(t, err)
}

func TestOzonStatusErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestOzon(t, srv, 0).OfferIDs(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "http status 403", se.Error())
}

func TestNewOzonAdapterValidation(t *testing.T) {
	_, err := NewOzonAdapter(OzonOptions{ClientID: "c", APIKey: "k"})
	assert.Error(t, err)
	_, err = NewOzonAdapter(OzonOptions{BaseURL: "https://example.invalid"})
	assert.Error(t, err)
}
