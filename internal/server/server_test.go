package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/oracle"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const searchFixture = `{
  "total": 120,
  "itemSummaries": [
    {
      "itemId": "v1|111|0",
      "title": "Rolex Submariner 126610LN Full Set",
      "itemWebUrl": "https://www.ebay.com/itm/111",
      "price": {"value": "8000.00", "currency": "USD"},
      "condition": "Pre-owned"
    },
    {
      "itemId": "v1|222|0",
      "title": "Rolex Submariner 126610LN Unworn",
      "itemWebUrl": "https://www.ebay.com/itm/222",
      "price": {"value": "10300.00", "currency": "USD"},
      "condition": "Pre-owned"
    }
  ]
}`

const itemFixture = `{
  "itemId": "v1|111|0",
  "title": "Rolex Submariner 126610LN Full Set",
  "itemWebUrl": "https://www.ebay.com/itm/111",
  "price": {"value": "8000.00", "currency": "USD"},
  "condition": "Pre-owned",
  "localizedAspects": [
    {"name": "Brand", "value": "Rolex"}
  ]
}`

// newTestRouter wires the handler against a fake eBay backend and a mock
// oracle quoting a fixed market price.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/buy/browse/v1/item/") {
			w.Write([]byte(itemFixture))
			return
		}
		w.Write([]byte(searchFixture))
	}))
	t.Cleanup(ts.Close)

	market := 11000.0
	mockOracle := &oracle.Mock{
		WatchPriceFunc: func(ctx context.Context, brand, model, title string) (oracle.Quote, error) {
			return oracle.Quote{MarketPrice: &market, Source: "Watch Database"}, nil
		},
	}

	h := &Handler{
		Search: ebay.NewClient(ebay.ClientOpts{BaseURL: ts.URL, StaticToken: "test-token"}),
		Oracle: mockOracle,
		Cfg:    arb.Config{},
	}
	return NewRouter(h)
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(t)

	w, envelope := doRequest(t, router, http.MethodPost, "/api/analyze",
		`{"query": "rolex submariner", "limit": 10}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, envelope.Code)
	assert.Equal(t, "ok", envelope.Message)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	assert.Equal(t, "rolex submariner", resp.Query)
	assert.Equal(t, "watch", string(resp.ItemType))
	require.Len(t, resp.Listings, 2)
	// $8000 against an $11000 market clears the 10% default threshold
	assert.Equal(t, 1, resp.Summary.Undervalued)
	assert.Equal(t, 1, resp.Summary.FairValue)

	assert.EqualValues(t, 120, envelope.Meta["total_found"])
}

func TestAnalyze_ThresholdOverride(t *testing.T) {
	router := newTestRouter(t)

	// A 30% threshold pushes the ~21% spread into the fair band
	w, envelope := doRequest(t, router, http.MethodPost, "/api/analyze",
		`{"query": "rolex submariner", "threshold_pct": 30}`)

	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	assert.Equal(t, 0, resp.Summary.Undervalued)
	assert.Equal(t, 2, resp.Summary.FairValue)
}

func TestAnalyze_ZeroTaxRateOverride(t *testing.T) {
	router := newTestRouter(t)

	// An explicit zero tax rate must not be replaced by the 9% default:
	// the all-in cost comes out as exactly price + shipping.
	w, envelope := doRequest(t, router, http.MethodPost, "/api/analyze",
		`{"query": "rolex submariner", "tax_rate": 0}`)

	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	require.Len(t, resp.Listings, 2)
	for _, r := range resp.Listings {
		assert.Equal(t, r.Listing.Price+r.Listing.Shipping, r.Opportunity.AllInCostUSD, "listing %s", r.Listing.ItemID)
	}
}

func TestAnalyze_ExplicitItemType(t *testing.T) {
	router := newTestRouter(t)

	_, envelope := doRequest(t, router, http.MethodPost, "/api/analyze",
		`{"query": "charizard", "item_type": "trading_card"}`)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	assert.Equal(t, "trading_card", string(resp.ItemType))
}

func TestAnalyze_MissingQuery(t *testing.T) {
	router := newTestRouter(t)

	w, envelope := doRequest(t, router, http.MethodPost, "/api/analyze", `{"limit": 5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, envelope.Code)
}

func TestAnalyze_SearchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors": []}`, http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	h := &Handler{
		Search: ebay.NewClient(ebay.ClientOpts{BaseURL: ts.URL, StaticToken: "test-token"}),
		Oracle: &oracle.Mock{},
		Cfg:    arb.Config{},
	}
	router := NewRouter(h)

	w, envelope := doRequest(t, router, http.MethodPost, "/api/analyze", `{"query": "rolex"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "ebay search failed", envelope.Message)
}

func TestGetItem(t *testing.T) {
	router := newTestRouter(t)

	w, envelope := doRequest(t, router, http.MethodGet, "/api/items/v1|111|0", "")

	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var item ebay.Item
	require.NoError(t, json.Unmarshal(data, &item))

	assert.Equal(t, "v1|111|0", item.ItemID)
	assert.Equal(t, 8000.0, item.Price)
	assert.Equal(t, "Rolex", item.Aspects["Brand"])
}
