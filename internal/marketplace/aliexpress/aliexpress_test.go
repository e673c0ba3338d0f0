package aliexpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"okazje-ingest/internal/logger"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/mocks"
	"okazje-ingest/internal/models"
)

const searchResponse = `{
  "aliexpress_affiliate_product_query_response": {
    "resp_result": {
      "resp_code": 200,
      "resp_msg": "success",
      "result": {
        "current_page_no": 1,
        "total_record_count": 2,
        "products": {"product": [
          {
            "product_id": 1005001,
            "product_title": "Wireless Earbuds",
            "product_detail_url": "https://www.aliexpress.com/item/1005001.html",
            "promotion_link": "https://s.click.aliexpress.com/e/abc",
            "product_main_image_url": "https://ae01.alicdn.com/main.jpg",
            "product_small_image_urls": {"string": ["https://ae01.alicdn.com/1.jpg"]},
            "target_sale_price": "100.00",
            "target_original_price": "200.00",
            "target_sale_price_currency": "PLN",
            "evaluate_rate": "90.0%",
            "lastest_volume": 321,
            "shop_name": "Audio Store",
            "first_level_category_name": "Electronics"
          },
          {"product_id": 1005002, "product_title": "Cable", "target_sale_price": "9.99"}
        ]}
      }
    }
  }
}`

func newTestClient(t *testing.T, url string, tokens marketplace.TokenProvider) *Client {
	t.Helper()
	c := New(marketplace.Options{
		BaseURL:    url,
		AppKey:     "12345",
		AppSecret:  "secret",
		Currency:   "PLN",
		Language:   "PL",
		TrackingID: "okazje",
		Tokens:     tokens,
		Log:        logger.Discard(),
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestSign(t *testing.T) {
	params := map[string]string{
		"app_key":     "12345",
		"method":      "aliexpress.affiliate.product.query",
		"keywords":    "phone",
		"sign_method": "md5",
		"timestamp":   "1700000000000",
		"sign":        "ignored",
	}
	assert.Equal(t, "3B3F8D8FB9B235A252019FC0B39EC12B", Sign(params, "secret"))
}

func TestSearch_SignedRequestWithoutToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetValidToken(gomock.Any(), models.VendorAliExpress, "default").Return(nil, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/sync", r.URL.Path)
		assert.Equal(t, methodSearch, q.Get("method"))
		assert.Equal(t, "earbuds", q.Get("keywords"))
		assert.Equal(t, "50", q.Get("page_size"))
		assert.Equal(t, "5000", q.Get("min_sale_price"))
		assert.Empty(t, r.Header.Get("Authorization"))

		params := map[string]string{}
		for k := range q {
			params[k] = q.Get(k)
		}
		assert.Equal(t, Sign(params, "secret"), q.Get("sign"))
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	minPrice := 50.0
	c := newTestClient(t, srv.URL, tokens)
	res, err := c.Search(context.Background(), marketplace.SearchParams{Query: "earbuds", Page: 1, PageSize: 80, MinPrice: &minPrice})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Total)

	item := res.Items[0]
	assert.Equal(t, "1005001", item.ID)
	assert.Equal(t, "Wireless Earbuds", item.Title)
	assert.Equal(t, 100.0, item.Price)
	assert.Equal(t, 200.0, item.OriginalPrice)
	assert.Equal(t, []string{"https://ae01.alicdn.com/main.jpg", "https://ae01.alicdn.com/1.jpg"}, item.Images)
	assert.Equal(t, "https://s.click.aliexpress.com/e/abc", item.AffiliateURL)
	assert.Equal(t, 321, item.Orders)
	assert.Equal(t, "Audio Store", item.Merchant)
	require.NotNil(t, item.Rating)
	assert.InDelta(t, 4.5, *item.Rating, 1e-9)
	assert.NotEmpty(t, item.Raw)

	assert.Nil(t, res.Items[1].Rating)
}

func TestSearch_PrefersOAuthToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetValidToken(gomock.Any(), models.VendorAliExpress, "default").
		Return(&models.OAuthToken{AccessToken: "tok"}, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("sign"))
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, tokens).Search(context.Background(), marketplace.SearchParams{Query: "earbuds"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestSearch_DegradesGracefullyOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_response":{"code":"IncompleteSignature","msg":"The request signature does not conform"}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, nil).Search(context.Background(), marketplace.SearchParams{Query: "earbuds"})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, "IncompleteSignature", res.Error.Code)
	assert.Empty(t, res.Items)
}

func TestSearch_DegradesGracefullyOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, nil).Search(context.Background(), marketplace.SearchParams{Query: "earbuds"})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, http.StatusServiceUnavailable, res.Error.StatusCode)
}

func TestSearch_NetworkErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, nil).Search(context.Background(), marketplace.SearchParams{Query: "earbuds"})
	require.Error(t, err)
	var apiErr *marketplace.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := newTestClient(t, "http://unused", nil).Search(context.Background(), marketplace.SearchParams{Query: "  "})
	assert.ErrorIs(t, err, marketplace.ErrEmptyQuery)
}

func TestGetDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, methodDetails, r.URL.Query().Get("method"))
		assert.Equal(t, "1005001", r.URL.Query().Get("product_ids"))
		w.Write([]byte(`{"aliexpress_affiliate_productdetail_get_response":{"resp_result":{"resp_code":200,
			"result":{"products":{"product":[{"product_id":1005001,"product_title":"Wireless Earbuds","target_sale_price":"100.00"}]}}}}}`))
	}))
	defer srv.Close()

	item, err := newTestClient(t, srv.URL, nil).GetDetails(context.Background(), "1005001")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Earbuds", item.Title)
	assert.Equal(t, "PLN", item.Currency)
}
