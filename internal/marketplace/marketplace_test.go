package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"okazje-ingest/internal/logger"
	"okazje-ingest/internal/models"
)

type countingLimiter struct{ calls int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	return ctx.Err()
}

func TestClient_DoTranslatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"code":"NotAuthorized","message":"token expired"}]}`))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	c := NewClient(models.VendorAllegro, Options{Limiter: limiter, Log: logger.Discard()})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "/offers/listing"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "NotAuthorized", apiErr.Code)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, models.VendorAllegro, apiErr.Vendor)
	assert.False(t, apiErr.Timestamp.IsZero())
	assert.Equal(t, 1, limiter.calls)
}

func TestClient_DoFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(models.VendorEbay, Options{Log: logger.Discard()})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeHTTP, apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_DoTimeoutIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(models.VendorEbay, Options{Timeout: 20 * time.Millisecond, Log: logger.Discard()})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DoAppliesHeadersAndSign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "signed", r.Header.Get("X-Signature"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(models.VendorAmazon, Options{Log: logger.Discard()})
	body, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte(`{}`),
		Header: http.Header{"Authorization": {"Bearer abc"}},
		Sign: func(req *http.Request, _ []byte) error {
			req.Header.Set("X-Signature", "signed")
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(body, "ok").Bool())
}

func TestParamsFromProfile(t *testing.T) {
	minPrice := 50.0
	profile := &models.ImportProfile{
		MaxItemsPerRun: 500,
		Filters: models.ProfileFilters{
			SearchQuery:    "sluchawki",
			MinPrice:       &minPrice,
			ShippingType:   models.ShippingFree,
			CategoryFilter: "electronics",
		},
	}

	p := ParamsFromProfile(profile, 50)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, "sluchawki", p.Query)
	assert.Equal(t, &minPrice, p.MinPrice)
	assert.Equal(t, models.ShippingFree, p.ShippingType)
	assert.Equal(t, "electronics", p.Category)

	profile.MaxItemsPerRun = 7
	assert.Equal(t, 7, ParamsFromProfile(profile, 50).PageSize)
}

func TestRating(t *testing.T) {
	assert.Nil(t, Rating(gjson.Parse(`{}`).Get("x"), 5))
	assert.InDelta(t, 4.5, *Rating(gjson.Parse(`{"x":90}`).Get("x"), 100), 1e-9)
	assert.InDelta(t, 5.0, *Rating(gjson.Parse(`{"x":"7"}`).Get("x"), 5), 1e-9)
}

type stubAdapter struct{ id models.VendorID }

func (s stubAdapter) Vendor() models.VendorID { return s.id }
func (s stubAdapter) MaxPageSize() int        { return 10 }
func (s stubAdapter) Search(context.Context, SearchParams) (*SearchResult, error) {
	return &SearchResult{}, nil
}
func (s stubAdapter) GetDetails(context.Context, string) (*Item, error) { return &Item{}, nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubAdapter{models.VendorEbay}, stubAdapter{models.VendorAllegro})

	_, ok := r.Get(models.VendorEbay)
	assert.True(t, ok)
	_, ok = r.Get(models.VendorAmazon)
	assert.False(t, ok)
	assert.Equal(t, []models.VendorID{models.VendorAllegro, models.VendorEbay}, r.Vendors())
}
