// Package marketplace holds what the marketplace clients share: the normalized
// item shape, the Adapter contract, search parameters and API errors.
// Each marketplace lives in its own sub-package.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"okazje-ingest/internal/models"
)

var ErrEmptyQuery = errors.New("search query is empty")

// Error codes set by the clients themselves. Vendor-reported codes are
// passed through unchanged.
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeHTTP         = "HTTP_ERROR"
	CodeBadResponse  = "BAD_RESPONSE"
)

// Shipping is what the vendor says about delivery. An empty Type means the
// vendor did not say.
type Shipping struct {
	Type models.ShippingType `json:"type,omitempty"`
	Cost float64             `json:"cost,omitempty"`
}

// Item is one marketplace product after the client translated the vendor's
// JSON. Prices are in major currency units; OriginalPrice is 0 when the
// vendor reports no list price. Rating is on a 0-5 scale.
type Item struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	URL           string          `json:"url"`
	AffiliateURL  string          `json:"affiliateUrl,omitempty"`
	Images        []string        `json:"images"`
	Price         float64         `json:"price"`
	OriginalPrice float64         `json:"originalPrice,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	Rating        *float64        `json:"rating,omitempty"`
	ReviewCount   int             `json:"reviewCount,omitempty"`
	Orders        int             `json:"orders,omitempty"`
	Shipping      Shipping        `json:"shipping"`
	Merchant      string          `json:"merchant,omitempty"`
	Category      string          `json:"category,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// SearchParams is the vendor-neutral search request. Nil bounds are unset.
type SearchParams struct {
	Query        string
	Page         int
	PageSize     int
	MinPrice     *float64
	MaxPrice     *float64
	MinRating    *float64
	MinDiscount  *float64
	MinOrders    *int
	ShippingType models.ShippingType
	Category     string
}

// SearchResult is one page of results. A client that degrades gracefully
// reports a failed call through Error with no items instead of returning it.
type SearchResult struct {
	Items []Item
	Total int
	Page  int
	Error *APIError
}

// APIError is a non-2xx response or an error body from a marketplace.
type APIError struct {
	Vendor     models.VendorID `json:"vendor"`
	StatusCode int             `json:"statusCode,omitempty"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    string          `json:"details,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error %s (status %d): %s", e.Vendor, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error %s: %s", e.Vendor, e.Code, e.Message)
}

// TokenProvider returns a usable OAuth token, or nil when the account has
// none.
type TokenProvider interface {
	GetValidToken(ctx context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error)
}

// Adapter is a marketplace client as seen by the ingestion pipeline.
type Adapter interface {
	Vendor() models.VendorID
	MaxPageSize() int
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	GetDetails(ctx context.Context, id string) (*Item, error)
}

// ParamsFromProfile builds the search request of a run. The page size is
// the profile's item cap bounded by what the vendor returns per page.
func ParamsFromProfile(profile *models.ImportProfile, maxPageSize int) SearchParams {
	size := profile.MaxItemsPerRun
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}

	f := profile.Filters
	return SearchParams{
		Query:        f.SearchQuery,
		Page:         1,
		PageSize:     size,
		MinPrice:     f.MinPrice,
		MaxPrice:     f.MaxPrice,
		MinRating:    f.MinRating,
		MinDiscount:  f.MinDiscount,
		MinOrders:    f.MinOrders,
		ShippingType: f.ShippingType,
		Category:     f.CategoryFilter,
	}
}
