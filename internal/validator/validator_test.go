package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

func ptr[T any](v T) *T { return &v }

func validItem() *marketplace.Item {
	return &marketplace.Item{
		ID:            "1",
		Title:         "Kettle",
		URL:           "https://example.com/1",
		Images:        []string{"https://example.com/1.jpg"},
		Price:         80,
		OriginalPrice: 100,
		Rating:        ptr(4.2),
		Orders:        15,
		Shipping:      marketplace.Shipping{Type: models.ShippingPaid, Cost: 9.99},
	}
}

func TestValidateProduct(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*marketplace.Item)
		filters *models.ProfileFilters
		reason  string
	}{
		{"valid without filters", nil, nil, ""},
		{"missing title", func(i *marketplace.Item) { i.Title = "  " }, nil, "Missing title"},
		{"missing image", func(i *marketplace.Item) { i.Images = []string{""} }, nil, "Missing image"},
		{"missing url", func(i *marketplace.Item) { i.URL = "" }, nil, "Missing product URL"},
		{"below min price", func(i *marketplace.Item) { i.Price = 30 }, &models.ProfileFilters{MinPrice: ptr(50.0)}, "Price below minimum (50)"},
		{"above max price", nil, &models.ProfileFilters{MaxPrice: ptr(49.5)}, "Price above maximum (49.5)"},
		{"low rating", nil, &models.ProfileFilters{MinRating: ptr(4.5)}, "Rating below minimum (4.5)"},
		{"missing rating passes", func(i *marketplace.Item) { i.Rating = nil }, &models.ProfileFilters{MinRating: ptr(4.5)}, ""},
		{"few orders", nil, &models.ProfileFilters{MinOrders: ptr(100)}, "Orders below minimum (100)"},
		{"small discount", nil, &models.ProfileFilters{MinDiscount: ptr(30.0)}, "Discount below minimum (30)"},
		{"missing discount counts as zero", func(i *marketplace.Item) { i.OriginalPrice = 0 }, &models.ProfileFilters{MinDiscount: ptr(1.0)}, "Discount below minimum (1)"},
		{"shipping mismatch", nil, &models.ProfileFilters{ShippingType: models.ShippingFree}, "Shipping type mismatch (free)"},
		{"unknown shipping passes", func(i *marketplace.Item) { i.Shipping = marketplace.Shipping{} }, &models.ProfileFilters{ShippingType: models.ShippingFree}, ""},
		{"any shipping passes", nil, &models.ProfileFilters{ShippingType: models.ShippingAny}, ""},
		{"all filters pass", nil, &models.ProfileFilters{
			MinPrice: ptr(50.0), MaxPrice: ptr(100.0), MinRating: ptr(4.0), MinOrders: ptr(10), MinDiscount: ptr(20.0),
			ShippingType: models.ShippingPaid,
		}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := validItem()
			if tc.mutate != nil {
				tc.mutate(item)
			}
			res := ValidateProduct(item, tc.filters)
			assert.Equal(t, tc.reason == "", res.Valid)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestValidateProduct_FirstViolationWins(t *testing.T) {
	item := validItem()
	item.Title = ""
	item.Price = 1

	res := ValidateProduct(item, &models.ProfileFilters{MinPrice: ptr(50.0)})
	assert.Equal(t, "Missing title", res.Reason)

	item.Title = "Kettle"
	item.Orders = 0
	res = ValidateProduct(item, &models.ProfileFilters{MinPrice: ptr(50.0), MinOrders: ptr(5)})
	assert.Equal(t, "Price below minimum (50)", res.Reason)
}

func validProfile() *models.ImportProfile {
	return &models.ImportProfile{
		VendorID:              models.VendorEbay,
		Name:                  "LEGO deals",
		Enabled:               true,
		Filters:               models.ProfileFilters{SearchQuery: "lego"},
		Mapping:               models.ProfileMapping{TargetMainCategory: "zabawki", TargetSubCategory: "klocki", DefaultStatus: models.ProductStatusDraft},
		MaxItemsPerRun:        50,
		DeduplicationStrategy: models.DedupSkip,
	}
}

func TestValidateProfile(t *testing.T) {
	require.NoError(t, ValidateProfile(validProfile()))

	p := validProfile()
	p.VendorID = "temu"
	assert.ErrorContains(t, ValidateProfile(p), "VendorID")

	p = validProfile()
	p.Filters.SearchQuery = ""
	assert.ErrorContains(t, ValidateProfile(p), "SearchQuery")

	p = validProfile()
	p.MaxItemsPerRun = 0
	assert.Error(t, ValidateProfile(p))

	p = validProfile()
	p.Mapping.DefaultStatus = models.ProductStatusRejected
	assert.ErrorContains(t, ValidateProfile(p), "DefaultStatus")

	p = validProfile()
	p.Filters.MinPrice = ptr(100.0)
	p.Filters.MaxPrice = ptr(50.0)
	assert.ErrorContains(t, ValidateProfile(p), "minPrice")
}
