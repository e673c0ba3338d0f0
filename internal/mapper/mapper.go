// Package mapper turns normalized vendor items into catalog products and
// deals. Everything here is pure apart from Config.Now.
package mapper

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

const (
	MaxNameLength        = 200
	MaxDescriptionLength = 300

	// DealMinDiscount is the discount at which an item always becomes a deal.
	DealMinDiscount = 20
)

// Config carries the per-run mapping settings.
type Config struct {
	Source       models.VendorID
	Mapping      models.ProfileMapping
	ImportedBy   string
	ImportRunID  string
	StoreRawData bool
	Now          func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Config) markup() float64 {
	if c.Mapping.PriceMarkup == nil {
		return 0
	}
	return *c.Mapping.PriceMarkup
}

// ApplyMarkup raises price by markup percent, rounded to two decimals.
func ApplyMarkup(price, markup float64) float64 {
	return round2(price * (1 + markup/100))
}

// CalculateDiscount returns the rounded percentage off original, or nil
// when there is no usable original price.
func CalculateDiscount(original, current float64) *int {
	if original <= 0 {
		return nil
	}
	d := int(math.Round((original - current) / original * 100))
	return &d
}

// IsDealWorthy reports whether an item qualifies for a deal: a discount of
// at least DealMinDiscount, or any list price above the current one.
func IsDealWorthy(original, current float64) bool {
	if d := CalculateDiscount(original, current); d != nil && *d >= DealMinDiscount {
		return true
	}
	return original > 0 && original > current
}

// Truncate cuts s to at most n runes, ending it with "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// MapToProduct builds the catalog product for item.
func MapToProduct(item *marketplace.Item, cfg Config) *models.Product {
	now := cfg.now()
	markup := cfg.markup()
	name := cleanTitle(item.Title)

	p := &models.Product{
		Name:               Truncate(name, MaxNameLength),
		Description:        Truncate(shortDescription(item, name), MaxDescriptionLength),
		LongDescription:    strings.TrimSpace(item.Description),
		Price:              ApplyMarkup(item.Price, markup),
		DiscountPercent:    CalculateDiscount(item.OriginalPrice, item.Price),
		Gallery:            Gallery(item.Images, cfg.Source),
		AffiliateURL:       affiliateURL(item),
		RatingCard:         ratingCard(item),
		MainCategorySlug:   cfg.Mapping.TargetMainCategory,
		SubCategorySlug:    cfg.Mapping.TargetSubCategory,
		SubSubCategorySlug: cfg.Mapping.TargetSubSubCategory,
		Status:             defaultStatus(cfg.Mapping.DefaultStatus),
		Metadata: models.ProductMetadata{
			Source:      cfg.Source,
			OriginalID:  item.ID,
			ImportedAt:  now,
			ImportedBy:  cfg.ImportedBy,
			ImportRunID: cfg.ImportRunID,
			Merchant:    item.Merchant,
			Shipping:    shippingLabel(item.Shipping),
			Orders:      item.Orders,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if item.OriginalPrice > 0 {
		op := ApplyMarkup(item.OriginalPrice, markup)
		p.OriginalPrice = &op
	}
	if len(p.Gallery) > 0 {
		p.Image = p.Gallery[0].URL
	}
	if cfg.StoreRawData && len(item.Raw) > 0 {
		p.Metadata.RawDataStored = true
		p.Metadata.RawData = string(item.Raw)
	}
	return p
}

// MapToDeal builds the deal for item, or returns nil when the item is not
// discounted enough.
func MapToDeal(item *marketplace.Item, cfg Config, postedBy string) *models.Deal {
	if !IsDealWorthy(item.OriginalPrice, item.Price) {
		return nil
	}
	markup := cfg.markup()
	name := cleanTitle(item.Title)
	original := ApplyMarkup(item.OriginalPrice, markup)

	d := &models.Deal{
		Title:              Truncate(name, MaxNameLength),
		Description:        Truncate(shortDescription(item, name), MaxDescriptionLength),
		Price:              ApplyMarkup(item.Price, markup),
		OriginalPrice:      &original,
		DiscountPercent:    CalculateDiscount(item.OriginalPrice, item.Price),
		Link:               affiliateURL(item),
		MainCategorySlug:   cfg.Mapping.TargetMainCategory,
		SubCategorySlug:    cfg.Mapping.TargetSubCategory,
		SubSubCategorySlug: cfg.Mapping.TargetSubSubCategory,
		PostedBy:           postedBy,
		Status:             models.DealStatusDraft,
		Source:             cfg.Source,
		OriginalID:         item.ID,
		CreatedAt:          cfg.now(),
	}
	if imgs := Gallery(item.Images, cfg.Source); len(imgs) > 0 {
		d.Image = imgs[0].URL
	}
	return d
}

// Gallery turns image URLs into gallery entries. Blank and repeated URLs
// are dropped; the first remaining image is primary.
func Gallery(images []string, source models.VendorID) []models.ProductImageEntry {
	gallery := make([]models.ProductImageEntry, 0, len(images))
	seen := make(map[string]bool, len(images))
	for _, raw := range images {
		u := strings.TrimSpace(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		gallery = append(gallery, models.ProductImageEntry{
			URL:       u,
			IsPrimary: len(gallery) == 0,
			Source:    string(source),
			Order:     len(gallery),
		})
	}
	return gallery
}

// cleanTitle NFC-normalizes a vendor title and collapses whitespace runs.
// Name limits apply to its result, not to the raw title.
func cleanTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func shortDescription(item *marketplace.Item, name string) string {
	if d := strings.Join(strings.Fields(norm.NFC.String(item.Description)), " "); d != "" {
		return d
	}
	return name
}

func affiliateURL(item *marketplace.Item) string {
	if item.AffiliateURL != "" {
		return item.AffiliateURL
	}
	return item.URL
}

func ratingCard(item *marketplace.Item) models.RatingCard {
	var avg float64
	if item.Rating != nil {
		avg = round2(*item.Rating)
	}
	return models.RatingCard{
		Average:       avg,
		Count:         item.ReviewCount,
		Durability:    avg,
		EaseOfUse:     avg,
		ValueForMoney: avg,
		Versatility:   avg,
	}
}

func shippingLabel(s marketplace.Shipping) string {
	switch s.Type {
	case models.ShippingFree:
		return string(models.ShippingFree)
	case models.ShippingPaid:
		if s.Cost > 0 {
			return string(models.ShippingPaid) + ":" + formatPrice(s.Cost)
		}
		return string(models.ShippingPaid)
	}
	return ""
}

func defaultStatus(s models.ProductStatus) models.ProductStatus {
	if s == "" {
		return models.ProductStatusDraft
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
