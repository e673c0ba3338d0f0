// Package validator checks fetched items against profile filters and admin
// input against the profile schema.
package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"okazje-ingest/internal/mapper"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

// Result is the outcome of ValidateProduct. Reason names the first failed
// check only.
type Result struct {
	Valid  bool
	Reason string
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...interface{}) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// ValidateProduct runs the required-field checks and then the profile
// filters, stopping at the first violation.
func ValidateProduct(item *marketplace.Item, filters *models.ProfileFilters) Result {
	if strings.TrimSpace(item.Title) == "" {
		return fail("Missing title")
	}
	if !hasImage(item.Images) {
		return fail("Missing image")
	}
	if strings.TrimSpace(item.URL) == "" {
		return fail("Missing product URL")
	}
	if filters == nil {
		return ok()
	}

	if filters.MinPrice != nil && item.Price < *filters.MinPrice {
		return fail("Price below minimum (%s)", num(*filters.MinPrice))
	}
	if filters.MaxPrice != nil && item.Price > *filters.MaxPrice {
		return fail("Price above maximum (%s)", num(*filters.MaxPrice))
	}
	if filters.MinRating != nil && item.Rating != nil && *item.Rating < *filters.MinRating {
		return fail("Rating below minimum (%s)", num(*filters.MinRating))
	}
	if filters.MinOrders != nil && item.Orders < *filters.MinOrders {
		return fail("Orders below minimum (%d)", *filters.MinOrders)
	}
	if filters.MinDiscount != nil {
		discount := 0
		if d := mapper.CalculateDiscount(item.OriginalPrice, item.Price); d != nil {
			discount = *d
		}
		if float64(discount) < *filters.MinDiscount {
			return fail("Discount below minimum (%s)", num(*filters.MinDiscount))
		}
	}
	if !shippingMatches(filters.ShippingType, item.Shipping.Type) {
		return fail("Shipping type mismatch (%s)", filters.ShippingType)
	}
	return ok()
}

func hasImage(images []string) bool {
	for _, img := range images {
		if strings.TrimSpace(img) != "" {
			return true
		}
	}
	return false
}

// shippingMatches passes when the filter is unset or any, or when the
// vendor did not say how the item ships.
func shippingMatches(want, got models.ShippingType) bool {
	switch want {
	case models.ShippingFree, models.ShippingPaid:
		return got == "" || got == want
	}
	return true
}

// num prints filter bounds without trailing zeros: 50, 12.5.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateProfile checks an import profile submitted by an admin.
func ValidateProfile(p *models.ImportProfile) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid profile: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	f := p.Filters
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return errors.New("invalid profile: filters.minPrice must not exceed filters.maxPrice")
	}
	return nil
}
