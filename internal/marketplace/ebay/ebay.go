// Package ebay is the eBay Browse API client.
package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

const (
	MaxPageSize     = 200
	DefaultMinDelay = 500 * time.Millisecond

	searchPath = "/buy/browse/v1/item_summary/search"
	itemPath   = "/buy/browse/v1/item/"
)

type Client struct {
	base *marketplace.Client
	opts marketplace.Options
}

var _ marketplace.Adapter = (*Client)(nil)

func New(opts marketplace.Options) *Client {
	if opts.AccountName == "" {
		opts.AccountName = "default"
	}
	if opts.Marketplace == "" {
		opts.Marketplace = "EBAY_PL"
	}
	return &Client{
		base: marketplace.NewClient(models.VendorEbay, opts),
		opts: opts,
	}
}

func (c *Client) Vendor() models.VendorID { return models.VendorEbay }
func (c *Client) MaxPageSize() int        { return MaxPageSize }

func (c *Client) Search(ctx context.Context, p marketplace.SearchParams) (*marketplace.SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, marketplace.ErrEmptyQuery
	}

	page := max(p.Page, 1)
	limit := min(max(p.PageSize, 1), MaxPageSize)

	q := url.Values{}
	q.Set("q", p.Query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa((page-1)*limit))
	if f := c.filter(p); f != "" {
		q.Set("filter", f)
	}
	if p.Category != "" {
		q.Set("category_ids", p.Category)
	}

	body, err := c.get(ctx, searchPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	out := &marketplace.SearchResult{
		Items: []marketplace.Item{},
		Total: int(gjson.GetBytes(body, "total").Int()),
		Page:  page,
	}
	gjson.GetBytes(body, "itemSummaries").ForEach(func(_, v gjson.Result) bool {
		out.Items = append(out.Items, c.parseItem(v))
		return true
	})
	return out, nil
}

// filter builds the Browse API filter expression, e.g.
// price:[50..200],priceCurrency:PLN,maxDeliveryCost:0
func (c *Client) filter(p marketplace.SearchParams) string {
	var parts []string
	if p.MinPrice != nil || p.MaxPrice != nil {
		var lo, hi string
		if p.MinPrice != nil {
			lo = strconv.FormatFloat(*p.MinPrice, 'f', -1, 64)
		}
		if p.MaxPrice != nil {
			hi = strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64)
		}
		parts = append(parts, fmt.Sprintf("price:[%s..%s]", lo, hi))
		if c.opts.Currency != "" {
			parts = append(parts, "priceCurrency:"+c.opts.Currency)
		}
	}
	if p.ShippingType == models.ShippingFree {
		parts = append(parts, "maxDeliveryCost:0")
	}
	return strings.Join(parts, ",")
}

func (c *Client) GetDetails(ctx context.Context, id string) (*marketplace.Item, error) {
	body, err := c.get(ctx, itemPath+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	item := c.parseItem(gjson.ParseBytes(body))
	return &item, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	token := c.base.Bearer(ctx, c.opts.Tokens, c.opts.AccountName)
	if token == "" {
		return nil, c.base.AuthRequired(c.opts.AccountName)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("X-EBAY-C-MARKETPLACE-ID", c.opts.Marketplace)
	if c.opts.TrackingID != "" {
		header.Set("X-EBAY-C-ENDUSERCTX", "affiliateCampaignId="+c.opts.TrackingID)
	}

	return c.base.Do(ctx, marketplace.Request{
		Method: http.MethodGet,
		URL:    c.opts.BaseURL + path,
		Header: header,
	})
}

func (c *Client) parseItem(v gjson.Result) marketplace.Item {
	item := marketplace.Item{
		ID:            v.Get("itemId").String(),
		Title:         v.Get("title").String(),
		Description:   v.Get("shortDescription").String(),
		URL:           v.Get("itemWebUrl").String(),
		AffiliateURL:  v.Get("itemAffiliateWebUrl").String(),
		Price:         marketplace.ParseMoney(v.Get("price.value")),
		OriginalPrice: marketplace.ParseMoney(v.Get("marketingPrice.originalPrice.value")),
		Currency:      v.Get("price.currency").String(),
		Rating:        marketplace.Rating(v.Get("primaryProductReviewRating.averageRating"), 5),
		ReviewCount:   int(v.Get("primaryProductReviewRating.reviewCount").Int()),
		Merchant:      v.Get("seller.username").String(),
		Category:      marketplace.FirstString([]byte(v.Raw), "categories.0.categoryName", "categoryPath"),
		Raw:           json.RawMessage(v.Raw),
	}
	if item.Currency == "" {
		item.Currency = c.opts.Currency
	}
	if sold := v.Get("estimatedAvailabilities.0.estimatedSoldQuantity"); sold.Exists() {
		item.Orders = int(sold.Int())
	}

	if img := v.Get("image.imageUrl").String(); img != "" {
		item.Images = append(item.Images, img)
	}
	v.Get("additionalImages.#.imageUrl").ForEach(func(_, img gjson.Result) bool {
		item.Images = append(item.Images, img.String())
		return true
	})

	if ship := v.Get("shippingOptions.0"); ship.Exists() {
		cost := marketplace.ParseMoney(ship.Get("shippingCost.value"))
		switch {
		case ship.Get("shippingCost").Exists() && cost == 0:
			item.Shipping = marketplace.Shipping{Type: models.ShippingFree}
		case cost > 0:
			item.Shipping = marketplace.Shipping{Type: models.ShippingPaid, Cost: cost}
		}
	}
	return item
}
