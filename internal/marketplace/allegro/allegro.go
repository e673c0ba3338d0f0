// Package allegro is the Allegro REST API client. Every call needs an OAuth
// bearer token.
package allegro

import (
	"context"
	"encoding/json"
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
	MaxPageSize     = 100
	DefaultMinDelay = time.Second

	mediaType = "application/vnd.allegro.public.v1+json"
	offerURL  = "https://allegro.pl/oferta/"
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
	return &Client{
		base: marketplace.NewClient(models.VendorAllegro, opts),
		opts: opts,
	}
}

func (c *Client) Vendor() models.VendorID { return models.VendorAllegro }
func (c *Client) MaxPageSize() int        { return MaxPageSize }

// Search lists offers matching the phrase. Promoted offers come first, as
// Allegro returns them.
func (c *Client) Search(ctx context.Context, p marketplace.SearchParams) (*marketplace.SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, marketplace.ErrEmptyQuery
	}

	page := max(p.Page, 1)
	limit := min(max(p.PageSize, 1), MaxPageSize)

	q := url.Values{}
	q.Set("phrase", p.Query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa((page-1)*limit))
	if p.MinPrice != nil {
		q.Set("price.from", strconv.FormatFloat(*p.MinPrice, 'f', 2, 64))
	}
	if p.MaxPrice != nil {
		q.Set("price.to", strconv.FormatFloat(*p.MaxPrice, 'f', 2, 64))
	}
	if p.Category != "" {
		q.Set("category.id", p.Category)
	}

	body, err := c.get(ctx, "/offers/listing?"+q.Encode())
	if err != nil {
		return nil, err
	}

	out := &marketplace.SearchResult{
		Items: []marketplace.Item{},
		Total: int(gjson.GetBytes(body, "searchMeta.totalCount").Int()),
		Page:  page,
	}
	// Promoted offers come on top of the regular page; limit covers both.
	for _, group := range []string{"items.promoted", "items.regular"} {
		gjson.GetBytes(body, group).ForEach(func(_, v gjson.Result) bool {
			if len(out.Items) >= limit {
				return false
			}
			out.Items = append(out.Items, c.parseOffer(v))
			return true
		})
	}
	return out, nil
}

func (c *Client) GetDetails(ctx context.Context, id string) (*marketplace.Item, error) {
	body, err := c.get(ctx, "/sale/product-offers/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	item := c.parseOffer(gjson.ParseBytes(body))
	return &item, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	token := c.base.Bearer(ctx, c.opts.Tokens, c.opts.AccountName)
	if token == "" {
		return nil, c.base.AuthRequired(c.opts.AccountName)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Accept", mediaType)
	if c.opts.Language != "" {
		header.Set("Accept-Language", strings.ToLower(c.opts.Language)+"-"+strings.ToUpper(c.opts.Language))
	}

	return c.base.Do(ctx, marketplace.Request{
		Method: http.MethodGet,
		URL:    c.opts.BaseURL + path,
		Header: header,
	})
}

func (c *Client) parseOffer(v gjson.Result) marketplace.Item {
	id := v.Get("id").String()
	item := marketplace.Item{
		ID:            id,
		Title:         v.Get("name").String(),
		URL:           offerURL + id,
		Price:         marketplace.ParseMoney(v.Get("sellingMode.price.amount")),
		OriginalPrice: marketplace.ParseMoney(v.Get("sellingMode.referencePrice.amount")),
		Currency:      v.Get("sellingMode.price.currency").String(),
		Orders:        int(v.Get("sellingMode.popularity").Int()),
		Merchant:      marketplace.FirstString([]byte(v.Raw), "seller.login", "seller.id"),
		Category:      v.Get("category.id").String(),
		Raw:           json.RawMessage(v.Raw),
	}
	if item.Currency == "" {
		item.Currency = c.opts.Currency
	}
	if c.opts.TrackingID != "" {
		item.AffiliateURL = item.URL + "?utm_source=" + url.QueryEscape(c.opts.TrackingID)
	}

	v.Get("images").ForEach(func(_, img gjson.Result) bool {
		if u := img.Get("url").String(); u != "" {
			item.Images = append(item.Images, u)
		}
		return true
	})

	if desc := v.Get("description.sections.0.items.0.content"); desc.Exists() {
		item.Description = desc.String()
	}

	switch {
	case v.Get("delivery.availableForFree").Bool():
		item.Shipping = marketplace.Shipping{Type: models.ShippingFree}
	case v.Get("delivery.lowestPrice.amount").Exists():
		cost := marketplace.ParseMoney(v.Get("delivery.lowestPrice.amount"))
		if cost == 0 {
			item.Shipping = marketplace.Shipping{Type: models.ShippingFree}
		} else {
			item.Shipping = marketplace.Shipping{Type: models.ShippingPaid, Cost: cost}
		}
	}
	return item
}
