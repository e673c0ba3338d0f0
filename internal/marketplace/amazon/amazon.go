// Package amazon is the Product Advertising API 5.0 client. Requests are
// signed with AWS Signature Version 4.
package amazon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/tidwall/gjson"

	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

const (
	MaxPageSize     = 10
	DefaultMinDelay = time.Second

	service   = "ProductAdvertisingAPI"
	targetFmt = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.%s"
)

var resources = []string{
	"ItemInfo.Title",
	"ItemInfo.Features",
	"ItemInfo.ByLineInfo",
	"Images.Primary.Large",
	"Images.Variants.Large",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
	"Offers.Listings.DeliveryInfo.IsFreeShippingEligible",
	"Offers.Listings.MerchantInfo",
	"CustomerReviews.Count",
	"CustomerReviews.StarRating",
	"BrowseNodeInfo.BrowseNodes",
}

type Client struct {
	base   *marketplace.Client
	opts   marketplace.Options
	signer *v4.Signer
	now    func() time.Time
}

var _ marketplace.Adapter = (*Client)(nil)

func New(opts marketplace.Options) *Client {
	return &Client{
		base:   marketplace.NewClient(models.VendorAmazon, opts),
		opts:   opts,
		signer: v4.NewSigner(credentials.NewStaticCredentials(opts.AppKey, opts.AppSecret, "")),
		now:    time.Now,
	}
}

func (c *Client) Vendor() models.VendorID { return models.VendorAmazon }
func (c *Client) MaxPageSize() int        { return MaxPageSize }

type searchRequest struct {
	Keywords         string   `json:"Keywords"`
	PartnerTag       string   `json:"PartnerTag"`
	PartnerType      string   `json:"PartnerType"`
	Marketplace      string   `json:"Marketplace,omitempty"`
	ItemCount        int      `json:"ItemCount"`
	ItemPage         int      `json:"ItemPage"`
	SearchIndex      string   `json:"SearchIndex"`
	MinPrice         int64    `json:"MinPrice,omitempty"`
	MaxPrice         int64    `json:"MaxPrice,omitempty"`
	MinReviewsRating int      `json:"MinReviewsRating,omitempty"`
	MinSavingPercent int      `json:"MinSavingPercent,omitempty"`
	DeliveryFlags    []string `json:"DeliveryFlags,omitempty"`
	Resources        []string `json:"Resources"`
}

type getItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace,omitempty"`
	Resources   []string `json:"Resources"`
}

func (c *Client) Search(ctx context.Context, p marketplace.SearchParams) (*marketplace.SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, marketplace.ErrEmptyQuery
	}

	req := searchRequest{
		Keywords:    p.Query,
		PartnerTag:  c.opts.TrackingID,
		PartnerType: "Associates",
		Marketplace: c.opts.Marketplace,
		ItemCount:   min(max(p.PageSize, 1), MaxPageSize),
		ItemPage:    max(p.Page, 1),
		SearchIndex: "All",
		Resources:   resources,
	}
	if p.Category != "" {
		req.SearchIndex = p.Category
	}
	if p.MinPrice != nil {
		req.MinPrice = int64(math.Round(*p.MinPrice * 100))
	}
	if p.MaxPrice != nil {
		req.MaxPrice = int64(math.Round(*p.MaxPrice * 100))
	}
	if p.MinRating != nil {
		req.MinReviewsRating = int(math.Floor(*p.MinRating))
	}
	if p.MinDiscount != nil {
		req.MinSavingPercent = int(math.Ceil(*p.MinDiscount))
	}
	if p.ShippingType == models.ShippingFree {
		req.DeliveryFlags = []string{"FreeShipping"}
	}

	body, err := c.call(ctx, "SearchItems", "/paapi5/searchitems", req)
	if err != nil {
		return nil, err
	}

	out := &marketplace.SearchResult{
		Items: []marketplace.Item{},
		Total: int(gjson.GetBytes(body, "SearchResult.TotalResultCount").Int()),
		Page:  req.ItemPage,
	}
	gjson.GetBytes(body, "SearchResult.Items").ForEach(func(_, v gjson.Result) bool {
		out.Items = append(out.Items, c.parseItem(v))
		return true
	})
	return out, nil
}

func (c *Client) GetDetails(ctx context.Context, id string) (*marketplace.Item, error) {
	body, err := c.call(ctx, "GetItems", "/paapi5/getitems", getItemsRequest{
		ItemIds:     []string{id},
		PartnerTag:  c.opts.TrackingID,
		PartnerType: "Associates",
		Marketplace: c.opts.Marketplace,
		Resources:   resources,
	})
	if err != nil {
		return nil, err
	}

	v := gjson.GetBytes(body, "ItemsResult.Items.0")
	if !v.Exists() {
		return nil, c.base.NewError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("item %s not found", id), "")
	}
	item := c.parseItem(v)
	return &item, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload interface{}) ([]byte, error) {
	if c.opts.AppKey == "" || c.opts.AppSecret == "" {
		return nil, c.base.AuthRequired(c.opts.AccountName)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("amazon encode %s: %w", operation, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Content-Encoding", "amz-1.0")
	header.Set("X-Amz-Target", fmt.Sprintf(targetFmt, operation))

	body, err := c.base.Do(ctx, marketplace.Request{
		Method: http.MethodPost,
		URL:    c.opts.BaseURL + path,
		Body:   data,
		Header: header,
		Sign: func(req *http.Request, body []byte) error {
			_, err := c.signer.Sign(req, bytes.NewReader(body), service, c.opts.Region, c.now())
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	// PA-API can answer 200 with only an Errors array.
	if errs := gjson.GetBytes(body, "Errors"); errs.Exists() &&
		!gjson.GetBytes(body, "SearchResult").Exists() && !gjson.GetBytes(body, "ItemsResult").Exists() {
		code := errs.Get("0.Code").String()
		if code == "NoResults" {
			return []byte(`{}`), nil
		}
		return nil, c.base.NewError(http.StatusOK, code, errs.Get("0.Message").String(), errs.Raw)
	}
	return body, nil
}

func (c *Client) parseItem(v gjson.Result) marketplace.Item {
	listing := v.Get("Offers.Listings.0")
	item := marketplace.Item{
		ID:            v.Get("ASIN").String(),
		Title:         v.Get("ItemInfo.Title.DisplayValue").String(),
		URL:           v.Get("DetailPageURL").String(),
		AffiliateURL:  v.Get("DetailPageURL").String(),
		Price:         marketplace.ParseMoney(listing.Get("Price.Amount")),
		OriginalPrice: marketplace.ParseMoney(listing.Get("SavingBasis.Amount")),
		Currency:      listing.Get("Price.Currency").String(),
		Rating:        marketplace.Rating(v.Get("CustomerReviews.StarRating.Value"), 5),
		ReviewCount:   int(v.Get("CustomerReviews.Count").Int()),
		Merchant:      listing.Get("MerchantInfo.Name").String(),
		Category:      v.Get("BrowseNodeInfo.BrowseNodes.0.DisplayName").String(),
		Raw:           json.RawMessage(v.Raw),
	}
	if item.Currency == "" {
		item.Currency = c.opts.Currency
	}

	if img := v.Get("Images.Primary.Large.URL").String(); img != "" {
		item.Images = append(item.Images, img)
	}
	v.Get("Images.Variants.#.Large.URL").ForEach(func(_, img gjson.Result) bool {
		item.Images = append(item.Images, img.String())
		return true
	})

	var features []string
	v.Get("ItemInfo.Features.DisplayValues").ForEach(func(_, f gjson.Result) bool {
		features = append(features, f.String())
		return true
	})
	item.Description = strings.Join(features, " ")

	if free := listing.Get("DeliveryInfo.IsFreeShippingEligible"); free.Exists() {
		if free.Bool() {
			item.Shipping.Type = models.ShippingFree
		} else {
			item.Shipping.Type = models.ShippingPaid
		}
	}
	return item
}
