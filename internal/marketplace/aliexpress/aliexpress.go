// Package aliexpress is the AliExpress affiliate (TOP API) client.
package aliexpress

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
)

const (
	MaxPageSize     = 50
	DefaultMinDelay = 500 * time.Millisecond

	methodSearch  = "aliexpress.affiliate.product.query"
	methodDetails = "aliexpress.affiliate.productdetail.get"
)

type Client struct {
	base *marketplace.Client
	opts marketplace.Options
	now  func() time.Time
}

var _ marketplace.Adapter = (*Client)(nil)

func New(opts marketplace.Options) *Client {
	if opts.AccountName == "" {
		opts.AccountName = "default"
	}
	return &Client{
		base: marketplace.NewClient(models.VendorAliExpress, opts),
		opts: opts,
		now:  time.Now,
	}
}

func (c *Client) Vendor() models.VendorID { return models.VendorAliExpress }
func (c *Client) MaxPageSize() int        { return MaxPageSize }

// Search runs a product query. API failures are reported on the result
// rather than returned; only transport errors come back as err.
func (c *Client) Search(ctx context.Context, p marketplace.SearchParams) (*marketplace.SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, marketplace.ErrEmptyQuery
	}

	params := map[string]string{
		"keywords":  p.Query,
		"page_no":   strconv.Itoa(max(p.Page, 1)),
		"page_size": strconv.Itoa(min(max(p.PageSize, 1), MaxPageSize)),
	}
	if p.MinPrice != nil {
		params["min_sale_price"] = strconv.FormatInt(toCents(*p.MinPrice), 10)
	}
	if p.MaxPrice != nil {
		params["max_sale_price"] = strconv.FormatInt(toCents(*p.MaxPrice), 10)
	}
	if p.Category != "" {
		params["category_ids"] = p.Category
	}

	body, err := c.call(ctx, methodSearch, params)
	if err != nil {
		var apiErr *marketplace.APIError
		if errors.As(err, &apiErr) {
			return &marketplace.SearchResult{Items: []marketplace.Item{}, Page: p.Page, Error: apiErr}, nil
		}
		return nil, err
	}

	result := gjson.GetBytes(body, "aliexpress_affiliate_product_query_response.resp_result")
	if apiErr := c.respError(result); apiErr != nil {
		return &marketplace.SearchResult{Items: []marketplace.Item{}, Page: p.Page, Error: apiErr}, nil
	}

	out := &marketplace.SearchResult{
		Items: []marketplace.Item{},
		Total: int(result.Get("result.total_record_count").Int()),
		Page:  int(result.Get("result.current_page_no").Int()),
	}
	result.Get("result.products.product").ForEach(func(_, v gjson.Result) bool {
		out.Items = append(out.Items, c.parseItem(v))
		return true
	})
	if out.Page == 0 {
		out.Page = max(p.Page, 1)
	}
	return out, nil
}

func (c *Client) GetDetails(ctx context.Context, id string) (*marketplace.Item, error) {
	body, err := c.call(ctx, methodDetails, map[string]string{"product_ids": id})
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "aliexpress_affiliate_productdetail_get_response.resp_result")
	if apiErr := c.respError(result); apiErr != nil {
		return nil, apiErr
	}
	product := result.Get("result.products.product.0")
	if !product.Exists() {
		return nil, c.base.NewError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("product %s not found", id), "")
	}
	item := c.parseItem(product)
	return &item, nil
}

// call sends one TOP API method. A token, when available, goes in the
// Authorization header; otherwise the request is signed with the app secret.
func (c *Client) call(ctx context.Context, method string, extra map[string]string) ([]byte, error) {
	params := map[string]string{
		"app_key":         c.opts.AppKey,
		"method":          method,
		"timestamp":       strconv.FormatInt(c.now().UnixMilli(), 10),
		"target_currency": c.opts.Currency,
		"target_language": c.opts.Language,
	}
	if c.opts.TrackingID != "" {
		params["tracking_id"] = c.opts.TrackingID
	}
	for k, v := range extra {
		params[k] = v
	}
	for k, v := range params {
		if v == "" {
			delete(params, k)
		}
	}

	header := http.Header{}
	if token := c.base.Bearer(ctx, c.opts.Tokens, c.opts.AccountName); token != "" {
		header.Set("Authorization", "Bearer "+token)
	} else {
		params["sign_method"] = "md5"
		params["sign"] = Sign(params, c.opts.AppSecret)
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}

	body, err := c.base.Do(ctx, marketplace.Request{
		Method: http.MethodGet,
		URL:    c.opts.BaseURL + "/sync?" + q.Encode(),
		Header: header,
	})
	if err != nil {
		return nil, err
	}

	if e := gjson.GetBytes(body, "error_response"); e.Exists() {
		msg := e.Get("msg").String()
		if sub := e.Get("sub_msg").String(); sub != "" {
			msg += ": " + sub
		}
		return nil, c.base.NewError(http.StatusOK, e.Get("code").String(), msg, e.Raw)
	}
	return body, nil
}

func (c *Client) respError(result gjson.Result) *marketplace.APIError {
	if !result.Exists() {
		return c.base.NewError(http.StatusOK, marketplace.CodeBadResponse, "missing resp_result", "")
	}
	code := result.Get("resp_code").Int()
	if code != 0 && code != 200 {
		return c.base.NewError(http.StatusOK, strconv.FormatInt(code, 10), result.Get("resp_msg").String(), result.Raw)
	}
	return nil
}

func (c *Client) parseItem(v gjson.Result) marketplace.Item {
	item := marketplace.Item{
		ID:            v.Get("product_id").String(),
		Title:         v.Get("product_title").String(),
		URL:           v.Get("product_detail_url").String(),
		AffiliateURL:  v.Get("promotion_link").String(),
		Price:         marketplace.ParseMoney(v.Get("target_sale_price")),
		OriginalPrice: marketplace.ParseMoney(v.Get("target_original_price")),
		Currency:      v.Get("target_sale_price_currency").String(),
		Orders:        int(v.Get("lastest_volume").Int()),
		Merchant:      v.Get("shop_name").String(),
		Category:      marketplace.FirstString([]byte(v.Raw), "second_level_category_name", "first_level_category_name"),
		Raw:           json.RawMessage(v.Raw),
	}
	if item.Price == 0 {
		item.Price = marketplace.ParseMoney(v.Get("app_sale_price"))
	}
	if item.Currency == "" {
		item.Currency = c.opts.Currency
	}
	if item.Merchant == "" {
		item.Merchant = v.Get("shop_id").String()
	}

	if main := v.Get("product_main_image_url").String(); main != "" {
		item.Images = append(item.Images, main)
	}
	v.Get("product_small_image_urls.string").ForEach(func(_, img gjson.Result) bool {
		item.Images = append(item.Images, img.String())
		return true
	})

	// evaluate_rate is a positive-feedback percentage such as "92.3%".
	if rate := strings.TrimSuffix(v.Get("evaluate_rate").String(), "%"); rate != "" {
		if pct, err := strconv.ParseFloat(rate, 64); err == nil {
			r := math.Min(math.Max(pct/100*5, 0), 5)
			item.Rating = &r
		}
	}
	return item
}

// Sign computes the TOP API md5 signature: the uppercase hex MD5 of the
// secret, every parameter name and value in name order, and the secret
// again. The sign parameter itself is excluded.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
