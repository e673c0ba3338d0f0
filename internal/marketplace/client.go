package marketplace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"okazje-ingest/internal/models"
	"okazje-ingest/internal/ratelimit"
)

const DefaultTimeout = 30 * time.Second

// maxDetails bounds how much of an error body is kept on an APIError.
const maxDetails = 2048

// Options configures a marketplace client. Fields a vendor does not use are
// ignored.
type Options struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	AccountName string
	TrackingID  string
	Marketplace string
	Region      string
	Currency    string
	Language    string

	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    ratelimit.Limiter
	Tokens     TokenProvider
	Log        logrus.FieldLogger
}

// Request is one outgoing API call. Sign, when set, runs after headers are
// applied and before the request is sent.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header
	Sign   func(req *http.Request, body []byte) error
}

// Client is the HTTP plumbing shared by the marketplace clients: rate
// limiting, per-request timeout and error translation.
type Client struct {
	vendor  models.VendorID
	http    *http.Client
	limiter ratelimit.Limiter
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewClient(id models.VendorID, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		vendor:  id,
		http:    httpClient,
		limiter: opts.Limiter,
		timeout: timeout,
		log:     log.WithField("vendor", id),
		now:     time.Now,
	}
}

// Do sends r and returns the response body. Non-2xx responses come back as
// *APIError; transport failures and timeouts as plain errors.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", c.vendor, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%s build request: %w", c.vendor, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if r.Sign != nil {
		if err := r.Sign(req, r.Body); err != nil {
			return nil, fmt.Errorf("%s sign request: %w", c.vendor, err)
		}
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.vendor, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", c.vendor, err)
	}

	c.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": c.now().Sub(start).String(),
	}).Debug("vendor api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.httpError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) httpError(status int, body []byte) *APIError {
	code := FirstString(body, "code", "error.code", "errors.0.code", "errors.0.errorId", "Errors.0.Code", "error")
	if code == "" {
		code = CodeHTTP
	}
	msg := FirstString(body, "message", "error.message", "errors.0.message", "errors.0.userMessage", "Errors.0.Message", "error_description")
	if msg == "" {
		msg = http.StatusText(status)
	}
	return c.NewError(status, code, msg, string(body))
}

// NewError builds an APIError stamped with the client's vendor and clock.
func (c *Client) NewError(status int, code, message, details string) *APIError {
	if len(details) > maxDetails {
		details = details[:maxDetails]
	}
	return &APIError{
		Vendor:     c.vendor,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Details:    details,
		Timestamp:  c.now(),
	}
}

// AuthRequired is returned by vendors that cannot call the API without an
// OAuth token.
func (c *Client) AuthRequired(account string) *APIError {
	return c.NewError(0, CodeAuthRequired, fmt.Sprintf("no valid OAuth token for account %q", account), "")
}

// Bearer looks up a token and returns it, or "" when the account has none.
// Lookup failures are logged and treated as no token.
func (c *Client) Bearer(ctx context.Context, tokens TokenProvider, account string) string {
	if tokens == nil {
		return ""
	}
	tok, err := tokens.GetValidToken(ctx, c.vendor, account)
	if err != nil {
		c.log.WithError(err).WithField("account", account).Warn("token lookup failed")
		return ""
	}
	if tok == nil {
		return ""
	}
	return tok.AccessToken
}

// FirstString returns the first non-empty string found at any of paths.
func FirstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Exists() && v.Type != gjson.JSON && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ParseMoney reads a price that vendors send either as a number or a
// decimal string. Missing or malformed values read as 0.
func ParseMoney(v gjson.Result) float64 {
	if !v.Exists() {
		return 0
	}
	return v.Float()
}

// Rating returns a pointer to r clamped to 0-5, or nil when the vendor sent
// nothing.
func Rating(v gjson.Result, scale float64) *float64 {
	if !v.Exists() || v.String() == "" {
		return nil
	}
	r := v.Float()
	if scale > 0 && scale != 5 {
		r = r / scale * 5
	}
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return &r
}
