// Package oauth serves marketplace access tokens to the vendor clients.
// Tokens are written by the separate OAuth module; this side only reads.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"okazje-ingest/internal/cache"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
)

// ExpirySkew is how long before expiry a token stops being handed out.
const ExpirySkew = 60 * time.Second

type Provider struct {
	tokens repository.TokenStore
	cache  *cache.Cache
	group  singleflight.Group
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewProvider(tokens repository.TokenStore, c *cache.Cache, log logrus.FieldLogger) *Provider {
	return &Provider{
		tokens: tokens,
		cache:  c,
		log:    log,
		now:    time.Now,
	}
}

func cacheKey(vendor models.VendorID, account string) string {
	return fmt.Sprintf("token:%s:%s", vendor, account)
}

// GetValidToken returns a usable token or nil when none exists. Errors are
// reserved for store failures.
func (p *Provider) GetValidToken(ctx context.Context, vendor models.VendorID, account string) (*models.OAuthToken, error) {
	key := cacheKey(vendor, account)
	if cached, ok := p.cache.Get(key); ok {
		tok := cached.(*models.OAuthToken)
		if tok.Usable(p.now(), ExpirySkew) {
			return tok, nil
		}
		p.cache.Delete(key)
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		tok, err := p.tokens.FindActive(ctx, vendor, account)
		if errors.Is(err, repository.ErrNotFound) {
			return (*models.OAuthToken)(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("load %s token: %w", vendor, err)
		}

		now := p.now()
		if !tok.Usable(now, ExpirySkew) {
			p.log.WithFields(logrus.Fields{
				"vendor":    vendor,
				"account":   account,
				"expiresAt": tok.ExpiresAt,
			}).Warn("stored token is expired or about to expire")
			return (*models.OAuthToken)(nil), nil
		}
		p.cache.Set(key, tok, tok.ExpiresAt.Sub(now)-ExpirySkew)
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.OAuthToken), nil
}
