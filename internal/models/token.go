package models

import "time"

type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenExpired TokenStatus = "expired"
	TokenRevoked TokenStatus = "revoked"
)

// OAuthToken is owned by the OAuth module; ingestion only reads it.
type OAuthToken struct {
	ID           string      `json:"id" firestore:"-" bson:"_id,omitempty"`
	VendorID     VendorID    `json:"vendorId" firestore:"vendorId" bson:"vendorId"`
	AccountName  string      `json:"accountName" firestore:"accountName" bson:"accountName"`
	AccessToken  string      `json:"-" firestore:"accessToken" bson:"accessToken"`
	RefreshToken string      `json:"-" firestore:"refreshToken,omitempty" bson:"refreshToken,omitempty"`
	ExpiresAt    time.Time   `json:"expiresAt" firestore:"expiresAt" bson:"expiresAt"`
	Status       TokenStatus `json:"status" firestore:"status" bson:"status"`
}

// Usable reports whether the token is active and will not expire within skew.
func (t *OAuthToken) Usable(now time.Time, skew time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.Status == TokenActive && t.ExpiresAt.After(now.Add(skew))
}
