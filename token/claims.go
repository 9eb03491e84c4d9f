package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reserved claim names. Extra claims passed to Issue never override these.
const (
	ClaimSubject   = "sub"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
)

// Claims is the verified payload of a token. Timestamps are epoch milliseconds.
type Claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// GetExpirationTime implements jwt.Claims
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return millisToNumericDate(c.ExpiresAt), nil
}

// GetIssuedAt implements jwt.Claims
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return millisToNumericDate(c.IssuedAt), nil
}

// GetNotBefore implements jwt.Claims
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims
func (c *Claims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims
func (c *Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

func millisToNumericDate(ms int64) *jwt.NumericDate {
	if ms == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.UnixMilli(ms))
}
