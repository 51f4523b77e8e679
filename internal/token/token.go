// Package token signs the tracking URLs handed out with each bid so pixel
// calls can be attributed to the request that served the ad.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

// Claims identifies one served ad.
type Claims struct {
	RequestID   string `json:"r"`
	ImpID       string `json:"i"`
	CrID        string `json:"c"`
	CID         string `json:"cid"`
	UserID      string `json:"u"`
	PlacementID string `json:"pl"`
	Format      string `json:"f"`
	Rewarded    bool   `json:"rw,omitempty"`
	IssuedAt    int64  `json:"t"`
}

// Generate signs c. IssuedAt is set to the current time.
func Generate(c Claims, secret []byte) (string, error) {
	c.IssuedAt = time.Now().Unix()
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks the token integrity and expiry and returns its claims.
// A zero ttl disables the expiry check.
func Verify(tok string, secret []byte, ttl time.Duration) (Claims, error) {
	var c Claims
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return c, ErrInvalid
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return c, ErrInvalid
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return c, ErrInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return c, ErrInvalid
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return Claims{}, ErrInvalid
	}
	if ttl > 0 && time.Since(time.Unix(c.IssuedAt, 0)) > ttl {
		return Claims{}, ErrExpired
	}
	return c, nil
}
