// Package token issues and verifies the signed access/refresh token pair.
// Both token kinds carry the same identity payload but are signed with
// different secrets and lifetimes.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linkup-social/apiserver/types"
)

// ErrInvalidToken is returned for any verification failure. Expired,
// tampered and malformed tokens are deliberately indistinguishable to
// callers.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the payload embedded in both token kinds.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IdentityOf extracts the token payload from a user record.
func IdentityOf(user types.User) Identity {
	return Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

// Claims combines the registered JWT claims with the identity payload.
type Claims struct {
	jwt.RegisteredClaims
	Identity
}

// Issuer signs and verifies token pairs.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token signing secrets are required")
	}
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs an access token for the identity.
func (i *Issuer) IssueAccessToken(identity Identity) (string, error) {
	return sign(identity, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken signs a refresh token for the identity.
func (i *Issuer) IssueRefreshToken(identity Identity) (string, error) {
	return sign(identity, i.refreshSecret, i.refreshTTL)
}

// IssuePair signs a fresh access/refresh token pair for the identity.
func (i *Issuer) IssuePair(identity Identity) (Pair, error) {
	access, err := i.IssueAccessToken(identity)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefreshToken(identity)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken validates the token and returns its identity payload.
func (i *Issuer) VerifyAccessToken(tokenString string) (Identity, error) {
	return verify(tokenString, i.accessSecret)
}

// VerifyRefreshToken validates the token and returns its identity payload.
func (i *Issuer) VerifyRefreshToken(tokenString string) (Identity, error) {
	return verify(tokenString, i.refreshSecret)
}

func sign(identity Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// A random jti keeps tokens issued within the same second
			// distinct, so rotation always invalidates the previous token.
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Identity: identity,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func newTokenID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func verify(tokenString string, secret []byte) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Identity.ID < 1 {
		return Identity{}, ErrInvalidToken
	}
	return claims.Identity, nil
}
