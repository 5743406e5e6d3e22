package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/care-portal/internal/model"
)

// ErrInvalidToken is returned for tokens that fail verification
var ErrInvalidToken = errors.New("invalid demo token")

// DemoClaims are carried by tokens the gateway mints for demo identities.
type DemoClaims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Demo   bool       `json:"demo"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies demo tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Issue mints a demo token for user.
func (t *TokenIssuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := DemoClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.EffectiveRole(),
		Demo:   true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign demo token: %w", err)
	}
	return token, nil
}

// Parse verifies a demo token and returns its claims.
func (t *TokenIssuer) Parse(tokenStr string) (*DemoClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &DemoClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*DemoClaims)
	if !ok || !token.Valid || !claims.Demo {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsDemo reports whether tokenStr is a valid demo token from this issuer.
func (t *TokenIssuer) IsDemo(tokenStr string) bool {
	_, err := t.Parse(tokenStr)
	return err == nil
}
