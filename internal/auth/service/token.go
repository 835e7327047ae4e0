package service

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v4"
	"github.com/railzwaylabs/waterline/internal/auth/domain"
)

const (
	tokenIssuerName = "waterline"
	defaultTokenTTL = 12 * time.Hour
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newTokenIssuer(secret []byte, ttl time.Duration) *tokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &tokenIssuer{secret: secret, ttl: ttl}
}

func (t *tokenIssuer) issue(user *domain.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (t *tokenIssuer) verify(raw string) (snowflake.ID, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid || claims.Issuer != tokenIssuerName {
		return 0, errors.New("invalid token claims")
	}
	return snowflake.ParseString(claims.Subject)
}
