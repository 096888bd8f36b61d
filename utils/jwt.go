package utils

import (
	"TicketMarket/configs"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type JwtCustomClaim struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *JwtCustomClaim) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func GenerateToken(accountID, email, name string, roles []string, ttl time.Duration) (string, *JwtCustomClaim, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("invalid token ttl %s", ttl)
	}
	secretKey := configs.GetJWTSecret()
	if secretKey == "" {
		return "", nil, errors.New("jwt secret is not configured")
	}

	now := time.Now()
	claims := &JwtCustomClaim{
		Email: email,
		Name:  name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    configs.GetJWTIssuer(),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", nil, err
	}
	return tok, claims, nil
}

func ExtractCustomClaims(tokenStr string) (*JwtCustomClaim, error) {
	secretKey := configs.GetJWTSecret()
	token, err := jwt.ParseWithClaims(tokenStr, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(configs.GetJWTIssuer()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
