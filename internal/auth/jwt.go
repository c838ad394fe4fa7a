package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"animehub/pkg/config"
)

// ErrInvalidToken covers every reason a bearer token is rejected.
var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

func NewTokenService(cfg config.AuthConfig) TokenService {
	return TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration,
	}
}

type Claims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}

func (ts TokenService) Sign(u *User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ts.Duration)

	claims := Claims{
		UserID:       u.ID,
		Username:     u.Username,
		TokenVersion: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// Parse verifies signature, algorithm, expiry and issuer.
func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return ts.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
