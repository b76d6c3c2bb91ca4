// Package auth verifies and issues the HS256 bearer tokens presented at the
// websocket handshake and on REST calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWT implements core.Verifier over shared-secret tokens.
type JWT struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWT(secret, issuer string) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWT{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

func (j *JWT) Verify(_ context.Context, credential string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}
	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: token has no subject", domain.ErrAuthentication)
	}
	return domain.Principal{UserID: domain.UserID(claims.Subject), Email: claims.Email}, nil
}

// Issue signs a token for the user valid for ttl.
func (j *JWT) Issue(userID domain.UserID, email string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
