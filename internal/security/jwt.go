package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"internportal/internal/common"
)

type JWTProvider struct {
	secret []byte
	now    func() time.Time
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), now: time.Now}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

func (p *JWTProvider) Generate(accountID common.UUID, role string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := p.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := Claims{
		Role: strings.TrimSpace(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm and expiry. Every failure collapses to
// the same error so callers cannot tell a forged token from an expired one.
func (p *JWTProvider) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
