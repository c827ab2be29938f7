package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropsource/storefront/utils"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// IdentityClaims is the caller identity carried by an upstream-issued bearer token
type IdentityClaims struct {
	UserID    string
	Email     *string
	ExpiresAt time.Time
}

// IdentityTokenService verifies bearer tokens minted by the identity provider
type IdentityTokenService interface {
	Verify(token string) (*IdentityClaims, error)
	Issue(userID string, email *string, ttl time.Duration) (string, error)
}

// IdentityTokenServiceImpl uses a shared HS256 secret
type IdentityTokenServiceImpl struct {
	secretKey []byte
	issuer    string
}

func NewIdentityTokenService(secretKey, issuer string) (IdentityTokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	return &IdentityTokenServiceImpl{secretKey: []byte(secretKey), issuer: issuer}, nil
}

// Issue mints a token; used by tooling and tests, the storefront itself only verifies
func (s *IdentityTokenServiceImpl) Issue(userID string, email *string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if email != nil && *email != "" {
		claims["email"] = *email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *IdentityTokenServiceImpl) Verify(token string) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, ErrTokenInvalid
	}

	out := &IdentityClaims{UserID: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		out.Email = &email
	}
	return out, nil
}
