package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Ziyarawebserver/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type appClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the signed JWT pair. Refresh JWTs are only
// half of refresh handling; the store-side single-use record is managed by the
// auth service.
type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) IssueAccess(userID string) (string, error) {
	return s.issue(userID, tokenTypeAccess, s.AccessTTL)
}

func (s *TokenService) IssueRefresh(userID string) (string, error) {
	return s.issue(userID, tokenTypeRefresh, s.RefreshTTL)
}

func (s *TokenService) issue(userID, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := appClaims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// VerifyAccess returns the subject user id of a valid access token.
func (s *TokenService) VerifyAccess(raw string) (string, error) {
	return s.verify(raw, tokenTypeAccess)
}

// VerifyRefresh returns the subject user id of a valid refresh token.
func (s *TokenService) VerifyRefresh(raw string) (string, error) {
	return s.verify(raw, tokenTypeRefresh)
}

func (s *TokenService) verify(raw, wantType string) (string, error) {
	var claims appClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.Secret, nil
		},
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", domain.ErrTokenInvalid
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}
