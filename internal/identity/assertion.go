package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields signed by the host client.
// Subject carries the stable external identity id.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AssertionService signs and verifies HS256 identity assertions with a shared secret.
type AssertionService struct {
	secret    []byte
	freshness time.Duration
	now       func() time.Time
}

// NewAssertionService creates an assertion service. Assertions issued more than freshness
// ago are rejected.
func NewAssertionService(secret string, freshness time.Duration) *AssertionService {
	return &AssertionService{
		secret:    []byte(secret),
		freshness: freshness,
		now:       time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *AssertionService) WithClock(now func() time.Time) *AssertionService {
	s.now = now
	return s
}

// Sign issues an assertion for externalID. Host clients and tests use it.
func (s *AssertionService) Sign(externalID, displayName string, issuedAt time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("identity secret not configured")
	}
	claims := Claims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  externalID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the signature, issued-at and freshness of an assertion.
func (s *AssertionService) Verify(assertion string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("identity secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	var claims Claims
	token, err := parser.ParseWithClaims(assertion, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse assertion: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid assertion")
	}
	if claims.IssuedAt == nil {
		return nil, errors.New("assertion missing iat")
	}
	if age := s.now().Sub(claims.IssuedAt.Time); age > s.freshness {
		return nil, fmt.Errorf("assertion expired: issued %s ago", age.Truncate(time.Second))
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("assertion missing subject")
	}
	return &claims, nil
}
