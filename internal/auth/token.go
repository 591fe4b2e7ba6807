package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

var (
	// ErrMalformedToken means the token does not decode into header.claims.signature
	// with a subject.
	ErrMalformedToken = fmt.Errorf("%w: malformed", apperr.ErrInvalidToken)
	// ErrInvalidSignature means the MAC does not match the payload under the secret.
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", apperr.ErrInvalidToken)
	// ErrTokenExpired means the exp claim has passed.
	ErrTokenExpired = apperr.ErrExpired
)

var signingMethod = jwt.SigningMethodHS256

// TokenService issues and verifies HS256 bearer tokens carrying a username.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService binds the signing secret. A ttl of zero issues tokens
// without an exp claim.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: token signing secret is empty", apperr.ErrMisconfiguration)
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject.
func (s *TokenService) Issue(subject string) (string, error) {
	return issueAt(subject, s.secret, s.now(), s.ttl)
}

// Verify returns the subject of a token signed with the service secret.
func (s *TokenService) Verify(token string) (string, error) {
	return verifyAt(token, s.secret, s.now)
}

// IssueToken signs {sub, iat[, exp]} with secret.
func IssueToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	return issueAt(subject, secret, time.Now(), ttl)
}

// VerifyToken checks the signature and expiry of token and returns its subject.
func VerifyToken(token string, secret []byte) (string, error) {
	return verifyAt(token, secret, time.Now)
}

func issueAt(subject string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", apperr.Validation("token subject is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
}

func verifyAt(token string, secret []byte, now func() time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithTimeFunc(now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case parsed != nil && parsed.Method != nil && parsed.Method.Alg() != signingMethod.Alg():
			// jwt reports a disallowed alg as a signature failure.
			return "", ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformedToken
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
