package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token fails verification for any reason.
	// The more specific errors below all wrap it, so callers that do not care
	// about the failure kind can match on ErrInvalidToken alone.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenMalformed is returned when the token is not a well-formed JWT.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	// ErrTokenSignatureInvalid is returned when the signature does not verify.
	ErrTokenSignatureInvalid = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	// ErrTokenExpired is returned when the token is past its expiry. A token
	// whose exp equals the current instant is already expired.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// TokenCodec issues and verifies signed session tokens using HS256 with a
// process-wide secret. Tokens carry only {sub, iat, exp}; everything else
// about the session lives in the store.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec returns a TokenCodec signing with the given secret.
// An empty secret is a configuration error; callers must treat it as fatal
// at startup, never as a per-request condition.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("security: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the token lifetime. Cookie Expires must mirror this value.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a session token for subjectID with iat=now and exp=now+TTL.
// Returns the compact token string and its expiry time.
func (c *TokenCodec) Issue(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("security: subject id must not be empty")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies the token's signature, algorithm, and expiry, and returns
// the subject id. The signing method must be exactly HS256; tokens signed
// with any other algorithm (including "none") are rejected. All failures
// return an error wrapping ErrInvalidToken; Decode never panics on
// attacker-controlled input.
func (c *TokenCodec) Decode(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenMalformed
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrTokenSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", ErrInvalidToken
		}
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}
