package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

// NewTokenManager builds a new manager. A nil clock falls back to the system clock.
func NewTokenManager(secret string, ttl time.Duration, clock Clock) *TokenManager {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	if clock == nil {
		clock = SystemClock
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: clock}
}

// Claims describes JWT payload: sub, iat and exp.
type Claims struct {
	jwt.RegisteredClaims
}

// TTL returns the lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a token for subject using the manager's clock.
func (tm *TokenManager) Issue(subject string) (string, time.Time, error) {
	return tm.IssueAt(subject, tm.now())
}

// IssueAt builds and signs a token for subject as if issued at now.
// Token timestamps have second precision, so now is truncated first.
func (tm *TokenManager) IssueAt(subject string, now time.Time) (string, time.Time, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate returns the subject of a token using the manager's clock.
func (tm *TokenManager) Validate(tokenStr string) (string, error) {
	return tm.ValidateAt(tokenStr, tm.now())
}

// ValidateAt checks the signature before trusting any claim, then checks expiry against now.
// The signature is the segment after the last dot and must be canonical base64url,
// so no two encodings of the same MAC are accepted.
func (tm *TokenManager) ValidateAt(tokenStr string, now time.Time) (string, error) {
	dot := strings.LastIndexByte(tokenStr, '.')
	if dot < 0 {
		return "", ErrTokenMalformed
	}
	signingInput, encodedSig := tokenStr[:dot], tokenStr[dot+1:]

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	sig, err := parser.DecodeSegment(encodedSig)
	if err != nil || base64.RawURLEncoding.EncodeToString(sig) != encodedSig {
		return "", ErrInvalidSignature
	}
	if err := jwt.SigningMethodHS256.Verify(signingInput, sig, tm.secret); err != nil {
		return "", ErrInvalidSignature
	}

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, tm.keyFunc); err != nil {
		return "", mapParseError(err)
	}
	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tm.secret, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrTokenMalformed
	}
}
