package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// carries a bad signature.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the JWT claims carried by a Pulseboard access token.
// The user ID travels in the registered Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier issues and validates HS256-signed access tokens against a
// process-wide secret loaded at startup.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewVerifier creates a Verifier. ttl applies to tokens issued by Issue;
// verification honors whatever expiry the token carries.
func NewVerifier(secret []byte, issuer string, ttl time.Duration) *Verifier {
	return &Verifier{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs a token for the given user. Used by the auth handlers and by
// tests; API traffic only ever hits Verify.
func (v *Verifier) Issue(userID, email string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token signature and expiry and decodes the caller's
// identity. Every failure mode collapses to ErrInvalidToken so callers
// cannot leak verification detail to clients.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}
