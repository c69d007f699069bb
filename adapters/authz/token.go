package authz

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload the HTTP layer issues and verifies. Subject
// carries the caller address the ledger operates on.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenVerifier maps Ed25519-signed bearer tokens to caller addresses.
type TokenVerifier struct {
	key    ed25519.PrivateKey
	issuer string
}

// NewTokenVerifier builds a verifier around the service signing key.
func NewTokenVerifier(key ed25519.PrivateKey, issuer string) *TokenVerifier {
	return &TokenVerifier{key: key, issuer: issuer}
}

// Issue signs a token whose subject is the given caller address.
func (v *TokenVerifier) Issue(caller string, ttl time.Duration) (string, error) {
	const op = "Issue"
	token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			Subject:   caller,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to sign token, err=%w", op, err)
	}
	return signed, nil
}

// Caller parses and validates a token and returns the caller address it
// carries.
func (v *TokenVerifier) Caller(tokenString string) (string, error) {
	const op = "Caller"
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key.Public(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithIssuer(v.issuer))
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to parse token, err=%w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("[%s] Token claims are invalid", op)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("[%s] Token has no subject", op)
	}
	return claims.Subject, nil
}
