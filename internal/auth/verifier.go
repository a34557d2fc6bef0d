// internal/auth/verifier.go
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Result is the outcome of verifying a bearer credential.
// When Valid is false the other fields carry no meaning.
type Result struct {
	Valid    bool
	IsActive bool
}

// claims is the JWT payload shape issued by the identity provider.
// IsActive is a pointer so a missing claim can be told apart from false.
type claims struct {
	IsActive *bool `json:"is_active,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256-signed bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify decodes and validates a raw token string. It fails closed: any
// decode error, signature mismatch, malformed structure or expired token
// yields Valid=false, never an error to the caller.
//
// A token without an is_active claim is treated as active. That permissive
// default is a deliberate policy carried over from the identity provider;
// do not tighten it here without changing the issuer first.
func (v *Verifier) Verify(tokenString string) Result {
	parsed := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Result{Valid: false}
	}

	active := true
	if parsed.IsActive != nil {
		active = *parsed.IsActive
	}
	return Result{Valid: true, IsActive: active}
}
