package auth

import (
	"time"
)

// Token sources, in the order the Authenticator tries them.
const (
	SourcePaseto = "paseto"
	SourceLegacy = "legacy-jwt"
	SourceJWKS   = "jwks"
)

// AccessClaims represents the verified identity behind a bearer token.
// For PASETO tokens every field is populated; JWTs fill what they carry.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	// Standard claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`

	// Source records which verifier accepted the token.
	Source string `json:"-"`
}
