package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of externally issued access tokens. The
// registry only reads these for write attribution; it never issues or
// refreshes tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
