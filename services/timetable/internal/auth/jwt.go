package auth

import (
	"context"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the access token issued by the identity service.
type Claims struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims hold any of roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, role := range roles {
		if slices.Contains(c.Roles, role) {
			return true
		}
	}
	return false
}

func ParseToken(secret, issuer, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

type SSOUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type SSOClaims struct {
	User SSOUser `json:"user"`
	jwt.RegisteredClaims
}

// ParseSSOToken verifies a cross-portal token signed with the shared SSO
// secret.
func ParseSSOToken(secret, issuer, audience, tokenString string) (*SSOClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SSOClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SSOClaims)
	if !ok || !token.Valid || claims.User.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// LocalSSO verifies SSO tokens with the shared secret, without a round trip
// to the identity service.
type LocalSSO struct {
	Secret   string
	Issuer   string
	Audience string
}

func (l LocalSSO) VerifySSOToken(_ context.Context, token string) (SSOUser, error) {
	claims, err := ParseSSOToken(l.Secret, l.Issuer, l.Audience, token)
	if err != nil {
		return SSOUser{}, err
	}
	return claims.User, nil
}
