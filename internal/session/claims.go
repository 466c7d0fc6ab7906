package session

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string
	Email  string
	Roles  []string
}

// ParseClaims reads the token payload without verifying its signature. The
// remote API verifies tokens; the client only needs the identity hints.
func ParseClaims(token string) (*Claims, error) {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse token: unexpected claims type %T", parsed.Claims)
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil && sub != "" {
		claims.UserID = sub
	} else if id, ok := mapClaims["id"].(string); ok {
		claims.UserID = id
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}

	switch roles := mapClaims["roles"].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	case string:
		claims.Roles = []string{roles}
	}

	return claims, nil
}
