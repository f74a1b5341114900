package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"taskman/internal/service"
)

// Claims are the identity claims read from the access token.
type Claims struct {
	Username  string
	Email     string
	Roles     []string
	ExpiresAt time.Time

	// Raw holds every claim as decoded from the token.
	Raw map[string]any
}

// ParseClaims reads claims from tok's access token without verifying its
// signature. The backend verifies the token; these claims are for display only.
// A token that is not a JWT yields only ExpiresAt from tok.Expiry.
func ParseClaims(tok *oauth2.Token) Claims {
	if tok == nil {
		return Claims{}
	}
	c := Claims{ExpiresAt: tok.Expiry}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, mc); err != nil {
		return c
	}

	c.Raw = make(map[string]any, len(mc))
	for k, v := range mc {
		c.Raw[k] = v
	}
	c.Username, _ = mc["preferred_username"].(string)
	if c.Username == "" {
		c.Username, _ = mc["sub"].(string)
	}
	c.Email, _ = mc["email"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	c.Roles = realmRoles(mc)
	return c
}

// realmRoles extracts Keycloak-style realm_access.roles.
func realmRoles(mc jwt.MapClaims) []string {
	access, ok := mc["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, r := range list {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// User converts the claims to the service identity.
func (c Claims) User() service.User {
	return service.User{
		Username:  c.Username,
		Email:     c.Email,
		Roles:     append([]string(nil), c.Roles...),
		ExpiresAt: c.ExpiresAt,
	}
}
