package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RoleKey is the gin context key holding the caller's role once RequireRole
// has accepted the token.
const RoleKey = "userRole"

const tokenCookie = "access_token"

var errNoRole = errors.New("role not found in token")

// ParseToken verifies an HMAC-signed token and returns its role claim.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", errNoRole
	}
	return role, nil
}

// bearerToken prefers the access_token cookie set by login and falls back to
// the Authorization header.
func bearerToken(c *gin.Context) (string, string) {
	if token, err := c.Cookie(tokenCookie); err == nil && token != "" {
		return token, ""
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "Authorization is missing"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return token, ""
}

// RequireRole rejects requests without a valid token whose role is one of
// allowedRoles.
func RequireRole(secret []byte, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		role, err := ParseToken(secret, token)
		switch {
		case errors.Is(err, errNoRole):
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		if !slices.Contains(allowedRoles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(RoleKey, role)
		c.Next()
	}
}
