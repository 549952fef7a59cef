package mw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Context keys set by JWTAuth.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// Claims is the subset of the auth provider's access token we rely on.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates an HS256 Bearer token signed with secret.
// The subject and role claims are stored in echo.Context for downstream use.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			var claims Claims
			if _, err := parser.ParseWithClaims(tokenStr, &claims, keyFunc); err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				log.Warn().Err(err).Msg("JWT verification failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no role")
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(RoleKey, claims.Role)

			return next(c)
		}
	}
}

// RequireRole rejects requests whose token role is not one of roles.
// Must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "role "+role+" may not call this endpoint")
		}
	}
}
