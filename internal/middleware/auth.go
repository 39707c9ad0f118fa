package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserID  = "user_id"
	ContextEmail   = "user_email"
	ContextIsAdmin = "is_admin"
)

// Auth parses an optional bearer token into the request context. A missing or
// invalid token is NOT an error: the request continues as a guest checkout
// with no wallet and no user-bound coupons.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return next(c)
			}

			claims := jwt.MapClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !parsed.Valid {
				return next(c)
			}

			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set(ContextUserID, sub)
			}
			if email, _ := claims["email"].(string); email != "" {
				c.Set(ContextEmail, email)
			}
			if admin, _ := claims["admin"].(bool); admin {
				c.Set(ContextIsAdmin, true)
			}
			return next(c)
		}
	}
}

// Identity reads the auth result for a request; zero values mean guest.
func Identity(c echo.Context) (userID, email string, isAdmin bool) {
	userID, _ = c.Get(ContextUserID).(string)
	email, _ = c.Get(ContextEmail).(string)
	isAdmin, _ = c.Get(ContextIsAdmin).(bool)
	return userID, email, isAdmin
}
