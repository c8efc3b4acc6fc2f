// Package auth provides request authentication for the API. User identity is
// consumed as a capability: a signed token carrying a user id and a superuser
// flag. Credential storage and token issuance live in the identity provider,
// not in this service.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
	superuserKey = "is_superuser"
)

// Claims are the token claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	IsSuperuser bool
}

// JWTMiddleware validates HS256 bearer tokens signed with secret and attaches
// the caller's Identity to the echo context.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(userIDKey, userID)
			c.Set(userEmailKey, claims.Email)
			c.Set(superuserKey, claims.IsSuperuser)
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request a fixed superuser identity. It is
// wired only when ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	devUserID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(userIDKey, devUserID)
			c.Set(userEmailKey, "dev@metimat.local")
			c.Set(superuserKey, true)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated caller, or ok=false when the request
// carries no identity (e.g. machine endpoints).
func CurrentUser(c echo.Context) (Identity, bool) {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	email, _ := c.Get(userEmailKey).(string)
	super, _ := c.Get(superuserKey).(bool)
	return Identity{UserID: id, Email: email, IsSuperuser: super}, true
}

// RequireSuperuser rejects requests whose identity lacks the superuser flag.
func RequireSuperuser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !id.IsSuperuser {
				return echo.NewHTTPError(http.StatusBadRequest, "Not enough permissions")
			}
			return next(c)
		}
	}
}

// IssueToken signs a token for the given identity. Used by the seed command
// and tests; production tokens come from the identity provider.
func IssueToken(secret string, id Identity, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email:       id.Email,
		IsSuperuser: id.IsSuperuser,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
