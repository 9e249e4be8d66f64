package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const userKey contextKey = "fiscal_user"

// Claims are the JWT claims the fiscal API expects from its issuer.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// JWTConfig configures the bearer-token middleware.
type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// UserFromContext returns the authenticated user, or a zero User when the
// request carried no valid token.
func UserFromContext(ctx context.Context) User {
	u, _ := ctx.Value(userKey).(User)
	return u
}

// WithUser returns a context carrying u. Exposed for tests and for callers
// embedding the core in-process without the HTTP layer.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// JWTMiddleware validates the Authorization bearer token and places the
// authenticated User in the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization header must be a bearer token")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			u := User{ID: claims.Subject, Name: claims.Name, Role: Role(claims.Role)}
			ctx := WithUser(c.Request().Context(), u)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request an admin identity. Development
// mode only; config.Validate refuses this outside development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := User{ID: "dev-admin", Name: "Development Admin", Role: RoleAdmin}
			ctx := WithUser(c.Request().Context(), u)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
