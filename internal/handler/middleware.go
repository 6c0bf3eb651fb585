package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

const principalKey = "principal"

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	Role       string `json:"role"`
	Building   string `json:"building,omitempty"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalResolver loads the stored identity behind a token subject.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (domain.Principal, error)
}

// signingKey is shared by AuthJWT and IssueToken.
func signingKey(secret string) []byte {
	return []byte(strings.TrimSpace(secret))
}

// AuthJWT verifies an HS256 bearer token, reloads its subject through users
// and stores the caller's domain.Principal in the echo context. Unknown and
// inactive users are refused.
func AuthJWT(secret string, users PrincipalResolver) echo.MiddlewareFunc {
	key := signingKey(secret)
	if len(key) == 0 {
		panic("AuthJWT: secret is required")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if authz := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				raw = strings.TrimSpace(authz[7:])
			}
			if raw == "" {
				return unauthorized(c, errors.New("missing bearer token"))
			}

			claims := &Claims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !tok.Valid {
				return unauthorized(c, err)
			}
			if claims.Subject == "" {
				return unauthorized(c, errors.New("token has no subject"))
			}
			if _, err := domain.ParseRole(claims.Role); err != nil {
				return unauthorized(c, err)
			}

			// Role and building come from the directory, not the token.
			p, err := users.Principal(c.Request().Context(), claims.Subject)
			if err != nil {
				return unauthorized(c, err)
			}
			c.Set(principalKey, p)

			ctx := logger.WithLogger(c.Request().Context(), map[string]interface{}{
				"actor": p.ID,
				"role":  p.Role,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, err error) error {
	logger.DebugLog(c.Request().Context(), "rejected token: %v", err)
	return c.JSON(http.StatusUnauthorized, serviceutils.Response{
		Success: false,
		Message: "Unauthorized",
		Error:   &serviceutils.ErrorBody{Kind: "Unauthorized"},
	})
}

// PrincipalFrom returns the identity set by AuthJWT.
func PrincipalFrom(c echo.Context) domain.Principal {
	p, _ := c.Get(principalKey).(domain.Principal)
	return p
}

// IssueToken signs an HS256 token for p valid for ttl.
func IssueToken(secret string, p domain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:       string(p.Role),
		Building:   p.Building,
		Department: p.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey(secret))
}
