package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleAdmin     = "admin"
	adminTokenTTL = 30 * 24 * time.Hour
)

// AuthConfig секрет подписи и bcrypt хеш пароля администратора
type AuthConfig struct {
	JWTSecret    string
	PasswordHash string
}

func (a AuthConfig) enabled() bool {
	return a.JWTSecret != "" && a.PasswordHash != ""
}

// issueAdminToken подписывает HS256 токен с ролью admin
func issueAdminToken(secret string, now time.Time) (string, time.Time, error) {
	exp := now.UTC().Add(adminTokenTTL)
	claims := jwt.MapClaims{
		"sub":  roleAdmin,
		"role": roleAdmin,
		"exp":  exp.Unix(),
		"iat":  now.UTC().Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func verifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// requireAdmin пропускает только запросы с действующим токеном администратора
func requireAdmin(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "admin access is disabled"})
			}

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			if role, _ := claims["role"].(string); role != roleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			c.Set("role", roleAdmin)
			return next(c)
		}
	}
}
