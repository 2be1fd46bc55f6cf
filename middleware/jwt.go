package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWT.
const (
	UsernameKey = "username"
	UserHashKey = "user_hash"
)

// Claims carries the signed-in username and its keyed hash.
type Claims struct {
	Username string `json:"username"`
	UserHash string `json:"user_hash"`
	jwt.RegisteredClaims
}

// UserHashFromUsername returns a deterministic HMAC hash for the given username and key.
func UserHashFromUsername(username string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(strings.ToLower(strings.TrimSpace(username))))
	return hex.EncodeToString(mac.Sum(nil))
}

// Username returns the username JWT stored on c, or "" on public routes.
func Username(c echo.Context) string {
	u, _ := c.Get(UsernameKey).(string)
	return strings.TrimSpace(u)
}

// JWT validates the HS256 token of the Authorization header, with or without
// a "Bearer " prefix. A missing or malformed token is a 400. Signature,
// algorithm, expiry and username hash failures are a 401.
func JWT(key []byte) echo.MiddlewareFunc {
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request())
			if raw == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing authorization header")
			}

			claims := &Claims{}
			_, err := jwt.ParseWithClaims(raw, claims, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			switch {
			case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			case err != nil:
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			if !hmac.Equal([]byte(claims.UserHash), []byte(UserHashFromUsername(claims.Username, key))) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(UsernameKey, claims.Username)
			c.Set(UserHashKey, claims.UserHash)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = raw[7:]
	}
	return strings.TrimSpace(raw)
}
