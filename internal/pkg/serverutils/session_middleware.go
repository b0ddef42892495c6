package serverutils

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionLocalKey = "session_id"

type SessionCookieConfig struct {
	Name   string
	Secret []byte
	Secure bool
}

// SessionMiddleware gives every request a session id. The id travels in a
// signed HttpOnly cookie; a missing or tampered cookie starts a new session.
func SessionMiddleware(cfg SessionCookieConfig) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if sid, ok := parseSessionToken(ctx.Cookies(cfg.Name), cfg.Secret); ok {
			ctx.Locals(sessionLocalKey, sid)
			return ctx.Next()
		}

		sid := uuid.NewString()
		token, err := signSessionToken(sid, cfg.Secret)
		if err != nil {
			return err
		}

		ctx.Cookie(&fiber.Cookie{
			Name:     cfg.Name,
			Value:    token,
			Path:     "/",
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		ctx.Locals(sessionLocalKey, sid)
		return ctx.Next()
	}
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(ctx *fiber.Ctx) string {
	sid, _ := ctx.Locals(sessionLocalKey).(string)
	return sid
}

func signSessionToken(sid string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"iat": jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func parseSessionToken(tokenStr string, secret []byte) (string, bool) {
	if tokenStr == "" {
		return "", false
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sid, ok := claims["sid"].(string)
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(sid); err != nil {
		return "", false
	}
	return sid, true
}
