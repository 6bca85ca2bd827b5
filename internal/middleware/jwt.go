package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// TokenTypeAccess marks tokens accepted by JWTProtected.
const TokenTypeAccess = "access"

// TokenRevoker reports whether a token id was signed out before its expiry.
type TokenRevoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTProtected returns a middleware that validates JWT bearer access tokens.
// Browsers cannot attach headers to EventSource or WebSocket handshakes, so the
// token may also be passed as the access_token query parameter.
func JWTProtected(secret string, revoker TokenRevoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		}, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if typ, _ := claims["typ"].(string); typ != TokenTypeAccess {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token type")
		}

		userID, _ := claims.GetSubject()
		userID = strings.TrimSpace(userID)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		tokenID, _ := claims["jti"].(string)
		if revoker != nil && tokenID != "" {
			revoked, err := revoker.IsRevoked(c.UserContext(), tokenID)
			if err != nil {
				return utils.SendError(c, fiber.StatusInternalServerError, "unable to verify token")
			}
			if revoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "token revoked")
			}
		}

		c.Locals("user_id", userID)
		c.Locals("token_id", tokenID)
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.Locals("token_expires_at", exp.Time)
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := strings.TrimSpace(c.Get("Authorization"))
	if authorization == "" {
		if query := strings.TrimSpace(c.Query("access_token")); query != "" {
			return query, nil
		}
		return "", fmt.Errorf("authorization header missing")
	}

	const bearer = "bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
		return "", fmt.Errorf("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("invalid token")
	}
	return token, nil
}

// TokenIDFromContext returns the jti of the access token that authenticated the request.
func TokenIDFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals("token_id").(string); ok {
		return v
	}
	return ""
}

// TokenExpiryFromContext returns the expiry of the authenticating access token.
func TokenExpiryFromContext(c *fiber.Ctx) time.Time {
	if v, ok := c.Locals("token_expires_at").(time.Time); ok {
		return v
	}
	return time.Time{}
}
