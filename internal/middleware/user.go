package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	userIDKey      = "userID"
	githubTokenKey = "githubToken"
)

// CurrentUser resolves the caller from request headers. Session handling
// lives in front of this service: the user id arrives in X-User-ID and the
// GitHub token either as a bearer token or in X-GitHub-Token. Requests
// without them pass through; handlers that need a user reject them.
func CurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := strings.TrimSpace(c.Get("X-User-ID")); id != "" {
			c.Locals(userIDKey, id)
		}
		token := strings.TrimSpace(c.Get("X-GitHub-Token"))
		if auth := c.Get(fiber.HeaderAuthorization); token == "" && len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
		if token != "" {
			c.Locals(githubTokenKey, token)
		}
		return c.Next()
	}
}

// UserID returns the current user's id, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// GitHubToken returns the current user's GitHub token, or "".
func GitHubToken(c *fiber.Ctx) string {
	tok, _ := c.Locals(githubTokenKey).(string)
	return tok
}
