package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"realestate/internal/guard"
	"realestate/internal/models"
	"realestate/internal/services"
	"realestate/pkg/logger"
)

// AdminPath is where an already signed-in administrator is sent.
const AdminPath = "/api/v1/admin/properties"

// Locals keys set by AuthRequired.
const (
	LocalSessionID = "session_id"
	LocalUserID    = "user_id"
	LocalEmail     = "email"
)

// SessionChecker validates bearer tokens against live sessions.
type SessionChecker interface {
	CheckSession(ctx context.Context, token string) (*models.Session, error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired guards routes that need a signed-in administrator with a
// session younger than the session TTL.
func AuthRequired(auth SessionChecker) fiber.Handler {
	route := guard.Route{Name: guard.RouteAdmin, RequiresAuth: true}

	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			decision := guard.Resolve(route, false)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Authorization header format must be 'Bearer <token>'",
				"redirect": decision.Redirect,
			})
		}

		session, err := auth.CheckSession(c.UserContext(), token)
		if err != nil {
			logger.Log.WithError(err).Debug("session check failed")
			message := services.MsgUnauthorized
			if serr, ok := services.AsError(err); ok {
				message = serr.Message
			}
			decision := guard.Resolve(route, false)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  message,
				"redirect": decision.Redirect,
			})
		}

		c.Locals(LocalSessionID, session.ID)
		c.Locals(LocalUserID, session.UserID)
		c.Locals(LocalEmail, session.Email)
		return c.Next()
	}
}

// RedirectIfAuthenticated sends callers that already hold a live session
// away from the login route.
func RedirectIfAuthenticated(auth SessionChecker) fiber.Handler {
	route := guard.Route{Name: guard.RouteLogin}

	return func(c *fiber.Ctx) error {
		authenticated := false
		if token, ok := bearerToken(c); ok {
			_, err := auth.CheckSession(c.UserContext(), token)
			authenticated = err == nil
		}

		decision := guard.Resolve(route, authenticated)
		if decision.Allow {
			return c.Next()
		}

		c.Location(AdminPath)
		return c.Status(fiber.StatusSeeOther).JSON(fiber.Map{
			"message":  "Already signed in",
			"redirect": decision.Redirect,
		})
	}
}
