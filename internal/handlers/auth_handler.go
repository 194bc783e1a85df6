package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"realestate/internal/middleware"
	"realestate/internal/services"
	"realestate/internal/validation"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes. Logout needs a live
// session; login turns signed-in callers away.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", middleware.RedirectIfAuthenticated(h.authService), h.HandleLogin)
	authRoutes.Get("/session", h.HandleSession)
	authRoutes.Post("/logout", middleware.AuthRequired(h.authService), h.HandleLogout)
}

// HandleLogin handles administrator sign-in and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	form.Email = strings.TrimSpace(form.Email)

	if errs := validation.CheckLoginForm(form); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errs,
		})
	}

	result, err := h.authService.Login(c.UserContext(), form.Email, form.Password)
	if err != nil {
		return respondError(c, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"token":     result.Token,
		"user":      result.User,
		"expiresAt": result.ExpiresAt,
	})
}

// HandleSession reports whether the bearer token belongs to a live session.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if token == "" {
		return c.JSON(fiber.Map{"authenticated": false})
	}

	session, err := h.authService.CheckSession(c.UserContext(), token)
	if err != nil {
		resp := fiber.Map{"authenticated": false}
		if serr, ok := services.AsError(err); ok {
			resp["message"] = serr.Message
		}
		return c.JSON(resp)
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":    session.UserID,
			"email": session.Email,
		},
		"loginTime": session.LoginTime.Format(time.RFC3339),
	})
}

// HandleLogout ends the caller's session.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sessionID, _ := c.Locals(middleware.LocalSessionID).(string)
	if err := h.authService.Logout(c.UserContext(), sessionID); err != nil {
		return respondError(c, "Could not sign out", err)
	}
	return c.JSON(fiber.Map{"message": "Logout successful"})
}
