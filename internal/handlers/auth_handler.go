package handlers

import (
	"errors"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/middleware"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for owner authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes. auth guards the
// routes that need a logged in owner.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/owner/login", h.HandleLogin)
	router.Get("/owner/verify", auth, h.HandleVerify)
	router.Post("/auth/push-token", auth, h.HandlePushToken)
}

// HandleLogin checks credentials, stores the push token if one came along
// and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	token, owner, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.WithError(err).WithField("email", req.Email).Info("Login failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	if req.PushToken != "" {
		if err := h.authService.SetPushToken(owner.ID, req.PushToken); err != nil {
			log.WithError(err).WithField("owner_id", owner.ID).Warn("Could not store push token at login")
		}
	}

	return c.JSON(models.LoginResponse{Token: token, User: owner})
}

// HandleVerify returns the owner behind the bearer token.
func (h *AuthHandler) HandleVerify(c *fiber.Ctx) error {
	owner, err := h.authService.Owner(middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Account no longer exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load account",
			"error":   err.Error(),
		})
	}
	return c.JSON(owner)
}

// HandlePushToken registers a device push token for the logged in owner.
func (h *AuthHandler) HandlePushToken(c *fiber.Ctx) error {
	var req models.PushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	if req.UserID != middleware.UserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Cannot register a token for another account",
		})
	}

	if err := h.authService.SetPushToken(req.UserID, req.Token); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register push token",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Push token registered"})
}
