package handlers

import (
	"errors"
	"fmt"

	"printshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles operator authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Group("/operator").Post("/login", h.HandleLogin)
}

// LoginRequest represents the request body for operator login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks the operator password and issues a JWT.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	if !h.authService.Enabled() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "operator login is disabled",
		})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		details := make(map[string]string)
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				details[e.Field()] = fmt.Sprintf("field '%s' failed on the '%s' tag", e.Field(), e.Tag())
			}
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation error",
			"details": details,
		})
	}

	token, err := h.authService.LoginOperator(req.Password)
	if err != nil {
		h.logger.Warn("operator login failed", zap.String("ip", c.IP()), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication failed",
		})
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"token":   token,
	})
}
