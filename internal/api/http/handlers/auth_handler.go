package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shopbot/internal/api/dto"
	"github.com/spec-kit/shopbot/internal/auth"
	"github.com/spec-kit/shopbot/internal/config"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// AuthHandler issues operator tokens. There is a single operator account
// defined in configuration; no account storage exists.
type AuthHandler struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthHandler returns a new handler instance.
func NewAuthHandler(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: tokens}
}

// Login authenticates the operator and returns a bearer token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password are required", nil)
	}
	if h.cfg.OpsUsername == "" || h.cfg.OpsPasswordHash == "" {
		return apperrors.NewNotConfigured("operator login")
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.OpsUsername)) == 1
	if err := auth.ComparePassword(h.cfg.OpsPasswordHash, req.Password); err != nil || !usernameOK {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
