package handlers

import (
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, "register_failed", err)
	}
	return h.issueToken(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, "login_failed", err)
	}
	return h.issueToken(c, fiber.StatusOK, user)
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateToken(user)
	if err != nil {
		logger.Error("token_generation_failed", err, map[string]interface{}{"user_id": user.ID})
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}
	return utils.Success(c, status, authResponse{User: user, Token: token})
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Auth.Profile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, "profile_load_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.Auth.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, "profile_update_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}
