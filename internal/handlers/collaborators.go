package handlers

import (
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type CollaboratorsHandler struct {
	Collaborators *services.CollaboratorService
}

func NewCollaboratorsHandler(collaborators *services.CollaboratorService) *CollaboratorsHandler {
	return &CollaboratorsHandler{Collaborators: collaborators}
}

type addCollaboratorRequest struct {
	Email string                  `json:"collaborator_email"`
	Role  models.CollaboratorRole `json:"role"`
}

func (h *CollaboratorsHandler) Add(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	var req addCollaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	collaborator, err := h.Collaborators.Add(c.UserContext(), formID, userID, req.Email, req.Role)
	if err != nil {
		return respondError(c, "collaborator_add_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, collaborator)
}

// Remove takes the collaborating user's id, not the membership row id.
func (h *CollaboratorsHandler) Remove(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}
	collaboratorID, err := parseID(c.Params("collaboratorId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid collaborator id")
	}

	if err := h.Collaborators.Remove(c.UserContext(), formID, userID, collaboratorID); err != nil {
		return respondError(c, "collaborator_remove_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Collaborator removed successfully"})
}

func (h *CollaboratorsHandler) List(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	collaborators, err := h.Collaborators.List(c.UserContext(), formID, userID)
	if err != nil {
		return respondError(c, "collaborators_list_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, collaborators)
}
