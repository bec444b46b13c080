package handlers

import (
	"github.com/formdesk/server/internal/middleware"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FormsHandler struct {
	Forms *services.FormService
}

func NewFormsHandler(forms *services.FormService) *FormsHandler {
	return &FormsHandler{Forms: forms}
}

type lockRequest struct {
	IsLocked *bool `json:"is_locked"`
}

type reorderRequest struct {
	QuestionIDs []uint `json:"question_ids"`
}

func (h *FormsHandler) List(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	forms, err := h.Forms.ListForUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, "forms_list_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, forms)
}

func (h *FormsHandler) Create(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.CreateFormInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	form, err := h.Forms.Create(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, "form_create_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, form)
}

// Get serves both collaborators and respondents, so the route only attaches
// the user when a token is present.
func (h *FormsHandler) Get(c *fiber.Ctx) error {
	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	form, err := h.Forms.Get(c.UserContext(), formID, middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, "form_load_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, form)
}

func (h *FormsHandler) Update(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	var req services.UpdateFormInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	form, err := h.Forms.Update(c.UserContext(), formID, userID, req)
	if err != nil {
		return respondError(c, "form_update_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, form)
}

func (h *FormsHandler) Delete(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	if err := h.Forms.Delete(c.UserContext(), formID, userID); err != nil {
		return respondError(c, "form_delete_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Form deleted successfully"})
}

// SetLock sets is_locked from the body, or flips it when the body omits it.
func (h *FormsHandler) SetLock(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	var req lockRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	form, err := h.Forms.SetLock(c.UserContext(), formID, userID, req.IsLocked)
	if err != nil {
		return respondError(c, "form_lock_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, form)
}

func (h *FormsHandler) ReorderQuestions(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	questions, err := h.Forms.ReorderQuestions(c.UserContext(), formID, userID, req.QuestionIDs)
	if err != nil {
		return respondError(c, "questions_reorder_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, questions)
}
