package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/formdesk/server/internal/export"
	"github.com/formdesk/server/internal/middleware"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const dataTooLargeMessage = "Data too large for Excel export. Some responses contain very long text or images."

type ResponsesHandler struct {
	Responses *services.ResponseService
	Formatter *export.Formatter
}

func NewResponsesHandler(responses *services.ResponseService, formatter *export.Formatter) *ResponsesHandler {
	return &ResponsesHandler{Responses: responses, Formatter: formatter}
}

type submitRequest struct {
	Answers []services.AnswerInput `json:"answers"`
}

// Submit accepts anonymous submissions for forms that allow them.
func (h *ResponsesHandler) Submit(c *fiber.Ctx) error {
	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.Responses.Submit(c.UserContext(), formID, middleware.CurrentUserID(c), req.Answers)
	if err != nil {
		return respondError(c, "response_submit_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"id":           response.ID,
		"form_id":      response.FormID,
		"submitted_at": response.SubmittedAt,
		"message":      "Response submitted successfully",
	})
}

func (h *ResponsesHandler) List(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	p := utils.ParsePagination(c)
	responses, total, err := h.Responses.List(c.UserContext(), formID, userID, services.Page{Number: p.Page, Limit: p.Limit})
	if err != nil {
		return respondError(c, "responses_list_failed", err)
	}
	return utils.Paginated(c, responses, p.Page, p.Limit, total)
}

func (h *ResponsesHandler) Get(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}
	responseID, err := parseID(c.Params("responseId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid response id")
	}

	response, err := h.Responses.Get(c.UserContext(), formID, responseID, userID)
	if err != nil {
		return respondError(c, "response_load_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, response)
}

func (h *ResponsesHandler) Stats(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	stats, err := h.Responses.Stats(c.UserContext(), formID, userID)
	if err != nil {
		return respondError(c, "response_stats_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

// Export streams the form's responses as an xlsx attachment.
func (h *ResponsesHandler) Export(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	formID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid form id")
	}

	source, err := h.Responses.ExportSource(c.UserContext(), formID, userID)
	if err != nil {
		return respondError(c, "responses_export_failed", err)
	}

	var buf bytes.Buffer
	workbook := h.Formatter.Build(source.Questions, source.Responses)
	if err := export.WriteXLSX(&buf, workbook); err != nil {
		logger.ErrorWithUser(fmt.Sprint(userID), "responses_export_failed", err, map[string]interface{}{
			"form_id":        formID,
			"response_count": len(source.Responses),
		})
		if errors.Is(err, export.ErrDataTooLarge) {
			return utils.Error(c, fiber.StatusInternalServerError, dataTooLargeMessage)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed exporting responses")
	}

	logger.InfoWithUser(fmt.Sprint(userID), "responses_exported", map[string]interface{}{
		"form_id":        formID,
		"response_count": len(source.Responses),
		"bytes":          buf.Len(),
	})

	c.Attachment(export.Filename(formID, time.Now()))
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
