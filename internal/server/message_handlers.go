package server

import (
	"context"
	"errors"
	"strconv"

	"studyhive/internal/models"
	"studyhive/internal/notifications"
	"studyhive/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetGroupMessages handles GET /api/groups/:id/messages. Members only;
// messages come back oldest-first.
func (s *Server) GetGroupMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	if err := s.requireApprovedMember(c, uint(id), userID); err != nil {
		return respondAppError(c, err)
	}

	messages, err := s.messageRepo.ListByGroup(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, messages)
}

type sendMessageRequest struct {
	Text     string `json:"text" validate:"required_without=FileLink,max=10000"`
	FileLink string `json:"file_link" validate:"omitempty,max=2048"`
}

// SendGroupMessage handles POST /api/groups/:id/messages. The row is
// inserted, re-read joined with the sender's name, and that hydrated shape is
// broadcast to the group room.
func (s *Server) SendGroupMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	if err := s.requireApprovedMember(c, uint(id), userID); err != nil {
		return respondAppError(c, err)
	}

	view, err := s.persistAndHydrateMessage(c.Context(), uint(id), userID, req.Text, req.FileLink)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.hub.Broadcast(notifications.GroupRoom(uint(id)), "receive_message", view)

	return models.RespondData(c, fiber.StatusCreated, view)
}

// persistAndHydrateMessage inserts the message then re-reads it through the
// joined view so every consumer, HTTP and websocket alike, sees one shape.
func (s *Server) persistAndHydrateMessage(ctx context.Context, groupID, senderID uint, text, fileLink string) (*models.MessageView, error) {
	msg := &models.Message{
		GroupID:  groupID,
		SenderID: senderID,
		Text:     text,
		FileLink: fileLink,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return s.messageRepo.GetViewByID(ctx, msg.ID)
}

// respondAppError maps an AppError to its HTTP status.
func respondAppError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status := fiber.StatusInternalServerError
		switch appErr.Code {
		case "VALIDATION_ERROR":
			status = fiber.StatusBadRequest
		case "NOT_FOUND":
			status = fiber.StatusNotFound
		case "UNAUTHORIZED":
			status = fiber.StatusUnauthorized
		case "FORBIDDEN":
			status = fiber.StatusForbidden
		case "CONFLICT":
			status = fiber.StatusConflict
		}
		return models.RespondWithError(c, status, appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
