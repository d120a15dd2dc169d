package server

import (
	"strconv"

	"studyhive/internal/models"
	"studyhive/internal/notifications"
	"studyhive/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type createAnnouncementRequest struct {
	GroupID     uint   `json:"group_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
}

// CreateAnnouncement handles POST /api/announcements. Members only; the
// hydrated announcement is broadcast to the group room.
func (s *Server) CreateAnnouncement(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req createAnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	if err := s.requireApprovedMember(c, req.GroupID, userID); err != nil {
		return respondAppError(c, err)
	}

	announcement := &models.Announcement{
		GroupID:     req.GroupID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.announcementRepo.Create(c.Context(), announcement); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	view, err := s.announcementRepo.GetViewByID(c.Context(), announcement.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.hub.Broadcast(notifications.GroupRoom(req.GroupID), "newAnnouncement", view)

	return models.RespondData(c, fiber.StatusCreated, view)
}

// GetGroupAnnouncements handles GET /api/announcements/group/:groupId,
// newest first.
func (s *Server) GetGroupAnnouncements(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("groupId"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	if err := s.requireApprovedMember(c, uint(id), userID); err != nil {
		return respondAppError(c, err)
	}

	views, err := s.announcementRepo.ListByGroup(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, views)
}
