package server

import (
	"log"
	"strconv"
	"time"

	"studyhive/internal/calendar"
	"studyhive/internal/models"
	"studyhive/internal/notifications"
	"studyhive/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetGroupSchedules handles GET /api/calendar/group/:groupId, ordered by
// start time.
func (s *Server) GetGroupSchedules(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("groupId"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	if err := s.requireApprovedMember(c, uint(id), userID); err != nil {
		return respondAppError(c, err)
	}

	schedules, err := s.scheduleRepo.ListByGroup(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, schedules)
}

type createScheduleRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	Location    string    `json:"location" validate:"omitempty,max=200"`
	Attendees   []string  `json:"attendees" validate:"omitempty,dive,email"`
	MeetingType string    `json:"meeting_type" validate:"omitempty,oneof=physical online"`
}

// CreateGroupSchedule handles POST /api/calendar/group/:groupId. The local
// row always persists; Google Calendar sync is best-effort and its failure
// only leaves google_event_id and meeting_link null.
func (s *Server) CreateGroupSchedule(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("groupId"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	var req createScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if !req.End.After(req.Start) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("End time must be after start time"))
	}

	if err := s.requireApprovedMember(c, uint(id), userID); err != nil {
		return respondAppError(c, err)
	}

	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = models.MeetingTypePhysical
	}

	schedule := &models.Schedule{
		GroupID:     uint(id),
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
		Attendees:   req.Attendees,
		MeetingType: meetingType,
	}

	if s.calendar != nil {
		created, cerr := s.calendar.CreateEvent(c.Context(), calendar.Event{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			Start:       req.Start,
			End:         req.End,
			MeetingType: meetingType,
		})
		if cerr != nil {
			log.Printf("calendar sync failed for group %d: %v", id, cerr)
		} else {
			schedule.GoogleEventID = &created.ID
			if created.HangoutLink != "" {
				schedule.MeetingLink = &created.HangoutLink
			}
		}
	}

	if err := s.scheduleRepo.Create(c.Context(), schedule); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.hub.Broadcast(notifications.GroupRoom(uint(id)), "new_schedule", schedule)

	return models.RespondData(c, fiber.StatusCreated, schedule)
}

type meetLinkRequest struct {
	Title string    `json:"title" validate:"required,max=200"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

// GenerateMeetLink handles POST /api/calendar/meet-link. Creates a throwaway
// online event just to obtain a Meet link; nothing is persisted locally.
func (s *Server) GenerateMeetLink(c *fiber.Ctx) error {
	var req meetLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	if s.calendar == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			&models.AppError{Code: "NOT_CONFIGURED", Message: "Calendar integration is not configured"})
	}

	created, err := s.calendar.CreateEvent(c.Context(), calendar.Event{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		MeetingType: models.MeetingTypeOnline,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadGateway,
			&models.AppError{Code: "CALENDAR_ERROR", Message: "Failed to generate meeting link", Err: err})
	}

	return models.RespondData(c, fiber.StatusOK, fiber.Map{
		"meeting_link": created.HangoutLink,
		"event_id":     created.ID,
	})
}
