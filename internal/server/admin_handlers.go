package server

import (
	"errors"
	"strconv"

	"studyhive/internal/models"
	"studyhive/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetDashboardStats handles GET /api/admin/dashboard
func (s *Server) GetDashboardStats(c *fiber.Ctx) error {
	ctx := c.Context()

	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	approvedGroups, err := s.groupRepo.CountByStatus(ctx, models.GroupStatusApproved)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	pendingGroups, err := s.groupRepo.CountByStatus(ctx, models.GroupStatusPending)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	rejectedGroups, err := s.groupRepo.CountByStatus(ctx, models.GroupStatusRejected)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, fiber.Map{
		"total_users":     totalUsers,
		"approved_groups": approvedGroups,
		"pending_groups":  pendingGroups,
		"rejected_groups": rejectedGroups,
	})
}

// GetRecentActivities handles GET /api/admin/activities and returns the ten
// most recent audit entries.
func (s *Server) GetRecentActivities(c *fiber.Ctx) error {
	activities, err := s.activityRepo.Recent(c.Context(), 10)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return models.RespondData(c, fiber.StatusOK, activities)
}

type setGroupStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending approved rejected"`
	Remarks string `json:"remarks" validate:"omitempty,max=1000"`
}

// SetGroupStatus handles PATCH /api/admin/groups/:id/status. The creator is
// notified of the decision and the change lands in the audit log.
func (s *Server) SetGroupStatus(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	var req setGroupStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	group, err := s.groupRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Group", id))
	}

	if err := s.groupRepo.SetStatus(c.Context(), uint(id), req.Status, req.Remarks); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Group", id))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.notifyUser(c.Context(), group.CreatorID, "group_status_changed", fiber.Map{
		"group_id": group.ID,
		"status":   req.Status,
		"remarks":  req.Remarks,
	})

	s.recordActivity(c, actorID, "set group status to "+req.Status, group.Name)

	return models.RespondMessage(c, fiber.StatusOK, "Group status updated", fiber.Map{
		"group_id": group.ID,
		"status":   req.Status,
	})
}
