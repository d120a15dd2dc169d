package server

import (
	"errors"
	"log"
	"strconv"

	"studyhive/internal/models"
	"studyhive/internal/notifications"
	"studyhive/internal/repository"
	"studyhive/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Topic       string `json:"topic" validate:"omitempty,max=200"`
	Description string `json:"description"`
	Course      string `json:"course" validate:"omitempty,max=200"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	Capacity    int    `json:"capacity" validate:"required,gt=0"`
}

// CreateGroup handles POST /api/groups. New groups start pending; admins are
// notified so they can review.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	group := &models.Group{
		Name:        req.Name,
		Topic:       req.Topic,
		Description: req.Description,
		Course:      req.Course,
		Location:    req.Location,
		Capacity:    req.Capacity,
		CreatorID:   userID,
		Status:      models.GroupStatusPending,
	}

	if err := s.groupRepo.Create(c.Context(), group); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	// Creator is automatically an approved member of their own group.
	if _, err := s.groupRepo.RequestJoin(c.Context(), group.ID, userID); err != nil {
		log.Printf("auto-join creator %d to group %d: %v", userID, group.ID, err)
	} else if err := s.groupRepo.ApproveMember(c.Context(), group.ID, userID); err != nil {
		log.Printf("approve creator %d in group %d: %v", userID, group.ID, err)
	}

	s.hub.Broadcast(notifications.AdminRoom, "group_pending", fiber.Map{
		"group_id": group.ID,
		"name":     group.Name,
	})

	return models.RespondData(c, fiber.StatusCreated, group)
}

// ListGroups handles GET /api/groups and returns approved groups only.
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupRepo.ListByStatus(c.Context(), models.GroupStatusApproved)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return models.RespondData(c, fiber.StatusOK, groups)
}

// ListAllGroups handles GET /api/groups/all for admins, every status included.
func (s *Server) ListAllGroups(c *fiber.Ctx) error {
	groups, err := s.groupRepo.ListAll(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return models.RespondData(c, fiber.StatusOK, groups)
}

// GetGroup handles GET /api/groups/:id
func (s *Server) GetGroup(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	group, err := s.groupRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Group", id))
	}

	return models.RespondData(c, fiber.StatusOK, group)
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Topic       *string `json:"topic"`
	Description *string `json:"description"`
	Course      *string `json:"course"`
	Location    *string `json:"location"`
	Capacity    *int    `json:"capacity"`
}

// UpdateGroup handles PUT /api/groups/:id. Only the creator or an admin may
// edit. Capacity can only grow, never shrink below the approved member count.
func (s *Server) UpdateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	group, err := s.groupRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Group", id))
	}

	if group.CreatorID != userID && !s.isAdminUser(c.Context(), userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Only the group creator can edit this group"))
	}

	var req updateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Name != nil && *req.Name != "" {
		group.Name = *req.Name
	}
	if req.Topic != nil {
		group.Topic = *req.Topic
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.Course != nil {
		group.Course = *req.Course
	}
	if req.Location != nil {
		group.Location = *req.Location
	}
	if req.Capacity != nil {
		approved, err := s.groupRepo.CountApproved(c.Context(), group.ID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if int64(*req.Capacity) < approved {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Capacity cannot be lower than the current member count"))
		}
		group.Capacity = *req.Capacity
	}

	if err := s.groupRepo.Update(c.Context(), group); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, group)
}

// DeleteGroup handles DELETE /api/groups/:id. Deleting a missing group is a
// 404, not an error swallow.
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	group, err := s.groupRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Group", id))
	}

	if group.CreatorID != userID && !s.isAdminUser(c.Context(), userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Only the group creator can delete this group"))
	}

	if err := s.groupRepo.Delete(c.Context(), group.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Group", id))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.recordActivity(c, userID, "deleted group", group.Name)

	return models.RespondMessage(c, fiber.StatusOK, "Group deleted successfully", nil)
}

type joinGroupRequest struct {
	GroupID uint `json:"group_id" validate:"required"`
}

// JoinGroup handles POST /api/groups/join. Business rejections come back as
// HTTP 200 with success=false so the client can show the message verbatim.
func (s *Server) JoinGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req joinGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	member, err := s.groupRepo.RequestJoin(c.Context(), req.GroupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyMember):
			return models.RespondRejected(c, "You are already a member of this group")
		case errors.Is(err, repository.ErrAlreadyPending):
			return models.RespondRejected(c, "Your join request is pending approval")
		case errors.Is(err, repository.ErrGroupFull):
			return models.RespondRejected(c, "This group is already full")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Group", req.GroupID))
		default:
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
	}

	// Tell the group creator someone wants in.
	if group, gerr := s.groupRepo.GetByID(c.Context(), req.GroupID); gerr == nil {
		s.notifyUser(c.Context(), group.CreatorID, "join_request", fiber.Map{
			"group_id": group.ID,
			"user_id":  userID,
		})
	}

	return models.RespondMessage(c, fiber.StatusOK, "Join request submitted", member)
}

// ListGroupMembers handles GET /api/groups/:id/members
func (s *Server) ListGroupMembers(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}

	members, err := s.groupRepo.ListMembers(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, members)
}

// ApproveMember handles POST /api/groups/:id/members/:userId/approve. Only
// the creator or an admin may approve; the approved user gets a personal
// request_approved event.
func (s *Server) ApproveMember(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)

	groupID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid group ID"))
	}
	memberID, err := strconv.Atoi(c.Params("userId"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
	}

	group, err := s.groupRepo.GetByID(c.Context(), uint(groupID))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Group", groupID))
	}

	if group.CreatorID != actorID && !s.isAdminUser(c.Context(), actorID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Only the group creator can approve members"))
	}

	// The capacity check lives inside ApproveMember's transaction so
	// concurrent approvals cannot overfill the group.
	if err := s.groupRepo.ApproveMember(c.Context(), uint(groupID), uint(memberID)); err != nil {
		switch {
		case errors.Is(err, repository.ErrGroupFull):
			return models.RespondRejected(c, "This group is already full")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Join request", memberID))
		default:
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
	}

	s.notifyUser(c.Context(), uint(memberID), "request_approved", fiber.Map{
		"group_id":   group.ID,
		"group_name": group.Name,
	})

	return models.RespondMessage(c, fiber.StatusOK, "Member approved", nil)
}

// requireApprovedMember checks that the user belongs to the group with
// approved status. Admins bypass the check.
func (s *Server) requireApprovedMember(c *fiber.Ctx, groupID, userID uint) error {
	if s.isAdminUser(c.Context(), userID) {
		return nil
	}
	member, err := s.groupRepo.GetMembership(c.Context(), groupID, userID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if member == nil || member.Status != models.MemberStatusApproved {
		return models.NewForbiddenError("You are not a member of this group")
	}
	return nil
}
