package server

import (
	"log"
	"strconv"

	"studyhive/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", userID))
	}

	if user.ProfilePhoto != "" {
		user.ProfilePhoto = s.config.BaseURL + "/uploads/" + user.ProfilePhoto
	}

	return models.RespondData(c, fiber.StatusOK, user)
}

type updateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
	Username   *string `json:"username"`
	Bio        *string `json:"bio"`
	Photo      *string `json:"profile_photo"`
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", userID))
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.MiddleName != nil {
		user.MiddleName = *req.MiddleName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Username != nil && *req.Username != "" {
		user.Username = *req.Username
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Photo != nil {
		user.ProfilePhoto = *req.Photo
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusOK, user)
}

// GetAdminUserList handles GET /api/users/admin-list
func (s *Server) GetAdminUserList(c *fiber.Ctx) error {
	users, err := s.userRepo.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return models.RespondData(c, fiber.StatusOK, users)
}

// ToggleAdminRole handles PATCH /api/users/toggle-admin/:id
func (s *Server) ToggleAdminRole(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
	}

	user, err := s.userRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", id))
	}

	newRole := !user.IsAdmin
	if err := s.userRepo.SetAdmin(c.Context(), user.ID, newRole); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	action := "revoked admin from"
	if newRole {
		action = "granted admin to"
	}
	s.recordActivity(c, actorID, action, user.Username)

	return models.RespondMessage(c, fiber.StatusOK, "User role updated", fiber.Map{
		"user_id":  user.ID,
		"is_admin": newRole,
	})
}

// DeleteUser handles DELETE /api/users/delete/:id. Active users cannot be
// deleted; suspend first.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
	}

	user, err := s.userRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", id))
	}

	if user.Status == models.UserStatusActive {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Cannot delete an active user"))
	}

	if err := s.userRepo.Delete(c.Context(), user.ID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	s.recordActivity(c, actorID, "deleted user", user.Username)

	return models.RespondMessage(c, fiber.StatusOK, "User deleted successfully", nil)
}

// recordActivity writes an audit row; failures are logged but never fail
// the request.
func (s *Server) recordActivity(c *fiber.Ctx, userID uint, action, target string) {
	if err := s.activityRepo.Record(c.Context(), userID, action, target); err != nil {
		log.Printf("record activity: %v", err)
	}
}
