package server

import (
	"os"
	"path/filepath"
	"strings"

	"studyhive/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Extensions accepted by the upload endpoint.
var allowedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".txt": true, ".zip": true,
}

// Upload handles POST /api/upload. Files are renamed to a UUID so uploads
// can never collide or traverse paths.
func (s *Server) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file provided"))
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedUploadExts[ext] {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File type not allowed"))
	}

	uploadDir := s.config.UploadDir
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	name := uuid.NewString() + ext
	if err := c.SaveFile(fileHeader, filepath.Join(uploadDir, name)); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.RespondData(c, fiber.StatusCreated, fiber.Map{
		"filename": name,
		"file_url": s.config.BaseURL + "/uploads/" + name,
	})
}
