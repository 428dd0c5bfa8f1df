package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// Upload takes a multipart "image" field and answers with its public URL.
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if !h.mediaService.Enabled() {
		return respondError(c, services.ErrMediaDisabled)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return respondError(c, &services.ValidationError{Field: "image", Message: "is required"})
	}
	if limit := h.mediaService.MaxBytes(); limit > 0 && file.Size > limit {
		return respondError(c, &services.ValidationError{
			Field: "image", Message: fmt.Sprintf("must be at most %d bytes", limit),
		})
	}

	f, err := file.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.mediaService.Upload(c.UserContext(), userID, http.DetectContentType(data), data)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
