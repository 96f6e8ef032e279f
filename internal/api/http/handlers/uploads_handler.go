package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/praveenrathi4/complain-app/internal/attachment"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// UploadsHandler serves stored complaint attachments.
type UploadsHandler struct {
	files attachment.Opener
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(files attachment.Opener) *UploadsHandler {
	return &UploadsHandler{files: files}
}

// Get handles GET /uploads/:name.
func (h *UploadsHandler) Get(c *fiber.Ctx) error {
	blob, err := h.files.Open(c.UserContext(), c.Params("name"))
	if err != nil {
		if errors.Is(err, attachment.ErrNotFound) {
			return apperrors.NewNotFound("File")
		}
		return apperrors.NewInternalError(err)
	}
	if blob.MimeType != "" {
		c.Set(fiber.HeaderContentType, blob.MimeType)
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=86400")
	// the response writer closes the blob once the body is flushed
	return c.SendStream(blob, int(blob.Size))
}
