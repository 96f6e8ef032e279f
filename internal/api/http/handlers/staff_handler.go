package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/praveenrathi4/complain-app/internal/api/dto"
	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/service"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// StaffHandler lets admins list assignable staff and suspend accounts.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// ListAssignable handles GET /users/staff.
func (h *StaffHandler) ListAssignable(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	users, err := h.staff.ListAssignable(c.UserContext(), user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"users": users})
}

// SetActive handles PUT /users/:id/active.
func (h *StaffHandler) SetActive(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.IsActive == nil {
		return apperrors.NewFieldValidationError("isActive", "isActive is required")
	}
	updated, err := h.staff.SetActive(c.UserContext(), user, c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "User updated successfully", fiber.Map{"user": updated})
}
