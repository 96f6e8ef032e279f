package service

import (
	"context"
	"errors"
	"time"

	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// StaffService lets admins see who complaints can be assigned to and
// suspend accounts.
type StaffService struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewStaffService creates the service.
func NewStaffService(users repository.UserRepository, clock func() time.Time) *StaffService {
	if clock == nil {
		clock = time.Now
	}
	return &StaffService{users: users, now: clock}
}

// ListAssignable returns every dealer and admin account.
func (s *StaffService) ListAssignable(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.users.ListByRoles(ctx, []domain.Role{domain.RoleDealer, domain.RoleAdmin})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// SetActive activates or deactivates an account. A deactivated user is
// rejected on their next request even with a valid token.
func (s *StaffService) SetActive(ctx context.Context, actor *domain.User, userID string, active bool) (*domain.User, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionManageUsers); err != nil {
		return nil, err
	}
	if userID == actor.ID && !active {
		return nil, apperrors.NewFieldValidationError("isActive", "You cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.NewInternalError(err)
	}
	user.IsActive = active
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}
