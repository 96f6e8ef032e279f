package auth

import (
	"github.com/praveenrathi4/complain-app/internal/domain"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// Action is something an actor may attempt on a complaint.
type Action string

const (
	ActionCreate          Action = "create"
	ActionList            Action = "list"
	ActionView            Action = "view"
	ActionComment         Action = "comment"
	ActionCommentInternal Action = "comment_internal"
	ActionUpdateStatus    Action = "update_status"
	ActionRate            Action = "rate"
	ActionAssign          Action = "assign"
	ActionViewStats       Action = "view_stats"
	ActionManageUsers     Action = "manage_users"
)

// Relation is how an actor relates to one complaint.
type Relation struct {
	Owner    bool
	Assignee bool
	Dealer   bool
}

// None is the relation used for actions not tied to a complaint.
var None = Relation{}

// RelationTo derives the actor's relation to c.
func RelationTo(actor *domain.User, c *domain.Complaint) Relation {
	if actor == nil || c == nil {
		return None
	}
	return Relation{
		Owner:    c.CustomerID == actor.ID,
		Assignee: c.IsAssignedTo(actor.ID),
		Dealer:   c.IsDealer(actor.ID),
	}
}

func (r Relation) participant() bool {
	return r.Owner || r.Assignee || r.Dealer
}

// CanAccess is the single allow/deny decision for every complaint action.
// It assumes an active actor; Authorize adds the active-account check.
func CanAccess(role domain.Role, rel Relation, action Action) bool {
	switch action {
	case ActionCreate, ActionList:
		return role.IsValid()
	case ActionView, ActionComment:
		return role == domain.RoleAdmin || rel.participant()
	case ActionCommentInternal:
		return role.IsStaff() && (role == domain.RoleAdmin || rel.participant())
	case ActionUpdateStatus, ActionViewStats:
		return role.IsStaff()
	case ActionRate:
		return rel.Owner
	case ActionAssign, ActionManageUsers:
		return role == domain.RoleAdmin
	}
	return false
}

// Authorize re-checks that the actor is present and active before applying
// CanAccess. A missing or deactivated actor is rejected exactly like an
// invalid credential.
func Authorize(actor *domain.User, rel Relation, action Action) error {
	if err := RequireActive(actor); err != nil {
		return err
	}
	if !CanAccess(actor.Role, rel, action) {
		return apperrors.NewForbidden(forbiddenMessage(action))
	}
	return nil
}

// RequireActive rejects a missing or deactivated actor.
func RequireActive(actor *domain.User) error {
	if actor == nil || !actor.IsActive {
		return apperrors.NewUnauthenticated(MsgNotAuthorized)
	}
	return nil
}

// MsgNotAuthorized is the single message for every authentication failure.
const MsgNotAuthorized = "Not authorized to access this route"

func forbiddenMessage(action Action) string {
	switch action {
	case ActionCommentInternal:
		return "Customers cannot add internal comments"
	case ActionUpdateStatus:
		return "Only admins and dealers can update complaint status"
	case ActionRate:
		return "Only the complaint owner can rate it"
	case ActionAssign:
		return "Only admins can assign complaints"
	case ActionViewStats:
		return "Only admins and dealers can view dashboard statistics"
	case ActionManageUsers:
		return "Only admins can manage user accounts"
	}
	return "Not authorized to access this complaint"
}
