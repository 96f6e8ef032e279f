package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

var (
	owner    = auth.Relation{Owner: true}
	assignee = auth.Relation{Assignee: true}
	dealerOf = auth.Relation{Dealer: true}
	stranger = auth.None
)

func TestCanAccess_Matrix(t *testing.T) {
	cases := []struct {
		name   string
		role   domain.Role
		rel    auth.Relation
		action auth.Action
		want   bool
	}{
		{"customer creates", domain.RoleCustomer, stranger, auth.ActionCreate, true},
		{"customer views own", domain.RoleCustomer, owner, auth.ActionView, true},
		{"customer views other", domain.RoleCustomer, stranger, auth.ActionView, false},
		{"dealer views as dealer", domain.RoleDealer, dealerOf, auth.ActionView, true},
		{"dealer views as assignee", domain.RoleDealer, assignee, auth.ActionView, true},
		{"dealer views unrelated", domain.RoleDealer, stranger, auth.ActionView, false},
		{"admin views anything", domain.RoleAdmin, stranger, auth.ActionView, true},
		{"customer comments own", domain.RoleCustomer, owner, auth.ActionComment, true},
		{"customer internal comment own", domain.RoleCustomer, owner, auth.ActionCommentInternal, false},
		{"dealer internal comment as assignee", domain.RoleDealer, assignee, auth.ActionCommentInternal, true},
		{"dealer internal comment unrelated", domain.RoleDealer, stranger, auth.ActionCommentInternal, false},
		{"admin internal comment", domain.RoleAdmin, stranger, auth.ActionCommentInternal, true},
		{"customer updates status", domain.RoleCustomer, owner, auth.ActionUpdateStatus, false},
		{"dealer updates status", domain.RoleDealer, stranger, auth.ActionUpdateStatus, true},
		{"admin updates status", domain.RoleAdmin, stranger, auth.ActionUpdateStatus, true},
		{"owner rates", domain.RoleCustomer, owner, auth.ActionRate, true},
		{"admin rates someone else's", domain.RoleAdmin, stranger, auth.ActionRate, false},
		{"dealer assigns", domain.RoleDealer, dealerOf, auth.ActionAssign, false},
		{"admin assigns", domain.RoleAdmin, stranger, auth.ActionAssign, true},
		{"customer stats", domain.RoleCustomer, stranger, auth.ActionViewStats, false},
		{"dealer stats", domain.RoleDealer, stranger, auth.ActionViewStats, true},
		{"admin manages users", domain.RoleAdmin, stranger, auth.ActionManageUsers, true},
		{"dealer manages users", domain.RoleDealer, stranger, auth.ActionManageUsers, false},
		{"unknown role lists", domain.Role("guest"), stranger, auth.ActionList, false},
		{"unknown action", domain.RoleAdmin, stranger, auth.Action("delete"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.CanAccess(tc.role, tc.rel, tc.action))
		})
	}
}

func TestAuthorize_InactiveActorFailsLikeBadCredential(t *testing.T) {
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin, IsActive: false}

	err := auth.Authorize(admin, stranger, auth.ActionView)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
	assert.Equal(t, auth.MsgNotAuthorized, apperrors.ToDomainError(err).Message)
}

func TestAuthorize_NilActor(t *testing.T) {
	err := auth.Authorize(nil, stranger, auth.ActionCreate)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestAuthorize_DeniedIsForbidden(t *testing.T) {
	customer := &domain.User{ID: "c1", Role: domain.RoleCustomer, IsActive: true}

	err := auth.Authorize(customer, owner, auth.ActionCommentInternal)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestRelationTo(t *testing.T) {
	dealerID := "d1"
	complaint := &domain.Complaint{CustomerID: "c1", AssignedTo: &dealerID, DealerID: &dealerID}

	assert.Equal(t, owner, auth.RelationTo(&domain.User{ID: "c1"}, complaint))
	assert.Equal(t, auth.Relation{Assignee: true, Dealer: true}, auth.RelationTo(&domain.User{ID: "d1"}, complaint))
	assert.Equal(t, stranger, auth.RelationTo(&domain.User{ID: "x"}, complaint))
	assert.Equal(t, stranger, auth.RelationTo(nil, complaint))
}
