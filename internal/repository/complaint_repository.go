package repository

import (
	"context"
	"errors"
	"time"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStatusConflict is returned when a conditional update finds the
	// complaint in a status that does not allow the change.
	ErrStatusConflict = errors.New("complaint status does not allow this change")
)

// SortField is a whitelisted list ordering.
type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
	SortByPriority    SortField = "priority"
	SortByStatus      SortField = "status"
	SortByTitle       SortField = "title"
	SortByComplaintID SortField = "complaintId"
)

// ParseSortField maps a client supplied name onto a whitelisted field.
func ParseSortField(raw string) SortField {
	switch SortField(raw) {
	case SortByCreatedAt, SortByUpdatedAt, SortByPriority, SortByStatus, SortByTitle, SortByComplaintID:
		return SortField(raw)
	}
	return SortByCreatedAt
}

// ComplaintFilter narrows List results. CustomerID and ParticipantID carry the
// caller's visibility scope and are always AND-ed with the other filters.
type ComplaintFilter struct {
	CustomerID    *string
	ParticipantID *string
	Status        *domain.ComplaintStatus
	Category      *domain.ComplaintCategory
	Priority      *domain.ComplaintPriority
	Search        string
	SortBy        SortField
	SortAsc       bool
	Limit         int
	Offset        int
}

// StatusChange is the unit written by UpdateStatus.
type StatusChange struct {
	Status     domain.ComplaintStatus
	ResolvedAt *time.Time
	Entry      domain.TimelineEntry
	Comment    *domain.Comment
	UpdatedAt  time.Time
}

// Assignment is the unit written by Assign.
type Assignment struct {
	AssigneeID string
	DealerID   *string
	Entry      domain.TimelineEntry
	UpdatedAt  time.Time
}

// ComplaintRepository encapsulates complaint persistence. Every timeline and
// comment append is an additive write.
type ComplaintRepository interface {
	NextSequence(ctx context.Context, at time.Time) (int64, error)
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByComplaintID(ctx context.Context, complaintID string) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error)
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	AppendComment(ctx context.Context, id string, comment domain.Comment, entry domain.TimelineEntry) error
	SetRating(ctx context.Context, id string, rating domain.SatisfactionRating, entry domain.TimelineEntry) error
	Assign(ctx context.Context, id string, assignment Assignment) error
	Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error)
}
