package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/attachment"
	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/events"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/validation"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// sequenceAttempts bounds retries when a generated complaint id collides.
	sequenceAttempts = 3
)

// ComplaintService owns the complaint lifecycle.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	users       repository.UserRepository
	attachments attachment.Store
	dispatcher  events.Dispatcher
	validator   *validation.Validator
	logger      *zap.Logger
	now         func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo   repository.ComplaintRepository
	UserRepo        repository.UserRepository
	AttachmentStore attachment.Store
	Dispatcher      events.Dispatcher
	Validator       *validation.Validator
	Logger          *zap.Logger
	Clock           func() time.Time
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	s := &ComplaintService{
		complaints:  deps.ComplaintRepo,
		users:       deps.UserRepo,
		attachments: deps.AttachmentStore,
		dispatcher:  deps.Dispatcher,
		validator:   deps.Validator,
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ComplaintCreateInput describes a new complaint.
type ComplaintCreateInput struct {
	Title         string                   `json:"title" validate:"required,min=5,max=100"`
	Description   string                   `json:"description" validate:"required,min=10,max=2000"`
	Category      domain.ComplaintCategory `json:"category" validate:"required,complaint_category"`
	Priority      domain.ComplaintPriority `json:"priority" validate:"omitempty,complaint_priority"`
	Location      *domain.Location         `json:"location"`
	Tags          []string                 `json:"tags" validate:"max=20,dive,max=50"`
	Communication *domain.Communication    `json:"communication"`
	Source        domain.ComplaintSource   `json:"source" validate:"omitempty,oneof=web mobile whatsapp email phone"`
	IPAddress     string                   `json:"-"`
	UserAgent     string                   `json:"-"`
	Attachments   []attachment.Upload      `json:"-"`
}

// ListQuery carries raw list parameters.
type ListQuery struct {
	Page      int
	Limit     int
	Status    string
	Category  string
	Priority  string
	Search    string
	SortBy    string
	SortOrder string
}

// Pagination describes a page of results.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

// ListResult is one page of complaints.
type ListResult struct {
	Complaints []domain.Complaint `json:"complaints"`
	Pagination Pagination         `json:"pagination"`
}

// Create files a complaint on behalf of actor.
func (s *ComplaintService) Create(ctx context.Context, actor *domain.User, input ComplaintCreateInput) (*domain.Complaint, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionCreate); err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.ComplaintPriorityMedium
	}
	if input.Source == "" {
		input.Source = domain.SourceWeb
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if loc := input.Location; loc != nil && loc.Coordinates != nil {
		if math.Abs(loc.Coordinates.Latitude) > 90 || math.Abs(loc.Coordinates.Longitude) > 180 {
			return nil, apperrors.NewFieldValidationError("location.coordinates", "coordinates are out of range")
		}
	}

	attachments := []domain.Attachment{}
	if len(input.Attachments) > 0 {
		if s.attachments == nil {
			return nil, apperrors.NewFieldValidationError("attachments", "attachments are not accepted")
		}
		saved, err := attachment.SaveAll(ctx, s.attachments, input.Attachments)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeValidationFailed) {
				return nil, err
			}
			return nil, apperrors.NewInternalError(err)
		}
		attachments = saved
	}

	communication := domain.DefaultCommunication()
	if input.Communication != nil {
		communication = *input.Communication
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	// Past this point the write runs to completion.
	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	complaint := &domain.Complaint{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.ComplaintStatusPending,
		CustomerID:  actor.ID,
		Attachments: attachments,
		Location:    input.Location,
		Tags:        tags,
		Comments:    []domain.Comment{},
		Timeline: []domain.TimelineEntry{{
			ID:          uuid.NewString(),
			Action:      domain.TimelineCreated,
			Description: "Complaint submitted by customer",
			PerformedBy: actor.ID,
			Timestamp:   now,
		}},
		Communication: communication,
		Metadata: domain.Metadata{
			Source:    input.Source,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.insertWithSequence(ctx, complaint, now); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventComplaintCreated, complaint.ID, actor.ID, now,
		events.ComplaintCreatedPayload{Complaint: *complaint})
	return complaint, nil
}

func (s *ComplaintService) insertWithSequence(ctx context.Context, complaint *domain.Complaint, now time.Time) error {
	var err error
	for attempt := 0; attempt < sequenceAttempts; attempt++ {
		var seq int64
		seq, err = s.complaints.NextSequence(ctx, now)
		if err != nil {
			return fmt.Errorf("next complaint sequence: %w", err)
		}
		complaint.ComplaintID = domain.FormatComplaintID(now, seq)
		err = s.complaints.Create(ctx, complaint)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.logger.Warn("complaint id collision, retrying", zap.String("complaint_id", complaint.ComplaintID))
	}
	return err
}

// UpdateStatus moves a complaint to status. Any status may follow any other.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *domain.User, ref string, status domain.ComplaintStatus, comment string) (*domain.Complaint, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionUpdateStatus); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperrors.NewFieldValidationError("status", "Invalid status")
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > 1000 {
		return nil, apperrors.NewFieldValidationError("comment", "comment cannot exceed 1000 characters")
	}

	complaint, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	oldStatus := complaint.Status
	transition := fmt.Sprintf("Status changed from %s to %s", oldStatus, status)

	change := repository.StatusChange{
		Status:    status,
		UpdatedAt: now,
		Entry: domain.TimelineEntry{
			ID:          uuid.NewString(),
			Action:      domain.TimelineStatusChange,
			Description: transition,
			PerformedBy: actor.ID,
			Timestamp:   now,
		},
	}
	if status == domain.ComplaintStatusResolved {
		change.ResolvedAt = &now
	}
	if comment != "" {
		change.Entry.Description = comment
		change.Comment = &domain.Comment{
			ID:        uuid.NewString(),
			Author:    actor.ID,
			Message:   comment,
			CreatedAt: now,
		}
	}

	if err := s.complaints.UpdateStatus(ctx, complaint.ID, change); err != nil {
		return nil, s.mapRepoError(err)
	}

	complaint.Status = status
	complaint.UpdatedAt = now
	if change.ResolvedAt != nil {
		complaint.ActualResolutionDate = change.ResolvedAt
	}
	complaint.Timeline = append(complaint.Timeline, change.Entry)
	if change.Comment != nil {
		complaint.Comments = append(complaint.Comments, *change.Comment)
	}

	updateMessage := transition
	if comment != "" {
		updateMessage = comment
	}
	s.publish(ctx, events.EventComplaintStatusChanged, complaint.ID, actor.ID, now,
		events.ComplaintStatusChangedPayload{
			Complaint:     *complaint,
			OldStatus:     oldStatus,
			NewStatus:     status,
			Comment:       comment,
			UpdateMessage: updateMessage,
		})
	return complaint, nil
}

// AddComment appends a comment to the thread. Comments do not notify.
func (s *ComplaintService) AddComment(ctx context.Context, actor *domain.User, ref, message string, isInternal bool) (*domain.Comment, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewFieldValidationError("message", "message is required")
	}
	if len([]rune(message)) > 1000 {
		return nil, apperrors.NewFieldValidationError("message", "message cannot exceed 1000 characters")
	}

	complaint, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	rel := auth.RelationTo(actor, complaint)
	if err := auth.Authorize(actor, rel, auth.ActionComment); err != nil {
		return nil, err
	}
	if isInternal {
		if err := auth.Authorize(actor, rel, auth.ActionCommentInternal); err != nil {
			return nil, err
		}
	}

	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	comment := domain.Comment{
		ID:         uuid.NewString(),
		Author:     actor.ID,
		Message:    message,
		IsInternal: isInternal,
		CreatedAt:  now,
	}
	entry := domain.TimelineEntry{
		ID:          uuid.NewString(),
		Action:      domain.TimelineCommentAdded,
		Description: "Comment added to complaint",
		PerformedBy: actor.ID,
		Timestamp:   now,
	}
	if err := s.complaints.AppendComment(ctx, complaint.ID, comment, entry); err != nil {
		return nil, s.mapRepoError(err)
	}

	s.publish(ctx, events.EventComplaintCommented, complaint.ID, actor.ID, now,
		events.ComplaintCommentedPayload{CommentID: comment.ID, IsInternal: isInternal})
	return &comment, nil
}

// Rate stores the owner's satisfaction rating. A later rating replaces an
// earlier one.
func (s *ComplaintService) Rate(ctx context.Context, actor *domain.User, ref string, rating int, feedback string) (*domain.SatisfactionRating, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewFieldValidationError("rating", "Rating must be between 1 and 5")
	}
	feedback = strings.TrimSpace(feedback)
	if len([]rune(feedback)) > 500 {
		return nil, apperrors.NewFieldValidationError("feedback", "feedback cannot exceed 500 characters")
	}

	complaint, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.RelationTo(actor, complaint), auth.ActionRate); err != nil {
		return nil, err
	}
	if !complaint.Status.Rateable() {
		return nil, errNotRateable
	}

	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	stored := domain.SatisfactionRating{Rating: rating, Feedback: feedback, RatedAt: now}
	entry := domain.TimelineEntry{
		ID:          uuid.NewString(),
		Action:      domain.TimelineRated,
		Description: fmt.Sprintf("Customer rated complaint %d/5 stars", rating),
		PerformedBy: actor.ID,
		Timestamp:   now,
	}
	if err := s.complaints.SetRating(ctx, complaint.ID, stored, entry); err != nil {
		return nil, s.mapRepoError(err)
	}

	s.publish(ctx, events.EventComplaintRated, complaint.ID, actor.ID, now,
		events.ComplaintRatedPayload{Rating: rating})
	return &stored, nil
}

var errNotRateable = apperrors.NewInvalidState("Can only rate resolved or closed complaints")

var errInvalidAssignee = apperrors.NewFieldValidationError("assignedTo", "Invalid assignee")

// Assign hands a complaint to a dealer or admin. The assignee is checked
// before the caller's permission; callers other than admins get one
// message for every assignee problem so user ids cannot be enumerated.
func (s *ComplaintService) Assign(ctx context.Context, actor *domain.User, ref, assigneeID string) (*domain.Complaint, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, strings.TrimSpace(assigneeID))
	if err != nil {
		if actor.Role != domain.RoleAdmin && apperrors.HasCode(err, apperrors.CodeValidationFailed) {
			return nil, errInvalidAssignee
		}
		return nil, err
	}
	if err := auth.Authorize(actor, auth.None, auth.ActionAssign); err != nil {
		return nil, err
	}

	complaint, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	assignment := repository.Assignment{
		AssigneeID: assignee.ID,
		UpdatedAt:  now,
		Entry: domain.TimelineEntry{
			ID:          uuid.NewString(),
			Action:      domain.TimelineAssigned,
			Description: "Complaint assigned to " + assignee.Name,
			PerformedBy: actor.ID,
			Timestamp:   now,
		},
	}
	if assignee.Role == domain.RoleDealer {
		assignment.DealerID = &assignee.ID
	}
	if err := s.complaints.Assign(ctx, complaint.ID, assignment); err != nil {
		return nil, s.mapRepoError(err)
	}

	complaint.AssignedTo = &assignee.ID
	if assignment.DealerID != nil {
		complaint.DealerID = assignment.DealerID
	}
	complaint.UpdatedAt = now
	complaint.Timeline = append(complaint.Timeline, assignment.Entry)

	s.publish(ctx, events.EventComplaintAssigned, complaint.ID, actor.ID, now,
		events.ComplaintAssignedPayload{AssigneeID: assignee.ID, DealerID: assignment.DealerID})
	return complaint, nil
}

func (s *ComplaintService) resolveAssignee(ctx context.Context, assigneeID string) (*domain.User, error) {
	if assigneeID == "" {
		return nil, apperrors.NewFieldValidationError("assignedTo", "assignedTo is required")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewFieldValidationError("assignedTo", "Assignee not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewFieldValidationError("assignedTo", "Can only assign to dealers or admins")
	}
	if !assignee.IsActive {
		return nil, apperrors.NewFieldValidationError("assignedTo", "Assignee account is deactivated")
	}
	return assignee, nil
}

// List returns the page of complaints visible to actor.
func (s *ComplaintService) List(ctx context.Context, actor *domain.User, query ListQuery) (*ListResult, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionList); err != nil {
		return nil, err
	}

	filter := repository.ComplaintFilter{
		Search:  strings.TrimSpace(query.Search),
		SortBy:  repository.ParseSortField(query.SortBy),
		SortAsc: strings.EqualFold(query.SortOrder, "asc"),
	}
	if query.Status != "" {
		status := domain.ComplaintStatus(query.Status)
		if !status.IsValid() {
			return nil, apperrors.NewFieldValidationError("status", "Invalid status")
		}
		filter.Status = &status
	}
	if query.Category != "" {
		category := domain.ComplaintCategory(query.Category)
		if !category.IsValid() {
			return nil, apperrors.NewFieldValidationError("category", "Invalid category")
		}
		filter.Category = &category
	}
	if query.Priority != "" {
		priority := domain.ComplaintPriority(query.Priority)
		if !priority.IsValid() {
			return nil, apperrors.NewFieldValidationError("priority", "Invalid priority")
		}
		filter.Priority = &priority
	}

	switch actor.Role {
	case domain.RoleCustomer:
		filter.CustomerID = &actor.ID
	case domain.RoleDealer:
		filter.ParticipantID = &actor.ID
	}

	page, limit := normalizePage(query.Page, query.Limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	complaints, total, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for i := range complaints {
		complaints[i].Comments = complaints[i].VisibleComments(actor.Role)
		if complaints[i].Comments == nil {
			complaints[i].Comments = []domain.Comment{}
		}
		if complaints[i].Timeline == nil {
			complaints[i].Timeline = []domain.TimelineEntry{}
		}
	}
	if complaints == nil {
		complaints = []domain.Complaint{}
	}

	return &ListResult{
		Complaints: complaints,
		Pagination: Pagination{
			Current: page,
			Pages:   int((total + int64(limit) - 1) / int64(limit)),
			Total:   total,
			Limit:   limit,
		},
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// GetByID returns a complaint the actor may view. Internal comments are only
// returned to staff.
func (s *ComplaintService) GetByID(ctx context.Context, actor *domain.User, ref string) (*domain.Complaint, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	complaint, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.RelationTo(actor, complaint), auth.ActionView); err != nil {
		return nil, err
	}
	complaint.Comments = complaint.VisibleComments(actor.Role)
	return complaint, nil
}

// load accepts either the storage id or the public CMP- identifier.
func (s *ComplaintService) load(ctx context.Context, ref string) (*domain.Complaint, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.NewNotFound("Complaint")
	}
	var (
		complaint *domain.Complaint
		err       error
	)
	if strings.HasPrefix(strings.ToUpper(ref), "CMP-") {
		complaint, err = s.complaints.GetByComplaintID(ctx, strings.ToUpper(ref))
	} else {
		complaint, err = s.complaints.GetByID(ctx, ref)
	}
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return complaint, nil
}

func (s *ComplaintService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("Complaint")
	case errors.Is(err, repository.ErrStatusConflict):
		return errNotRateable
	}
	return apperrors.NewInternalError(err)
}

func (s *ComplaintService) publish(ctx context.Context, eventType events.EventType, complaintID, actorID string, at time.Time, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		ActorID:     actorID,
		Timestamp:   at,
		Payload:     payload,
	})
}
