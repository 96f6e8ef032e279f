package events

import (
	"time"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintCommented     EventType = "complaint_commented"
	EventComplaintRated         EventType = "complaint_rated"
	EventComplaintAssigned      EventType = "complaint_assigned"
)

// Event represents a committed change to a complaint.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaint_id"`
	ActorID     string    `json:"actor_id"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// ComplaintCreatedPayload carries the stored complaint.
type ComplaintCreatedPayload struct {
	Complaint domain.Complaint `json:"complaint"`
}

// ComplaintStatusChangedPayload carries the complaint after the change.
type ComplaintStatusChangedPayload struct {
	Complaint     domain.Complaint       `json:"complaint"`
	OldStatus     domain.ComplaintStatus `json:"old_status"`
	NewStatus     domain.ComplaintStatus `json:"new_status"`
	Comment       string                 `json:"comment,omitempty"`
	UpdateMessage string                 `json:"update_message"`
}

// ComplaintCommentedPayload payload.
type ComplaintCommentedPayload struct {
	CommentID  string `json:"comment_id"`
	IsInternal bool   `json:"is_internal"`
}

// ComplaintRatedPayload payload.
type ComplaintRatedPayload struct {
	Rating int `json:"rating"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	AssigneeID string  `json:"assignee_id"`
	DealerID   *string `json:"dealer_id,omitempty"`
}
