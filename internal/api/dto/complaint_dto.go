package dto

import "github.com/praveenrathi4/complain-app/internal/domain"

// CreateComplaintRequest payload. Multipart submissions carry the same fields
// as form values, with location and communication encoded as JSON.
type CreateComplaintRequest struct {
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Category      domain.ComplaintCategory `json:"category"`
	Priority      domain.ComplaintPriority `json:"priority"`
	Source        domain.ComplaintSource   `json:"source"`
	Tags          []string                 `json:"tags"`
	Location      *domain.Location         `json:"location"`
	Communication *domain.Communication    `json:"communication"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.ComplaintStatus `json:"status"`
	Comment string                 `json:"comment"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Message    string `json:"message"`
	IsInternal bool   `json:"isInternal"`
}

// RateComplaintRequest payload.
type RateComplaintRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// AssignComplaintRequest payload.
type AssignComplaintRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// CommentResponse wraps a newly added comment.
type CommentResponse struct {
	Comment domain.Comment `json:"comment"`
}
