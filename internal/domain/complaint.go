package domain

import (
	"fmt"
	"time"
)

// ComplaintStatus enumerates lifecycle states. Any state may move to any other.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "pending"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusClosed     ComplaintStatus = "closed"
	ComplaintStatusEscalated  ComplaintStatus = "escalated"
)

// IsValid reports whether s is a known status.
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved,
		ComplaintStatusClosed, ComplaintStatusEscalated:
		return true
	}
	return false
}

// Rateable reports whether a satisfaction rating may be stored in this status.
func (s ComplaintStatus) Rateable() bool {
	return s == ComplaintStatusResolved || s == ComplaintStatusClosed
}

// RateableStatuses lists the statuses that accept a rating.
var RateableStatuses = []ComplaintStatus{ComplaintStatusResolved, ComplaintStatusClosed}

// ComplaintPriority enumerates urgency.
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "low"
	ComplaintPriorityMedium ComplaintPriority = "medium"
	ComplaintPriorityHigh   ComplaintPriority = "high"
	ComplaintPriorityUrgent ComplaintPriority = "urgent"
)

// IsValid reports whether p is a known priority.
func (p ComplaintPriority) IsValid() bool {
	switch p {
	case ComplaintPriorityLow, ComplaintPriorityMedium, ComplaintPriorityHigh, ComplaintPriorityUrgent:
		return true
	}
	return false
}

// ComplaintCategory is the closed set of complaint subjects.
type ComplaintCategory string

const (
	CategoryProductQuality   ComplaintCategory = "product_quality"
	CategoryServiceIssue     ComplaintCategory = "service_issue"
	CategoryDeliveryProblem  ComplaintCategory = "delivery_problem"
	CategoryBillingIssue     ComplaintCategory = "billing_issue"
	CategoryTechnicalSupport ComplaintCategory = "technical_support"
	CategoryCustomerService  ComplaintCategory = "customer_service"
	CategoryWarrantyClaim    ComplaintCategory = "warranty_claim"
	CategoryOther            ComplaintCategory = "other"
)

// IsValid reports whether c is a known category.
func (c ComplaintCategory) IsValid() bool {
	switch c {
	case CategoryProductQuality, CategoryServiceIssue, CategoryDeliveryProblem, CategoryBillingIssue,
		CategoryTechnicalSupport, CategoryCustomerService, CategoryWarrantyClaim, CategoryOther:
		return true
	}
	return false
}

// TimelineAction tags a timeline entry.
type TimelineAction string

const (
	TimelineCreated      TimelineAction = "created"
	TimelineStatusChange TimelineAction = "status_change"
	TimelineCommentAdded TimelineAction = "comment_added"
	TimelineRated        TimelineAction = "rated"
	TimelineAssigned     TimelineAction = "assigned"
)

// ComplaintSource records where a complaint was submitted from.
type ComplaintSource string

const (
	SourceWeb      ComplaintSource = "web"
	SourceMobile   ComplaintSource = "mobile"
	SourceWhatsApp ComplaintSource = "whatsapp"
	SourceEmail    ComplaintSource = "email"
	SourcePhone    ComplaintSource = "phone"
)

// Attachment is an opaque reference to an uploaded blob.
type Attachment struct {
	ID           string    `json:"id" bson:"id"`
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	MimeType     string    `json:"mimeType" bson:"mimeType"`
	Size         int64     `json:"size" bson:"size"`
	URL          string    `json:"url" bson:"url"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Location is where the complaint happened.
type Location struct {
	Address     string       `json:"address,omitempty" bson:"address,omitempty"`
	City        string       `json:"city,omitempty" bson:"city,omitempty"`
	State       string       `json:"state,omitempty" bson:"state,omitempty"`
	Country     string       `json:"country,omitempty" bson:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// TimelineEntry is one immutable audit record.
type TimelineEntry struct {
	ID          string         `json:"id" bson:"id"`
	Action      TimelineAction `json:"action" bson:"action"`
	Description string         `json:"description" bson:"description"`
	PerformedBy string         `json:"performedBy" bson:"performedBy"`
	Timestamp   time.Time      `json:"timestamp" bson:"timestamp"`
}

// Comment is one message in the complaint thread.
type Comment struct {
	ID         string    `json:"id" bson:"id"`
	Author     string    `json:"author" bson:"author"`
	Message    string    `json:"message" bson:"message"`
	IsInternal bool      `json:"isInternal" bson:"isInternal"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// SatisfactionRating is the customer's verdict on a resolved complaint.
type SatisfactionRating struct {
	Rating   int       `json:"rating" bson:"rating"`
	Feedback string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	RatedAt  time.Time `json:"ratedAt" bson:"ratedAt"`
}

// Communication holds the per-complaint notification opt-ins.
type Communication struct {
	EmailNotifications    bool `json:"emailNotifications" bson:"emailNotifications"`
	WhatsAppNotifications bool `json:"whatsappNotifications" bson:"whatsappNotifications"`
}

// DefaultCommunication is used when the submitter expresses no preference.
func DefaultCommunication() Communication {
	return Communication{EmailNotifications: true, WhatsAppNotifications: false}
}

// Metadata captures how the complaint reached the system.
type Metadata struct {
	Source    ComplaintSource `json:"source" bson:"source"`
	IPAddress string          `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent string          `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
}

// Complaint is the aggregate tracked from submission to closure.
type Complaint struct {
	ID                   string              `json:"id" bson:"_id"`
	ComplaintID          string              `json:"complaintId" bson:"complaintId"`
	Title                string              `json:"title" bson:"title"`
	Description          string              `json:"description" bson:"description"`
	Category             ComplaintCategory   `json:"category" bson:"category"`
	Priority             ComplaintPriority   `json:"priority" bson:"priority"`
	Status               ComplaintStatus     `json:"status" bson:"status"`
	CustomerID           string              `json:"customer" bson:"customer"`
	AssignedTo           *string             `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	DealerID             *string             `json:"dealer,omitempty" bson:"dealer,omitempty"`
	Attachments          []Attachment        `json:"attachments" bson:"attachments"`
	Location             *Location           `json:"location,omitempty" bson:"location,omitempty"`
	Tags                 []string            `json:"tags" bson:"tags"`
	Comments             []Comment           `json:"comments" bson:"comments"`
	Timeline             []TimelineEntry     `json:"timeline" bson:"timeline"`
	ActualResolutionDate *time.Time          `json:"actualResolutionDate,omitempty" bson:"actualResolutionDate,omitempty"`
	SatisfactionRating   *SatisfactionRating `json:"satisfactionRating,omitempty" bson:"satisfactionRating,omitempty"`
	Communication        Communication       `json:"communication" bson:"communication"`
	Metadata             Metadata            `json:"metadata" bson:"metadata"`
	CreatedAt            time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// IsAssignedTo reports whether userID is the complaint's assignee.
func (c *Complaint) IsAssignedTo(userID string) bool {
	return c.AssignedTo != nil && *c.AssignedTo == userID
}

// IsDealer reports whether userID is the complaint's dealer.
func (c *Complaint) IsDealer(userID string) bool {
	return c.DealerID != nil && *c.DealerID == userID
}

// VisibleComments drops internal comments when the viewer is not staff.
func (c *Complaint) VisibleComments(viewer Role) []Comment {
	if viewer.IsStaff() {
		return c.Comments
	}
	visible := make([]Comment, 0, len(c.Comments))
	for _, comment := range c.Comments {
		if !comment.IsInternal {
			visible = append(visible, comment)
		}
	}
	return visible
}

// ComplaintPeriod returns the UTC calendar month [start, end) that t falls in.
func ComplaintPeriod(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// PeriodKey is the YYYYMM key used for the monthly sequence.
func PeriodKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d%02d", t.Year(), int(t.Month()))
}

// FormatComplaintID renders CMP-YYYYMM-NNNN.
func FormatComplaintID(t time.Time, seq int64) string {
	return fmt.Sprintf("CMP-%s-%04d", PeriodKey(t), seq)
}
