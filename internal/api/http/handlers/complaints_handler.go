package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/praveenrathi4/complain-app/internal/api/dto"
	"github.com/praveenrathi4/complain-app/internal/attachment"
	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/service"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// ComplaintsHandler exposes the complaint lifecycle.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
	stats      *service.StatsService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService, stats *service.StatsService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints, stats: stats}
}

// Create POST /complaints. Accepts JSON or multipart with attachments.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	input, err := parseCreateComplaint(c)
	if err != nil {
		return err
	}
	input.IPAddress = c.IP()
	input.UserAgent = c.Get(fiber.HeaderUserAgent)

	complaint, err := h.complaints.Create(c.UserContext(), user, input)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Complaint submitted successfully", fiber.Map{"complaint": complaint})
}

// List GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	result, err := h.complaints.List(c.UserContext(), user, service.ListQuery{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy", "createdAt"),
		SortOrder: c.Query("sortOrder", "desc"),
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", result)
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	complaint, err := h.complaints.GetByID(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"complaint": complaint})
}

// UpdateStatus PUT /complaints/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	complaint, err := h.complaints.UpdateStatus(c.UserContext(), user, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Complaint status updated successfully", fiber.Map{"complaint": complaint})
}

// AddComment POST /complaints/:id/comments.
func (h *ComplaintsHandler) AddComment(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.complaints.AddComment(c.UserContext(), user, c.Params("id"), req.Message, req.IsInternal)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Comment added successfully", dto.CommentResponse{Comment: *comment})
}

// Rate POST /complaints/:id/rating.
func (h *ComplaintsHandler) Rate(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.RateComplaintRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rating, err := h.complaints.Rate(c.UserContext(), user, c.Params("id"), req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Rating submitted successfully", fiber.Map{"rating": rating})
}

// Assign PUT /complaints/:id/assign.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignComplaintRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	complaint, err := h.complaints.Assign(c.UserContext(), user, c.Params("id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Complaint assigned successfully", fiber.Map{"complaint": complaint})
}

// Dashboard GET /complaints/stats/dashboard.
func (h *ComplaintsHandler) Dashboard(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.Dashboard(c.UserContext(), user, c.Query("timeframe"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", stats)
}

func parseCreateComplaint(c *fiber.Ctx) (service.ComplaintCreateInput, error) {
	var (
		req     dto.CreateComplaintRequest
		uploads []attachment.Upload
	)
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return service.ComplaintCreateInput{}, apperrors.NewValidationError("Invalid multipart payload", nil)
		}
		if err := decodeComplaintForm(c, form, &req); err != nil {
			return service.ComplaintCreateInput{}, err
		}
		uploads = attachment.FromFileHeaders(form.File["attachments"])
	} else if err := parseBody(c, &req); err != nil {
		return service.ComplaintCreateInput{}, err
	}

	return service.ComplaintCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Source:        req.Source,
		Tags:          req.Tags,
		Location:      req.Location,
		Communication: req.Communication,
		Attachments:   uploads,
	}, nil
}

// decodeComplaintForm reads form values. Tags may be repeated, comma
// separated or a JSON array; location and communication are JSON objects.
func decodeComplaintForm(c *fiber.Ctx, form *multipart.Form, req *dto.CreateComplaintRequest) error {
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}
	decode := c.App().Config().JSONDecoder

	req.Title = value("title")
	req.Description = value("description")
	req.Category = domain.ComplaintCategory(value("category"))
	req.Priority = domain.ComplaintPriority(value("priority"))
	req.Source = domain.ComplaintSource(value("source"))

	for _, raw := range form.Value["tags"] {
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "[") {
			var tags []string
			if err := decode([]byte(raw), &tags); err != nil {
				return apperrors.NewFieldValidationError("tags", "tags must be a list of strings")
			}
			req.Tags = append(req.Tags, tags...)
			continue
		}
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	if raw := value("location"); raw != "" {
		var loc domain.Location
		if err := decode([]byte(raw), &loc); err != nil {
			return apperrors.NewFieldValidationError("location", "location must be a JSON object")
		}
		req.Location = &loc
	}
	if raw := value("communication"); raw != "" {
		var prefs domain.Communication
		if err := decode([]byte(raw), &prefs); err != nil {
			return apperrors.NewFieldValidationError("communication", "communication must be a JSON object")
		}
		req.Communication = &prefs
	}
	return nil
}
