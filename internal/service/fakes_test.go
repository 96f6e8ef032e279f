package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/whatsapp"
)

// fakeComplaints is an in-memory ComplaintRepository.
type fakeComplaints struct {
	mu       sync.Mutex
	byID     map[string]*domain.Complaint
	counters map[string]int64
}

func newFakeComplaints() *fakeComplaints {
	return &fakeComplaints{byID: map[string]*domain.Complaint{}, counters: map[string]int64{}}
}

func cloneComplaint(c *domain.Complaint) *domain.Complaint {
	out := *c
	out.Comments = append([]domain.Comment{}, c.Comments...)
	out.Timeline = append([]domain.TimelineEntry{}, c.Timeline...)
	out.Attachments = append([]domain.Attachment{}, c.Attachments...)
	out.Tags = append([]string{}, c.Tags...)
	if c.SatisfactionRating != nil {
		rating := *c.SatisfactionRating
		out.SatisfactionRating = &rating
	}
	return &out
}

func (f *fakeComplaints) NextSequence(_ context.Context, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.PeriodKey(at)
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeComplaints) Create(_ context.Context, c *domain.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.ComplaintID == c.ComplaintID {
			return repository.ErrDuplicate
		}
	}
	f.byID[c.ID] = cloneComplaint(c)
	return nil
}

func (f *fakeComplaints) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneComplaint(c), nil
}

func (f *fakeComplaints) GetByComplaintID(_ context.Context, complaintID string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.ComplaintID == complaintID {
			return cloneComplaint(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeComplaints) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.Complaint
	search := strings.ToLower(filter.Search)
	for _, c := range f.byID {
		switch {
		case filter.CustomerID != nil && c.CustomerID != *filter.CustomerID:
			continue
		case filter.ParticipantID != nil && !c.IsAssignedTo(*filter.ParticipantID) && !c.IsDealer(*filter.ParticipantID):
			continue
		case filter.Status != nil && c.Status != *filter.Status:
			continue
		case filter.Category != nil && c.Category != *filter.Category:
			continue
		case filter.Priority != nil && c.Priority != *filter.Priority:
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) &&
			!strings.Contains(strings.ToLower(c.ComplaintID), search) {
			continue
		}
		// list rows carry no thread, like both real backends
		row := *cloneComplaint(c)
		row.Comments, row.Timeline = nil, nil
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filter.SortAsc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeComplaints) UpdateStatus(_ context.Context, id string, change repository.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = change.Status
	if change.ResolvedAt != nil {
		resolved := *change.ResolvedAt
		c.ActualResolutionDate = &resolved
	}
	c.Timeline = append(c.Timeline, change.Entry)
	if change.Comment != nil {
		c.Comments = append(c.Comments, *change.Comment)
	}
	c.UpdatedAt = change.UpdatedAt
	return nil
}

func (f *fakeComplaints) AppendComment(_ context.Context, id string, comment domain.Comment, entry domain.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Comments = append(c.Comments, comment)
	c.Timeline = append(c.Timeline, entry)
	return nil
}

func (f *fakeComplaints) SetRating(_ context.Context, id string, rating domain.SatisfactionRating, entry domain.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.Status.Rateable() {
		return repository.ErrStatusConflict
	}
	c.SatisfactionRating = &rating
	c.Timeline = append(c.Timeline, entry)
	return nil
}

func (f *fakeComplaints) Assign(_ context.Context, id string, a repository.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	assignee := a.AssigneeID
	c.AssignedTo = &assignee
	if a.DealerID != nil {
		dealer := *a.DealerID
		c.DealerID = &dealer
	}
	c.Timeline = append(c.Timeline, a.Entry)
	return nil
}

func (f *fakeComplaints) Stats(_ context.Context, since time.Time) (*domain.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.DashboardStats{Since: since}
	categories := map[domain.ComplaintCategory]int64{}
	var ratingSum, ratingCount int
	for _, c := range f.byID {
		if c.CreatedAt.Before(since) {
			continue
		}
		stats.Overview.Total++
		switch c.Status {
		case domain.ComplaintStatusPending:
			stats.Overview.Pending++
		case domain.ComplaintStatusInProgress:
			stats.Overview.InProgress++
		case domain.ComplaintStatusResolved:
			stats.Overview.Resolved++
		case domain.ComplaintStatusClosed:
			stats.Overview.Closed++
		case domain.ComplaintStatusEscalated:
			stats.Overview.Escalated++
		}
		if c.SatisfactionRating != nil {
			ratingSum += c.SatisfactionRating.Rating
			ratingCount++
		}
		categories[c.Category]++
	}
	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		stats.Overview.AvgRating = &avg
	}
	for category, count := range categories {
		stats.CategoryStats = append(stats.CategoryStats, domain.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(stats.CategoryStats, func(i, j int) bool {
		a, b := stats.CategoryStats[i], stats.CategoryStats[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	return stats, nil
}

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*domain.User
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Phone == phone || u.WhatsAppNumber == phone })
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (f *fakeUsers) ListByRoles(_ context.Context, roles []domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.byID {
		for _, r := range roles {
			if u.Role == r {
				out = append(out, *u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, channel notify.ChannelName, recipient string, kind notify.TemplateKind, data notify.TemplateData) notify.Outcome {
	return m.Called(ctx, channel, recipient, kind, data).Get(0).(notify.Outcome)
}

func (m *MockSender) Fanout(ctx context.Context, deliveries []notify.Delivery, kind notify.TemplateKind, data notify.TemplateData) []notify.Outcome {
	return m.Called(ctx, deliveries, kind, data).Get(0).([]notify.Outcome)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error) {
	args := m.Called(ctx, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whatsapp.SendResponse), args.Error(1)
}

func (m *MockMessenger) MarkRead(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	customer = &domain.User{ID: "cust-1", Name: "Ann Customer", Email: "ann@example.com", Phone: "+15550100001", Role: domain.RoleCustomer, IsActive: true}
	other    = &domain.User{ID: "cust-2", Name: "Bob Other", Email: "bob@example.com", Role: domain.RoleCustomer, IsActive: true}
	dealer   = &domain.User{ID: "dealer-1", Name: "Dan Dealer", Email: "dan@example.com", Role: domain.RoleDealer, IsActive: true}
	dealer2  = &domain.User{ID: "dealer-2", Name: "Dora Dealer", Email: "dora@example.com", Role: domain.RoleDealer, IsActive: true}
	admin    = &domain.User{ID: "admin-1", Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin, IsActive: true}
)

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}
