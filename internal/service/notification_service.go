package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/events"
	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/worker"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// Sender is the notification capability used by services.
type Sender interface {
	Send(ctx context.Context, channel notify.ChannelName, recipient string, kind notify.TemplateKind, data notify.TemplateData) notify.Outcome
	Fanout(ctx context.Context, deliveries []notify.Delivery, kind notify.TemplateKind, data notify.TemplateData) []notify.Outcome
}

// NotificationService tells customers about committed complaint changes.
// Deliveries run on the worker pool and their failures are only logged.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Sender
	users      repository.UserRepository
	pool       *worker.Pool
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil pool runs deliveries
// inline.
func NewNotificationService(dispatcher events.Dispatcher, notifier Sender, users repository.UserRepository, pool *worker.Pool, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		users:      users,
		pool:       pool,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleComplaintStatusChanged)
}

func (n *NotificationService) handleComplaintCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok {
		return nil
	}
	n.enqueue(payload.Complaint, notify.KindComplaintCreated, "")
	return nil
}

func (n *NotificationService) handleComplaintStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok {
		return nil
	}
	n.enqueue(payload.Complaint, notify.KindComplaintUpdated, payload.UpdateMessage)
	return nil
}

func (n *NotificationService) enqueue(complaint domain.Complaint, kind notify.TemplateKind, updateMessage string) {
	job := func(ctx context.Context) {
		n.deliver(ctx, complaint, kind, updateMessage)
	}
	if n.pool == nil {
		job(context.Background())
		return
	}
	if !n.pool.Submit(job) {
		n.logger.Warn("notification dropped",
			zap.String("complaint_id", complaint.ComplaintID),
			zap.String("kind", string(kind)))
	}
}

func (n *NotificationService) deliver(ctx context.Context, complaint domain.Complaint, kind notify.TemplateKind, updateMessage string) {
	prefs := complaint.Communication
	if !prefs.EmailNotifications && !prefs.WhatsAppNotifications {
		return
	}
	customer, err := n.users.GetByID(ctx, complaint.CustomerID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed",
			zap.String("complaint_id", complaint.ComplaintID),
			zap.Error(err))
		return
	}

	var deliveries []notify.Delivery
	if prefs.EmailNotifications {
		deliveries = append(deliveries, notify.Delivery{Channel: notify.ChannelEmail, Recipient: customer.Email})
	}
	if prefs.WhatsAppNotifications {
		deliveries = append(deliveries, notify.Delivery{Channel: notify.ChannelWhatsApp, Recipient: customer.WhatsAppAddress()})
	}

	data := notify.TemplateData{
		RecipientName: customer.Name,
		ComplaintID:   complaint.ComplaintID,
		Title:         complaint.Title,
		Category:      string(complaint.Category),
		Status:        string(complaint.Status),
		Priority:      string(complaint.Priority),
		SubmittedAt:   complaint.CreatedAt,
		UpdateMessage: updateMessage,
	}
	for _, outcome := range n.notifier.Fanout(ctx, deliveries, kind, data) {
		if outcome.Status != notify.OutcomeFailed {
			continue
		}
		n.logger.Error("complaint notification failed",
			zap.String("complaint_id", complaint.ComplaintID),
			zap.String("kind", string(kind)),
			zap.Error(apperrors.NewUpstreamChannelFailure(string(outcome.Channel), outcome.Err)))
	}
}
