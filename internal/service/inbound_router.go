package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/whatsapp"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// Intent is the classification of an inbound chat message.
type Intent string

const (
	IntentHelp            Intent = "help"
	IntentUrgent          Intent = "urgent"
	IntentAgent           Intent = "agent"
	IntentStatus          Intent = "status"
	IntentComplaintLookup Intent = "complaint_lookup"
	IntentFallback        Intent = "fallback"
)

var complaintIDPattern = regexp.MustCompile(`(?i)CMP-\d{6}-\d{4}`)

// Messenger is the outbound half of the WhatsApp API.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error)
	MarkRead(ctx context.Context, messageID string) error
}

// InboundMessage is one text received from a sender.
type InboundMessage struct {
	ID          string
	From        string
	ProfileName string
	Text        string
}

// Reply is the router's answer to an inbound message.
type Reply struct {
	Intent      Intent
	Text        string
	ComplaintID string
}

// InboundRouter answers WhatsApp messages sent to the business number.
type InboundRouter struct {
	users       repository.UserRepository
	complaints  repository.ComplaintRepository
	messenger   Messenger
	verifyToken string
	logger      *zap.Logger
}

// NewInboundRouter constructs the router.
func NewInboundRouter(users repository.UserRepository, complaints repository.ComplaintRepository, messenger Messenger, verifyToken string, logger *zap.Logger) *InboundRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboundRouter{
		users:       users,
		complaints:  complaints,
		messenger:   messenger,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// VerifyWebhook answers the provider's subscription challenge.
func (r *InboundRouter) VerifyWebhook(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || r.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(r.verifyToken)) != 1 {
		return "", apperrors.NewForbidden("Forbidden")
	}
	return challenge, nil
}

// HandleWebhook marks every inbound message read and replies to text
// messages. Failures are logged; the caller always acknowledges the provider.
func (r *InboundRouter) HandleWebhook(ctx context.Context, payload *whatsapp.WebhookPayload) {
	if payload == nil {
		return
	}
	names := map[string]string{}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
		}
	}

	for _, msg := range payload.Messages() {
		if r.messenger != nil && msg.ID != "" {
			if err := r.messenger.MarkRead(ctx, msg.ID); err != nil {
				r.logger.Debug("mark read failed", zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
		text, ok := msg.TextBody()
		if !ok {
			continue
		}
		reply := r.RouteMessage(ctx, InboundMessage{ID: msg.ID, From: msg.From, ProfileName: names[msg.From], Text: text})
		if r.messenger == nil {
			continue
		}
		if _, err := r.messenger.SendText(ctx, msg.From, reply.Text); err != nil {
			r.logger.Warn("whatsapp reply failed",
				zap.String("intent", string(reply.Intent)),
				zap.Error(apperrors.NewUpstreamChannelFailure("whatsapp", err)))
		}
	}
}

// RouteMessage classifies text and builds the reply. Exact keywords win over
// an embedded complaint id, which wins over the greeting.
func (r *InboundRouter) RouteMessage(ctx context.Context, msg InboundMessage) Reply {
	normalized := strings.ToLower(strings.TrimSpace(msg.Text))

	switch normalized {
	case "help", "menu":
		return Reply{Intent: IntentHelp, Text: helpText}
	case "urgent":
		return Reply{Intent: IntentUrgent, Text: fmt.Sprintf(urgentText, r.displayName(ctx, msg))}
	case "agent", "human":
		return Reply{Intent: IntentAgent, Text: fmt.Sprintf(agentText, r.displayName(ctx, msg))}
	case "status":
		user := r.lookupSender(ctx, msg.From)
		if user == nil {
			return Reply{Intent: IntentStatus, Text: statusUnknownText}
		}
		return Reply{Intent: IntentStatus, Text: fmt.Sprintf(statusKnownText, nameOr(msg.ProfileName, user))}
	}

	if match := complaintIDPattern.FindString(normalized); match != "" {
		id := strings.ToUpper(match)
		return Reply{Intent: IntentComplaintLookup, ComplaintID: id, Text: r.lookupText(ctx, msg.From, id)}
	}

	return Reply{Intent: IntentFallback, Text: fmt.Sprintf(autoReplyText, r.displayName(ctx, msg))}
}

func (r *InboundRouter) lookupText(ctx context.Context, from, complaintID string) string {
	status := ""
	if user := r.lookupSender(ctx, from); user != nil && r.complaints != nil {
		complaint, err := r.complaints.GetByComplaintID(ctx, complaintID)
		switch {
		case err == nil && complaint.CustomerID == user.ID:
			status = fmt.Sprintf("Current status: *%s*\n\n", strings.ReplaceAll(string(complaint.Status), "_", " "))
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			r.logger.Warn("complaint lookup failed", zap.String("complaint_id", complaintID), zap.Error(err))
		}
	}
	return fmt.Sprintf(lookupText, complaintID, status)
}

func (r *InboundRouter) displayName(ctx context.Context, msg InboundMessage) string {
	if msg.ProfileName != "" {
		return msg.ProfileName
	}
	return nameOr("", r.lookupSender(ctx, msg.From))
}

func nameOr(profile string, user *domain.User) string {
	switch {
	case profile != "":
		return profile
	case user != nil && user.Name != "":
		return user.Name
	}
	return "there"
}

// lookupSender finds the account whose phone or WhatsApp number matches.
func (r *InboundRouter) lookupSender(ctx context.Context, from string) *domain.User {
	if r.users == nil || from == "" {
		return nil
	}
	candidates := []string{from}
	if digits := whatsapp.NormalizePhone(from); digits != "" {
		candidates = append(candidates, "+"+digits)
		if digits != from {
			candidates = append(candidates, digits)
		}
	}
	for _, phone := range candidates {
		user, err := r.users.FindByPhone(ctx, phone)
		if err == nil {
			return user
		}
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("sender lookup failed", zap.Error(err))
			return nil
		}
	}
	return nil
}

const (
	helpText = "📞 *How can we help you?*\n\n" +
		"🔹 Submit complaint: Use our app/website\n" +
		"🔹 Check status: Login to your account\n" +
		"🔹 Urgent issues: Reply with *URGENT*\n" +
		"🔹 Speak to agent: Reply with *AGENT*\n\n" +
		"For immediate assistance, you can also email us or call our support line.\n\n" +
		"Thank you! 🙏"

	urgentText = "Hello %s! 🚨\n\n" +
		"For urgent issues, please:\n" +
		"1. Call our emergency hotline\n" +
		"2. Use our app to submit an urgent complaint\n" +
		"3. Or email us with \"URGENT\" in the subject\n\n" +
		"We'll prioritize your request immediately!"

	agentText = "Hello %s! 👨‍💼\n\n" +
		"Connecting you with a human agent...\n\n" +
		"Please note:\n" +
		"• Our agents are available 9 AM - 6 PM\n" +
		"• For immediate assistance, use our app\n" +
		"• You can also email us directly\n\n" +
		"Thank you for your patience!"

	statusKnownText = "Hello %s! 📊\n\n" +
		"To check your complaint status:\n" +
		"1. Open our app/website\n" +
		"2. Login to your account\n" +
		"3. Go to \"My Complaints\"\n\n" +
		"Or provide your complaint ID here and I'll help you check!"

	statusUnknownText = "Hello! 📊\n\n" +
		"To check complaint status, please:\n" +
		"1. Register on our app/website\n" +
		"2. Login to your account\n" +
		"3. View \"My Complaints\"\n\n" +
		"Need help getting started? Just ask!"

	lookupText = "Checking status for complaint %s...\n\n" +
		"%s" +
		"For detailed information, please login to our app/website.\n\n" +
		"Need immediate assistance? Reply with *URGENT*"

	autoReplyText = "Hello %s! 👋\n\n" +
		"Welcome to our Complaint Management System!\n\n" +
		"To submit a complaint, please:\n" +
		"1. Visit our website or app\n" +
		"2. Register/Login to your account\n" +
		"3. Fill out the complaint form\n\n" +
		"Or reply with *HELP* for more assistance.\n\n" +
		"Thank you! 🙏"
)
