// Package notify delivers templated messages to customers over independent
// channels. A failing or slow channel never affects another channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/observability"
)

// ChannelName identifies a delivery mechanism.
type ChannelName string

const (
	ChannelEmail    ChannelName = "email"
	ChannelWhatsApp ChannelName = "whatsapp"
)

// TemplateKind selects the message content.
type TemplateKind string

const (
	KindVerification     TemplateKind = "verification"
	KindPasswordReset    TemplateKind = "password_reset"
	KindComplaintCreated TemplateKind = "complaint_created"
	KindComplaintUpdated TemplateKind = "complaint_updated"
)

// TemplateData is the shared rendering context. Every channel renders its own
// content from the same values.
type TemplateData struct {
	RecipientName string
	Code          string
	ComplaintID   string
	Title         string
	Category      string
	Status        string
	Priority      string
	SubmittedAt   time.Time
	UpdateMessage string
}

var (
	// ErrChannelNotConfigured is returned by channels missing credentials.
	ErrChannelNotConfigured = errors.New("channel not configured")
	// ErrUnknownTemplate is returned for a kind a channel cannot render.
	ErrUnknownTemplate = errors.New("unknown template kind")
	// ErrChannelTimeout is reported when a send exceeds its time budget.
	ErrChannelTimeout = errors.New("channel send timed out")
)

// Channel is one concrete delivery mechanism.
type Channel interface {
	Name() ChannelName
	Send(ctx context.Context, recipient string, kind TemplateKind, data TemplateData) error
}

// OutcomeStatus is the result of one delivery attempt.
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Delivery asks for one message on one channel.
type Delivery struct {
	Channel   ChannelName
	Recipient string
}

// Outcome reports what happened to a Delivery.
type Outcome struct {
	Channel ChannelName
	Status  OutcomeStatus
	Err     error
}

// Notifier routes deliveries to channels with a per-channel time budget.
type Notifier struct {
	channels map[ChannelName]Channel
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewNotifier registers channels by name.
func NewNotifier(timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics, channels ...Channel) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		channels: make(map[ChannelName]Channel, len(channels)),
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
	for _, ch := range channels {
		n.channels[ch.Name()] = ch
	}
	return n
}

// Send delivers one message. The returned Outcome is never a panic or a hang:
// sends that exceed the time budget are reported as failed.
func (n *Notifier) Send(ctx context.Context, channel ChannelName, recipient string, kind TemplateKind, data TemplateData) Outcome {
	outcome := n.send(ctx, channel, recipient, kind, data)
	n.metrics.RecordNotification(string(channel), string(kind), string(outcome.Status))
	if outcome.Status == OutcomeFailed {
		n.logger.Warn("notification failed",
			zap.String("channel", string(channel)),
			zap.String("kind", string(kind)),
			zap.Error(outcome.Err))
	}
	return outcome
}

func (n *Notifier) send(ctx context.Context, channel ChannelName, recipient string, kind TemplateKind, data TemplateData) Outcome {
	ch, ok := n.channels[channel]
	if !ok {
		return Outcome{Channel: channel, Status: OutcomeFailed, Err: fmt.Errorf("channel %q not registered", channel)}
	}
	if recipient == "" {
		return Outcome{Channel: channel, Status: OutcomeSkipped}
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("channel %s panicked: %v", channel, r)
			}
		}()
		done <- ch.Send(ctx, recipient, kind, data)
	}()

	select {
	case err := <-done:
		if err != nil {
			return Outcome{Channel: channel, Status: OutcomeFailed, Err: err}
		}
		return Outcome{Channel: channel, Status: OutcomeSent}
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrChannelTimeout
		}
		return Outcome{Channel: channel, Status: OutcomeFailed, Err: err}
	}
}

// Fanout sends the same message on every delivery concurrently and returns
// one Outcome per delivery in input order.
func (n *Notifier) Fanout(ctx context.Context, deliveries []Delivery, kind TemplateKind, data TemplateData) []Outcome {
	outcomes := make([]Outcome, len(deliveries))
	done := make(chan struct{}, len(deliveries))
	for i, d := range deliveries {
		go func(i int, d Delivery) {
			outcomes[i] = n.Send(ctx, d.Channel, d.Recipient, kind, data)
			done <- struct{}{}
		}(i, d)
	}
	for range deliveries {
		<-done
	}
	return outcomes
}
