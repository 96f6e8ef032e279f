package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/observability"
)

type MockChannel struct {
	mock.Mock
	name notify.ChannelName
}

func (m *MockChannel) Name() notify.ChannelName { return m.name }

func (m *MockChannel) Send(ctx context.Context, recipient string, kind notify.TemplateKind, data notify.TemplateData) error {
	return m.Called(ctx, recipient, kind, data).Error(0)
}

// blockingChannel never returns until released.
type blockingChannel struct {
	name    notify.ChannelName
	release chan struct{}
}

func (b *blockingChannel) Name() notify.ChannelName { return b.name }

func (b *blockingChannel) Send(context.Context, string, notify.TemplateKind, notify.TemplateData) error {
	<-b.release
	return nil
}

type panickingChannel struct{}

func (panickingChannel) Name() notify.ChannelName { return notify.ChannelWhatsApp }

func (panickingChannel) Send(context.Context, string, notify.TemplateKind, notify.TemplateData) error {
	panic("boom")
}

func TestNotifier_FanoutIsolatesFailures(t *testing.T) {
	// Arrange
	email := &MockChannel{name: notify.ChannelEmail}
	wa := &MockChannel{name: notify.ChannelWhatsApp}
	email.On("Send", mock.Anything, "ann@example.com", notify.KindComplaintCreated, mock.Anything).Return(errors.New("smtp down"))
	wa.On("Send", mock.Anything, "15550102030", notify.KindComplaintCreated, mock.Anything).Return(nil)
	metrics := observability.NewMetrics()
	n := notify.NewNotifier(time.Second, nil, metrics, email, wa)

	// Act
	outcomes := n.Fanout(context.Background(), []notify.Delivery{
		{Channel: notify.ChannelEmail, Recipient: "ann@example.com"},
		{Channel: notify.ChannelWhatsApp, Recipient: "15550102030"},
	}, notify.KindComplaintCreated, notify.TemplateData{ComplaintID: "CMP-202405-0001"})

	// Assert
	require.Len(t, outcomes, 2)
	assert.Equal(t, notify.OutcomeFailed, outcomes[0].Status)
	assert.EqualError(t, outcomes[0].Err, "smtp down")
	assert.Equal(t, notify.OutcomeSent, outcomes[1].Status)
	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Notifications["email|complaint_created|failed"])
	assert.Equal(t, int64(1), snap.Notifications["whatsapp|complaint_created|sent"])
	email.AssertExpectations(t)
	wa.AssertExpectations(t)
}

func TestNotifier_SlowChannelTimesOutAlone(t *testing.T) {
	slow := &blockingChannel{name: notify.ChannelEmail, release: make(chan struct{})}
	defer close(slow.release)
	wa := &MockChannel{name: notify.ChannelWhatsApp}
	wa.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n := notify.NewNotifier(30*time.Millisecond, nil, nil, slow, wa)

	started := time.Now()
	outcomes := n.Fanout(context.Background(), []notify.Delivery{
		{Channel: notify.ChannelEmail, Recipient: "ann@example.com"},
		{Channel: notify.ChannelWhatsApp, Recipient: "15550102030"},
	}, notify.KindComplaintUpdated, notify.TemplateData{})

	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Equal(t, notify.OutcomeFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, notify.ErrChannelTimeout)
	assert.Equal(t, notify.OutcomeSent, outcomes[1].Status)
}

func TestNotifier_EmptyRecipientIsSkipped(t *testing.T) {
	wa := &MockChannel{name: notify.ChannelWhatsApp}
	n := notify.NewNotifier(time.Second, nil, nil, wa)

	outcome := n.Send(context.Background(), notify.ChannelWhatsApp, "", notify.KindComplaintCreated, notify.TemplateData{})

	assert.Equal(t, notify.OutcomeSkipped, outcome.Status)
	wa.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifier_UnknownChannelFails(t *testing.T) {
	n := notify.NewNotifier(time.Second, nil, nil)

	outcome := n.Send(context.Background(), notify.ChannelEmail, "a@b.c", notify.KindVerification, notify.TemplateData{})

	assert.Equal(t, notify.OutcomeFailed, outcome.Status)
	assert.Error(t, outcome.Err)
}

func TestNotifier_PanicBecomesFailure(t *testing.T) {
	n := notify.NewNotifier(time.Second, nil, nil, panickingChannel{})

	outcome := n.Send(context.Background(), notify.ChannelWhatsApp, "1555", notify.KindVerification, notify.TemplateData{})

	assert.Equal(t, notify.OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Err.Error(), "panicked")
}
