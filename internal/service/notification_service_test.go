package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/service"
	"github.com/praveenrathi4/complain-app/internal/worker"
)

func withNotifications(t *testing.T, h *harness, sender *MockSender, pool *worker.Pool) {
	t.Helper()
	service.NewNotificationService(h.dispatcher, sender, h.users, pool, nil).RegisterHandlers()
}

func TestCreate_NotificationFailureDoesNotFailCreate(t *testing.T) {
	// Arrange
	h := newHarness(t)
	sender := new(MockSender)
	withNotifications(t, h, sender, nil)
	sender.On("Fanout", mock.Anything, mock.Anything, notify.KindComplaintCreated, mock.Anything).
		Return([]notify.Outcome{{Channel: notify.ChannelEmail, Status: notify.OutcomeFailed, Err: errors.New("smtp down")}})

	// Act
	complaint, err := h.svc.Create(context.Background(), customer, validInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "CMP-202503-0001", complaint.ComplaintID)
	sender.AssertExpectations(t)
}

func TestNotifications_FollowCommunicationPreferences(t *testing.T) {
	tests := []struct {
		name       string
		prefs      domain.Communication
		deliveries []notify.Delivery
	}{
		{
			name:       "email only",
			prefs:      domain.Communication{EmailNotifications: true},
			deliveries: []notify.Delivery{{Channel: notify.ChannelEmail, Recipient: customer.Email}},
		},
		{
			name:  "both channels",
			prefs: domain.Communication{EmailNotifications: true, WhatsAppNotifications: true},
			deliveries: []notify.Delivery{
				{Channel: notify.ChannelEmail, Recipient: customer.Email},
				{Channel: notify.ChannelWhatsApp, Recipient: customer.Phone},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			sender := new(MockSender)
			withNotifications(t, h, sender, nil)
			sender.On("Fanout", mock.Anything, tt.deliveries, notify.KindComplaintCreated,
				mock.MatchedBy(func(d notify.TemplateData) bool {
					return d.RecipientName == customer.Name && d.ComplaintID == "CMP-202503-0001" &&
						d.Status == string(domain.ComplaintStatusPending)
				})).Return([]notify.Outcome{})
			input := validInput()
			prefs := tt.prefs
			input.Communication = &prefs

			_, err := h.svc.Create(context.Background(), customer, input)

			require.NoError(t, err)
			sender.AssertExpectations(t)
		})
	}
}

func TestNotifications_SkippedWhenAllChannelsOff(t *testing.T) {
	h := newHarness(t)
	sender := new(MockSender)
	withNotifications(t, h, sender, nil)
	input := validInput()
	input.Communication = &domain.Communication{}

	complaint, err := h.svc.Create(context.Background(), customer, input)
	require.NoError(t, err)
	_, err = h.svc.UpdateStatus(context.Background(), admin, complaint.ID, domain.ComplaintStatusResolved, "")
	require.NoError(t, err)

	sender.AssertNotCalled(t, "Fanout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifications_StatusChangeCarriesUpdateMessage(t *testing.T) {
	// Arrange
	h := newHarness(t)
	sender := new(MockSender)
	pool := worker.NewPool(2, 8, nil)
	pool.Start()
	withNotifications(t, h, sender, pool)
	sender.On("Fanout", mock.Anything, mock.Anything, notify.KindComplaintCreated, mock.Anything).
		Return([]notify.Outcome{})
	sender.On("Fanout", mock.Anything, mock.Anything, notify.KindComplaintUpdated,
		mock.MatchedBy(func(d notify.TemplateData) bool {
			return d.Status == string(domain.ComplaintStatusInProgress) &&
				d.UpdateMessage == "Status changed from pending to in_progress"
		})).Return([]notify.Outcome{{Channel: notify.ChannelEmail, Status: notify.OutcomeSent}})

	// Act
	complaint, err := h.svc.Create(context.Background(), customer, validInput())
	require.NoError(t, err)
	_, err = h.svc.UpdateStatus(context.Background(), dealer, complaint.ID, domain.ComplaintStatusInProgress, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	// Assert
	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Fanout", 2)
}

func TestNotifications_CommentsDoNotNotify(t *testing.T) {
	h := newHarness(t)
	sender := new(MockSender)
	sender.On("Fanout", mock.Anything, mock.Anything, notify.KindComplaintCreated, mock.Anything).
		Return([]notify.Outcome{})
	withNotifications(t, h, sender, nil)
	complaint := h.create(t, customer)

	_, err := h.svc.AddComment(context.Background(), admin, complaint.ID, "Looking into it", false)

	require.NoError(t, err)
	sender.AssertNumberOfCalls(t, "Fanout", 1)
}
