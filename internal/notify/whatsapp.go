package notify

import (
	"context"

	"github.com/praveenrathi4/complain-app/internal/whatsapp"
)

// TextSender posts a chat message. *whatsapp.Client satisfies it.
type TextSender interface {
	Configured() bool
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error)
}

// WhatsAppChannel sends emoji formatted text through the Cloud API.
type WhatsAppChannel struct {
	client TextSender
}

// NewWhatsAppChannel wraps a Cloud API client.
func NewWhatsAppChannel(client TextSender) *WhatsAppChannel {
	return &WhatsAppChannel{client: client}
}

func (w *WhatsAppChannel) Name() ChannelName { return ChannelWhatsApp }

func (w *WhatsAppChannel) Send(ctx context.Context, recipient string, kind TemplateKind, data TemplateData) error {
	if w.client == nil || !w.client.Configured() {
		return ErrChannelNotConfigured
	}
	body, err := RenderWhatsApp(kind, data)
	if err != nil {
		return err
	}
	_, err = w.client.SendText(ctx, recipient, body)
	return err
}
