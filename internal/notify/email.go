package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/praveenrathi4/complain-app/internal/config"
)

// MailSender delivers composed messages. *gomail.Dialer satisfies it.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailChannel renders HTML and plaintext bodies and sends them over SMTP.
type EmailChannel struct {
	sender MailSender
	from   string
}

// NewEmailChannel builds the channel from SMTP settings. Without a host the
// channel exists but every send fails with ErrChannelNotConfigured.
func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	ch := &EmailChannel{from: cfg.From}
	if cfg.Configured() {
		ch.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return ch
}

// NewEmailChannelWithSender is used when the transport is supplied directly.
func NewEmailChannelWithSender(sender MailSender, from string) *EmailChannel {
	return &EmailChannel{sender: sender, from: from}
}

func (e *EmailChannel) Name() ChannelName { return ChannelEmail }

func (e *EmailChannel) Send(ctx context.Context, recipient string, kind TemplateKind, data TemplateData) error {
	if e.sender == nil {
		return ErrChannelNotConfigured
	}
	content, err := RenderEmail(kind, data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", e.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", content.Subject)
	msg.SetBody("text/plain", content.Text)
	msg.AddAlternative("text/html", content.HTML)

	if err := e.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
