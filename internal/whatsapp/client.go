// Package whatsapp talks to the WhatsApp Cloud API and decodes its webhook
// payloads.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/praveenrathi4/complain-app/internal/config"
)

// ErrNotConfigured is returned when no token or phone number id is set.
var ErrNotConfigured = errors.New("whatsapp api not configured")

const defaultTimeout = 10 * time.Second

// Client sends messages through the Cloud API.
type Client struct {
	http          *fasthttp.Client
	baseURL       string
	version       string
	token         string
	phoneNumberID string
}

// NewClient builds a Cloud API client from configuration.
func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		http: &fasthttp.Client{
			Name:                "complaint-service",
			MaxConnsPerHost:     64,
			ReadTimeout:         defaultTimeout,
			WriteTimeout:        defaultTimeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		version:       cfg.APIVersion,
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// Configured reports whether outbound calls can be made.
func (c *Client) Configured() bool {
	return c != nil && c.token != "" && c.phoneNumberID != ""
}

// PhoneNumberID returns the sending phone number id.
func (c *Client) PhoneNumberID() string {
	if c == nil {
		return ""
	}
	return c.phoneNumberID
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type readReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// SendResponse is the subset of the send reply we keep.
type SendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is a non-2xx reply from the Cloud API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api returned %d: %s", e.StatusCode, e.Body)
}

// SendText sends a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               NormalizePhone(to),
		Type:             "text",
		Text:             textBody{Body: body},
	}
	var out SendResponse
	if err := c.post(ctx, msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.post(ctx, readReceipt{MessagingProduct: "whatsapp", Status: "read", MessageID: messageID}, nil)
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
}

func (c *Client) post(ctx context.Context, payload, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode whatsapp payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.messagesURL())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return &APIError{StatusCode: status, Body: string(resp.Body())}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode whatsapp response: %w", err)
		}
	}
	return nil
}

// NormalizePhone strips everything but digits; the Cloud API expects E.164
// without the leading plus.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
