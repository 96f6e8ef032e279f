package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/api/dto"
	"github.com/praveenrathi4/complain-app/internal/config"
	"github.com/praveenrathi4/complain-app/internal/service"
	"github.com/praveenrathi4/complain-app/internal/whatsapp"
	"github.com/praveenrathi4/complain-app/internal/worker"
)

// WhatsAppHandler serves the Cloud API webhook.
type WhatsAppHandler struct {
	router *service.InboundRouter
	cfg    config.WhatsAppConfig
	pool   *worker.Pool
	logger *zap.Logger
}

// NewWhatsAppHandler constructs handler. With a nil pool inbound messages
// are processed before the webhook is acknowledged.
func NewWhatsAppHandler(router *service.InboundRouter, cfg config.WhatsAppConfig, pool *worker.Pool, logger *zap.Logger) *WhatsAppHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppHandler{router: router, cfg: cfg, pool: pool, logger: logger}
}

// Verify handles GET /whatsapp/webhook.
func (h *WhatsAppHandler) Verify(c *fiber.Ctx) error {
	challenge, err := h.router.VerifyWebhook(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("whatsapp webhook verification failed", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// Webhook handles POST /whatsapp/webhook. The provider retries anything but
// a 200, so the body is always acknowledged.
func (h *WhatsAppHandler) Webhook(c *fiber.Ctx) error {
	payload, err := whatsapp.ParseWebhook(c.Body())
	if err != nil {
		h.logger.Warn("invalid whatsapp webhook body", zap.Error(err))
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	for _, st := range payload.Statuses() {
		h.logger.Debug("whatsapp delivery status",
			zap.String("message_id", st.ID),
			zap.String("status", st.Status))
	}

	if h.pool == nil {
		h.router.HandleWebhook(c.UserContext(), payload)
		return c.Status(fiber.StatusOK).SendString("OK")
	}
	if !h.pool.Submit(func(ctx context.Context) { h.router.HandleWebhook(ctx, payload) }) {
		h.logger.Warn("whatsapp webhook dropped", zap.Int("messages", len(payload.Messages())))
	}
	return c.Status(fiber.StatusOK).SendString("OK")
}

// Config handles GET /whatsapp/config.
func (h *WhatsAppHandler) Config(c *fiber.Ctx) error {
	resp := dto.WhatsAppConfigResponse{
		IsConfigured:  h.cfg.Configured() && h.cfg.VerifyToken != "",
		PhoneNumberID: "Not configured",
	}
	if id := h.cfg.PhoneNumberID; id != "" {
		if len(id) > 10 {
			id = id[:10]
		}
		resp.PhoneNumberID = id + "..."
	}
	return ok(c, fiber.StatusOK, "", resp)
}
