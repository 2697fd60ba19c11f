package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/editor-bot/shared/telegram"
	"github.com/gin-gonic/gin"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler receives Telegram updates pushed to the webhook URL
type WebhookHandler struct {
	logger   *slog.Logger
	secret   string
	onUpdate telegram.UpdateHandler
}

func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		logger:   deps.Logger,
		secret:   deps.WebhookSecret,
		onUpdate: deps.OnUpdate,
	}
}

// Receive handles POST /telegram/webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("Rejected webhook call with bad secret", slog.String("ip", c.ClientIP()))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("Invalid webhook payload", slog.String("error", err.Error()))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	// Telegram redelivers on non-2xx, so the update is handled to completion
	// even if the request is dropped.
	h.onUpdate(context.WithoutCancel(c.Request.Context()), update)
	c.Status(http.StatusOK)
}
