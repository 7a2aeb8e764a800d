package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	webhookapp "github.com/YKLee98/naver-sub003/internal/application/webhook"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// Shopify delivery headers
const (
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderHMACSHA256 = "X-Shopify-Hmac-Sha256"
)

// DeliveryHandler is the gateway entry point
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, d webhookapp.Delivery) (*webhook.Outcome, error)
}

// WebhookHandler accepts Shopify deliveries, one route per topic
type WebhookHandler struct {
	BaseHandler
	gateway DeliveryHandler
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(gateway DeliveryHandler) *WebhookHandler {
	return &WebhookHandler{gateway: gateway}
}

// RegisterRoutes mounts the topic endpoints under /webhooks/shopify
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/webhooks/shopify")
	g.POST("/orders/paid", h.topic(webhook.EventOrderPaid))
	g.POST("/orders/cancelled", h.topic(webhook.EventOrderCancelled))
	g.POST("/inventory_levels/update", h.topic(webhook.EventInventoryLevelUpdate))
}

// topic godoc
// @Summary      Receive a Shopify webhook
// @Description  Acknowledges every delivery with 200 except a signature mismatch (401).
// @Description  Processing errors surface only in the recorded outcome and logs.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Shopify-Webhook-Id   header  string  true   "Delivery id used for idempotency"
// @Param        X-Shopify-Hmac-Sha256  header  string  false  "Base64 HMAC-SHA256 of the raw body"
// @Success      200  {object}  dto.Response{data=dto.WebhookAck}
// @Failure      401  {object}  dto.Response
// @Router       /webhooks/shopify/orders/paid [post]
func (h *WebhookHandler) topic(eventType webhook.EventType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ack := dto.WebhookAck{Received: true, EventID: c.GetHeader(HeaderWebhookID)}

		// The signature covers the raw bytes, so read before any binding.
		// An unreadable or oversized body is acknowledged as rejected.
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			ack.Status = webhook.OutcomeRejected
			h.Success(c, ack)
			return
		}

		outcome, err := h.gateway.HandleDelivery(c.Request.Context(), webhookapp.Delivery{
			EventID:   c.GetHeader(HeaderWebhookID),
			EventType: eventType,
			Payload:   body,
			Signature: c.GetHeader(HeaderHMACSHA256),
		})
		if errors.Is(err, shared.ErrSignatureVerification) {
			h.Error(c, http.StatusUnauthorized, dto.ErrCodeSignatureVerification, "webhook signature verification failed")
			return
		}

		if outcome != nil {
			ack.Status = outcome.Status
			ack.Duplicate = outcome.Duplicate
		}
		h.Success(c, ack)
	}
}
