package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"partnersync/internal/webhook"
	"partnersync/pkg/middleware"
	"partnersync/pkg/models"
	"partnersync/pkg/redis"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps the webhook payload read into memory.
const MaxBodyBytes = 1 << 20

// EventDispatcher applies a verified event inline.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event models.IdentityEvent) (models.DispatchResult, error)
}

// EventPublisher hands a verified event to the sync worker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.IdentityEvent) error
}

// DeliveryLedger deduplicates webhook deliveries by svix-id.
type DeliveryLedger interface {
	Claim(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// WebhookHandler receives signed identity-provider webhooks.
// Publisher set means queue mode; otherwise events are dispatched inline.
type WebhookHandler struct {
	Verifier   *webhook.Verifier
	Dispatcher EventDispatcher
	Publisher  EventPublisher
	Ledger     DeliveryLedger

	log *slog.Logger
}

// NewWebhookHandler creates an inline handler. Set Publisher and Ledger as needed.
func NewWebhookHandler(v *webhook.Verifier, d EventDispatcher, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{Verifier: v, Dispatcher: d, log: log.With("component", "webhook")}
}

// HandleClerk godoc
// @Summary      Receive a Clerk webhook
// @Description  Verifies the svix signature and syncs the user into the remote partner directory
// @Tags         webhooks
// @Accept       json
// @Produce      plain
// @Param        svix-id         header  string  true  "Delivery id"
// @Param        svix-timestamp  header  string  true  "Unix seconds"
// @Param        svix-signature  header  string  true  "Space separated v1 signatures"
// @Success      200
// @Failure      400  {string}  string  "verification failed"
// @Failure      500  {string}  string  "sync failed"
// @Router       /api/webhooks/clerk [post]
func (h *WebhookHandler) HandleClerk(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)
	log := h.log.With("correlation_id", correlationID)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		log.Warn("failed to read webhook body", "error", err)
		c.String(http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.Verifier.Verify(body, webhook.HeadersFrom(c.Request.Header))
	if err != nil {
		log.Warn("webhook rejected", "error", err, "event_id", c.GetHeader(webhook.HeaderID))
		c.String(http.StatusBadRequest, rejection(err))
		return
	}
	event.CorrelationID = correlationID
	log = log.With("event_id", event.ID, "type", event.Type)

	ctx := c.Request.Context()
	if h.Ledger != nil {
		claimed, err := h.Ledger.Claim(ctx, event.ID)
		switch {
		case errors.Is(err, redis.ErrInFlight):
			log.Info("delivery already in flight, acknowledging")
			c.Status(http.StatusOK)
			return
		case err != nil:
			log.Warn("delivery ledger unavailable, continuing without dedupe", "error", err)
		case !claimed:
			log.Info("duplicate delivery ignored")
			c.Status(http.StatusOK)
			return
		}
		if err == nil {
			defer h.settle(ctx, log, event.ID, c)
		}
	}

	if h.Publisher != nil {
		if err := h.Publisher.PublishEvent(ctx, event); err != nil {
			log.Error("failed to publish event", "error", err)
			c.String(http.StatusInternalServerError, "failed to queue event")
			return
		}
		log.Info("event queued")
		c.Status(http.StatusOK)
		return
	}

	if _, err := h.Dispatcher.Dispatch(ctx, event); err != nil {
		c.String(http.StatusInternalServerError, "failed to sync user")
		return
	}
	c.Status(http.StatusOK)
}

// settle completes a claimed delivery, or releases it when the request
// failed so the sender's retry is processed.
func (h *WebhookHandler) settle(ctx context.Context, log *slog.Logger, id string, c *gin.Context) {
	ctx = context.WithoutCancel(ctx)
	if c.Writer.Status() == http.StatusOK {
		if err := h.Ledger.Complete(ctx, id); err != nil {
			log.Warn("failed to complete delivery", "error", err)
		}
		return
	}
	if err := h.Ledger.Release(ctx, id); err != nil {
		log.Warn("failed to release delivery", "error", err)
	}
}

func rejection(err error) string {
	switch {
	case errors.Is(err, webhook.ErrMissingHeaders):
		return "missing svix headers"
	case errors.Is(err, webhook.ErrMalformedPayload):
		return "malformed payload"
	default:
		return "invalid signature"
	}
}
