package notifications

import (
	"context"

	"rentcar/pkg/kafka"
	"rentcar/pkg/logger"
	"rentcar/pkg/mailer"
	"rentcar/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Handler consumes notification events and e-mails them.
type Handler struct {
	renderer *Renderer
	sender   mailer.Sender
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(renderer *Renderer, sender mailer.Sender, log *logger.Logger) *Handler {
	return &Handler{
		renderer: renderer,
		sender:   sender,
		validate: validator.New(),
		log:      log,
	}
}

// Handle is a kafka.MessageHandler. Malformed events are permanent failures
// and go to the DLQ, SMTP failures are retried.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var n model.Notification
	if err := msg.DecodeValue(&n); err != nil {
		return kafka.NewPermanentError("failed to decode notification", err)
	}
	if err := h.validate.Struct(&n); err != nil {
		return kafka.NewPermanentError("invalid notification", err)
	}

	email, err := h.renderer.Render(&n)
	if err != nil {
		return kafka.NewPermanentError("failed to render notification", err)
	}

	if err := h.sender.Send(ctx, email); err != nil {
		return kafka.NewTransientError("failed to send notification email", err)
	}

	h.log.Info("Notification sent",
		"notification_id", n.ID,
		"kind", n.Kind,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}
