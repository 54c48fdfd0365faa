package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentcar/pkg/kafka"
	"rentcar/pkg/logger"
	"rentcar/pkg/middleware"
	"rentcar/pkg/model"

	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Notifier is what the services depend on.
type Notifier interface {
	// Notify hands n to the notification pipeline in the background. Failures
	// are logged and never reach the caller.
	Notify(ctx context.Context, n *model.Notification)
	// Deliver publishes n before returning, for flows that must report delivery errors.
	Deliver(ctx context.Context, n *model.Notification) error
}

type Dispatcher struct {
	publisher Publisher
	source    string
	timeout   time.Duration
	log       *logger.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(publisher Publisher, source string, timeout time.Duration, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		source:    source,
		timeout:   timeout,
		log:       log,
	}
}

func (d *Dispatcher) Deliver(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	msg, err := kafka.NewMessage().
		WithKey(n.To).
		WithValue(n).
		WithEventID(n.ID).
		WithEventType(string(n.Kind)).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSource(d.source).
		Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", n.Kind, err)
	}
	return nil
}

// Notify detaches from the request context so the publish outlives the response.
func (d *Dispatcher) Notify(ctx context.Context, n *model.Notification) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.Deliver(ctx, n); err != nil {
			d.log.Error("Notification dropped",
				"kind", n.Kind,
				"notification_id", n.ID,
				"request_id", middleware.RequestIDFromContext(ctx),
				"error", err,
			)
		}
	}()
}

// Wait blocks until every background notification finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
