package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/pkg/logger"
	"realestate/pkg/rabbitmq"
)

// Invalidator drops cached search results.
type Invalidator interface {
	InvalidateSearchCache(ctx context.Context) error
}

var knownActions = map[string]bool{
	models.ActionCreated: true,
	models.ActionUpdated: true,
	models.ActionDeleted: true,
}

// Decode parses a delivery body. Malformed events wrap rabbitmq.ErrReject.
func Decode(body []byte) (models.PropertyEvent, error) {
	var event models.PropertyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("undecodable event: %v: %w", err, rabbitmq.ErrReject)
	}
	if event.PropertyID == "" {
		return event, fmt.Errorf("event without property_id: %w", rabbitmq.ErrReject)
	}
	if !knownActions[event.Action] {
		return event, fmt.Errorf("unknown action %q: %w", event.Action, rabbitmq.ErrReject)
	}
	return event, nil
}

// CacheInvalidationHandler invalidates the search cache for every listing
// event received.
func CacheInvalidationHandler(inv Invalidator) rabbitmq.Handler {
	return func(ctx context.Context, msg amqp.Delivery) error {
		event, err := Decode(msg.Body)
		if err != nil {
			return err
		}

		logger.Log.WithField("action", event.Action).WithField("property_id", event.PropertyID).Debug("received property event")
		observability.EventsTotal.WithLabelValues("consumed", event.Action).Inc()

		if err := inv.InvalidateSearchCache(ctx); err != nil {
			return fmt.Errorf("failed to invalidate search cache: %w", err)
		}
		return nil
	}
}
