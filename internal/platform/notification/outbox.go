package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Intent is a deferred notification send.
type Intent func(ctx context.Context) error

// Outbox collects notification intents during a transactional operation and
// dispatches them only after the transaction has committed. Delivery failures
// are logged and swallowed; they can never roll back or fail the operation
// that enqueued them.
type Outbox struct {
	intents []Intent
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue records an intent for post-commit dispatch.
func (o *Outbox) Enqueue(i Intent) {
	o.intents = append(o.intents, i)
}

// Len returns the number of pending intents.
func (o *Outbox) Len() int {
	return len(o.intents)
}

// Dispatch runs every enqueued intent. Errors are logged, never returned.
func (o *Outbox) Dispatch(ctx context.Context, logger zerolog.Logger) {
	for _, intent := range o.intents {
		if err := intent(ctx); err != nil {
			logger.Error().Err(err).Msg("notification dispatch failed")
		}
	}
	o.intents = nil
}
