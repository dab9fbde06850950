package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Encode turns a message into the bytes put on the wire. Raw JSON and byte
// slices pass through untouched, anything else is JSON encoded.
func Encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case json.RawMessage:
		return m, nil
	case []byte:
		return m, nil
	default:
		payload, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
		return payload, nil
	}
}

// Consume subscribes to channel and feeds every message to handler until ctx
// ends or the broker closes the subscription. Handler errors are logged and
// do not stop consumption.
func Consume(ctx context.Context, broker Broker, channel string, handler Handler) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to handle message")
			}
		}
	}
}
