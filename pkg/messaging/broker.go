package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope every published payload travels in.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage marshals payload into an envelope of the given type.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// Consume subscribes to channel and feeds decoded envelopes to handler until
// ctx is cancelled. Handler errors and malformed messages are logged and
// skipped.
func Consume(ctx context.Context, b Broker, channel string, handler func(context.Context, Message) error) error {
	msgs, err := b.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	go func() {
		for raw := range msgs {
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed message")
				continue
			}
			if err := handler(ctx, msg); err != nil {
				log.Error().Err(err).Str("channel", channel).Str("type", msg.Type).Msg("message handler failed")
			}
		}
	}()

	return nil
}
