package eventutil

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewMessage marshals payload into a watermill message carrying the given
// correlation ID. An empty correlationID gets a fresh UUID so downstream logs
// can always be stitched together.
func NewMessage(correlationID string, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID)
	return msg, nil
}

// UnmarshalPayload decodes a message payload into T and returns the message's
// correlation ID alongside it.
func UnmarshalPayload[T any](msg *message.Message) (string, T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return "", payload, fmt.Errorf("failed to unmarshal %T: %w", payload, err)
	}
	return msg.Metadata.Get(middleware.CorrelationIDMetadataKey), payload, nil
}
