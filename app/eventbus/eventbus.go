package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventBus is the publish/subscribe contract shared by services, the sweeper
// and the Discord announcer.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// Bus wraps an in-process watermill GoChannel pub/sub. The bot is a single
// process, so every producer and consumer shares this one channel fabric.
type Bus struct {
	pubSub *gochannel.GoChannel
}

var _ EventBus = (*Bus)(nil)

// New creates the in-process bus.
func New(logger watermill.LoggerAdapter) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
	}
}

// Publish publishes messages to the given topic.
func (b *Bus) Publish(topic string, messages ...*message.Message) error {
	if err := b.pubSub.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of messages for the given topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts the bus down; pending subscribers are drained.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Subscriber exposes the underlying watermill subscriber for router wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubSub
}
