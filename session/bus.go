package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/hupe1980/taskmesh/core"
)

// Bus is the in-process pub/sub channel carrying stream frames from the
// orchestration goroutines to stream subscribers. One topic per session.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus constructs an in-process bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

func topic(sessionID string) string { return "session." + sessionID }

// Publish sends a frame to every subscriber of the session's topic. Frames
// are dropped silently when nobody is subscribed.
func (b *Bus) Publish(sessionID string, frame core.StreamFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal stream frame: %w", err)
	}
	return b.pubsub.Publish(topic(sessionID), message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe opens a subscription for one session. The returned channel is
// closed when ctx is cancelled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic(sessionID))
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
