package eventbus

import (
	"context"
	"maps"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Message is the transport-neutral unit exchanged with a PubSub.
// Ack and Nack settle the underlying broker delivery; they are no-ops on published messages.
type Message struct {
	UUID     string
	Payload  []byte
	Metadata map[string]string

	ack  func() bool
	nack func() bool
}

// Ack confirms the message was handled.
func (m *Message) Ack() {
	if m.ack != nil {
		m.ack()
	}
}

// Nack asks the broker to redeliver the message.
func (m *Message) Nack() {
	if m.nack != nil {
		m.nack()
	}
}

// PubSub is the transport the Bus publishes to and consumes from.
type PubSub interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)
	Close() error
}

// watermillPubSub adapts a watermill publisher/subscriber pair to PubSub.
type watermillPubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewWatermillPubSub creates a PubSub over any watermill transport.
func NewWatermillPubSub(publisher message.Publisher, subscriber message.Subscriber) PubSub {
	return &watermillPubSub{
		publisher:  publisher,
		subscriber: subscriber,
	}
}

// Publish sends msg on topic. watermill publishers do not take a context, so the
// call runs in a goroutine and ctx bounds how long the caller waits.
func (w *watermillPubSub) Publish(ctx context.Context, topic string, msg *Message) error {
	wmMsg := message.NewMessage(msg.UUID, msg.Payload)
	for key, value := range msg.Metadata {
		wmMsg.Metadata.Set(key, value)
	}
	wmMsg.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- w.publisher.Publish(topic, wmMsg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe converts watermill messages into Messages. Settlement is left to the
// receiver: the broker holds the delivery until Ack or Nack is called.
func (w *watermillPubSub) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	wmCh, err := w.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan *Message)
	go func() {
		defer close(out)

		for wmMsg := range wmCh {
			metadata := make(map[string]string, len(wmMsg.Metadata))
			maps.Copy(metadata, wmMsg.Metadata)

			msg := &Message{
				UUID:     wmMsg.UUID,
				Payload:  wmMsg.Payload,
				Metadata: metadata,
				ack:      wmMsg.Ack,
				nack:     wmMsg.Nack,
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				wmMsg.Nack()
				return
			}

			// watermill transports deliver the next message only after this one settles.
			select {
			case <-wmMsg.Acked():
			case <-wmMsg.Nacked():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close closes the publisher and the subscriber.
func (w *watermillPubSub) Close() error {
	pubErr := w.publisher.Close()
	subErr := w.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
