package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 30 * time.Second

	defaultPublishTimeout = 5 * time.Second
)

// ErrClosed is returned when publishing on a closed Bus.
var ErrClosed = errors.New("eventbus: closed")

// Options tunes a Bus.
type Options struct {
	PublishTimeout time.Duration
}

// Bus publishes JSON event envelopes and runs resilient consumer loops.
type Bus struct {
	pubsub PubSub
	log    zerolog.Logger
	opts   Options

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New creates a Bus over ps.
func New(ps PubSub, log zerolog.Logger, opts Options) *Bus {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	rootCtx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub:  ps,
		log:     log.With().Str("component", "eventbus").Logger(),
		opts:    opts,
		rootCtx: rootCtx,
		cancel:  cancel,
	}
}

// Publish stamps the event header, serializes evt and sends it with topic as routing key.
// The call is bounded by the configured publish timeout.
func (b *Bus) Publish(ctx context.Context, topic string, evt Event) error {
	if b.rootCtx.Err() != nil {
		return ErrClosed
	}

	header := evt.EventHeader()
	if header.EventID == "" {
		header.EventID = uuid.NewString()
	}
	if header.Type == "" {
		header.Type = topic
	}
	if header.Timestamp.IsZero() {
		header.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("eventbus: marshal %s: %w", topic, err)
	}

	msg := &Message{
		UUID:    header.EventID,
		Payload: payload,
		Metadata: map[string]string{
			"event_type": header.Type,
			"timestamp":  header.Timestamp.Format(time.RFC3339Nano),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.PublishTimeout)
	defer cancel()

	if err := b.pubsub.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", topic, err)
	}
	return nil
}

// Delivery is one decoded event awaiting settlement.
type Delivery[T any] struct {
	MessageID string
	Event     T
	msg       *Message
}

// Ack settles the delivery as handled.
func (d Delivery[T]) Ack() { d.msg.Ack() }

// Nack asks the broker to redeliver.
func (d Delivery[T]) Nack() { d.msg.Nack() }

// Subscribe starts a consumer loop for topic and returns decoded deliveries.
// The loop re-subscribes with exponential backoff plus jitter whenever the transport
// fails or its channel closes. Messages that fail to decode or validate are acked and
// dropped. The returned channel is closed when ctx is done or the Bus is closed.
func Subscribe[T any](ctx context.Context, b *Bus, topic string) <-chan Delivery[T] {
	out := make(chan Delivery[T])

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.rootCtx, cancel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer stop()
		defer cancel()

		b.consumerLoop(ctx, topic, func(msg *Message) bool {
			var event T
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("dropping undecodable event")
				msg.Ack()
				return true
			}
			if v, ok := any(&event).(interface{ Validate() error }); ok {
				if err := v.Validate(); err != nil {
					b.log.Error().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("dropping invalid event")
					msg.Ack()
					return true
				}
			}

			select {
			case out <- Delivery[T]{MessageID: msg.UUID, Event: event, msg: msg}:
				return true
			case <-ctx.Done():
				msg.Nack()
				return false
			}
		})
	}()

	return out
}

func (b *Bus) consumerLoop(ctx context.Context, topic string, deliver func(*Message) bool) {
	backoff := baseBackoff

	for {
		msgs, err := b.pubsub.Subscribe(ctx, topic)
		if err != nil {
			wait := backoff + rand.N(backoff/2)
			b.log.Error().Err(err).Str("topic", topic).Int64("retry_in_ms", wait.Milliseconds()).Msg("failed to subscribe to topic, will retry")

			select {
			case <-time.After(wait):
				backoff = min(backoff*2, maxBackoff)
				continue
			case <-ctx.Done():
				return
			}
		}

		backoff = baseBackoff
		b.log.Debug().Str("topic", topic).Msg("starting consuming")

		if !b.drain(ctx, msgs, deliver) {
			return
		}

		b.log.Warn().Str("topic", topic).Msg("subscription closed, re-subscribing")

		select {
		case <-time.After(baseBackoff):
		case <-ctx.Done():
			return
		}
	}
}

// drain forwards messages until the channel closes (true) or ctx ends (false).
func (b *Bus) drain(ctx context.Context, msgs <-chan *Message, deliver func(*Message) bool) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err() == nil
			}
			if !deliver(msg) {
				return false
			}
		}
	}
}

// Close stops all consumer loops, waits for them and closes the transport.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		b.closeErr = b.pubsub.Close()
	})
	return b.closeErr
}
