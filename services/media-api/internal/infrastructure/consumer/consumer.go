package consumer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	"github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
)

// Cascader handles one post.deleted event.
type Cascader interface {
	Cascade(ctx context.Context, evt *eventbus.PostDeleted) media.CascadeResult
}

// PostDeletedConsumer feeds post.deleted deliveries to a bounded set of cascade handlers.
type PostDeletedConsumer struct {
	bus      *eventbus.Bus
	cascader Cascader
	workers  int
	timeout  time.Duration
	log      zerolog.Logger
}

func NewPostDeletedConsumer(cfg *config.Config, bus *eventbus.Bus, cascader Cascader, log zerolog.Logger) *PostDeletedConsumer {
	workers := cfg.ConsumerWorkers
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.CascadeLockTTL
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostDeletedConsumer{
		bus:      bus,
		cascader: cascader,
		workers:  workers,
		timeout:  timeout,
		log:      log.With().Str("component", "post-deleted-consumer").Logger(),
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight cascades.
// Every delivery is acked once its cascade returns, whatever the per-id outcome.
func (c *PostDeletedConsumer) Run(ctx context.Context) error {
	deliveries := eventbus.Subscribe[eventbus.PostDeleted](ctx, c.bus, eventbus.TopicPostDeleted)
	c.log.Info().Int("workers", c.workers).Str("topic", eventbus.TopicPostDeleted).Msg("consumer started")

	var g errgroup.Group
	g.SetLimit(c.workers)

	for delivery := range deliveries {
		g.Go(func() error {
			c.handle(ctx, delivery)
			return nil
		})
	}

	err := g.Wait()
	c.log.Info().Msg("consumer stopped")
	return err
}

func (c *PostDeletedConsumer) handle(ctx context.Context, delivery eventbus.Delivery[eventbus.PostDeleted]) {
	// In-flight cascades finish during shutdown instead of failing every id.
	cascadeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	evt := delivery.Event
	result := c.cascader.Cascade(cascadeCtx, &evt)
	delivery.Ack()

	if result.Failed > 0 {
		c.log.Warn().
			Str("message_id", delivery.MessageID).
			Str("post_id", evt.PostID).
			Int("failed", result.Failed).
			Msg("cascade finished with failures; event acked without retry")
	}
}
