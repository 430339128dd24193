package eventbus

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	ProviderAMQP      = "amqp"
	ProviderGoChannel = "gochannel"

	DefaultExchange = "murmur_events"
)

// ProviderConfig selects and configures the transport behind a Bus.
type ProviderConfig struct {
	Provider string
	AMQPURL  string
	Exchange string
	// InstanceID suffixes queue names so every consumer process gets its own queue.
	InstanceID string
	// BufferSize applies to the gochannel provider only.
	BufferSize int
}

// NewPubSub builds the configured transport.
func NewPubSub(cfg ProviderConfig, logger watermill.LoggerAdapter) (PubSub, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAMQP, "rabbitmq":
		return initAMQP(cfg, logger)
	case ProviderGoChannel, "":
		return initGoChannel(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", cfg.Provider)
	}
}

func initGoChannel(cfg ProviderConfig, logger watermill.LoggerAdapter) PubSub {
	bufferSize := 100
	if cfg.BufferSize > 0 {
		bufferSize = cfg.BufferSize
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(bufferSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return NewWatermillPubSub(pubSub, pubSub)
}

func initAMQP(cfg ProviderConfig, logger watermill.LoggerAdapter) (PubSub, error) {
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("amqp provider requires a broker url")
	}

	amqpConfig := TopicConfig(cfg)

	subscriber, err := amqp.NewSubscriber(amqpConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp subscriber: %w", err)
	}

	publisher, err := amqp.NewPublisher(amqpConfig, logger)
	if err != nil {
		_ = subscriber.Close()
		return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
	}

	return NewWatermillPubSub(publisher, subscriber), nil
}

// TopicConfig describes the broker topology: one non-durable topic exchange shared by
// all services, and an exclusive auto-delete queue per consumer instance bound with
// the topic as routing key. Messages are published non-persistent, so events sent
// while no consumer queue is bound are dropped by the broker.
func TopicConfig(cfg ProviderConfig) amqp.Config {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	c := amqp.NewNonDurablePubSubConfig(cfg.AMQPURL, func(topic string) string {
		return topic + "." + instanceID
	})

	c.Exchange.GenerateName = func(string) string { return exchange }
	c.Exchange.Type = "topic"
	c.Exchange.Durable = false

	c.Queue.Durable = false
	c.Queue.Exclusive = true
	c.Queue.AutoDelete = true

	c.QueueBind.GenerateRoutingKey = func(topic string) string { return topic }
	c.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	return c
}
