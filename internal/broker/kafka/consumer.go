package kafka

import (
	"context"

	"image-batch/internal/broker"
	"image-batch/internal/config"

	kafka "github.com/segmentio/kafka-go"
	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ConsumerClient struct {
	consumer *wbkafka.Consumer
}

func NewConsumerClient(cfg config.KafkaConfig) *ConsumerClient {
	return &ConsumerClient{
		consumer: wbkafka.NewConsumer(cfg.Brokers, cfg.JobTopic, cfg.GroupID),
	}
}

// Start streams messages into out until ctx is done. out is not closed.
func (c *ConsumerClient) Start(ctx context.Context, out chan<- *broker.Message, strategy retry.Strategy) {
	raw := make(chan kafka.Message, cap(out))
	go c.consumer.StartConsuming(ctx, raw, strategy)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-raw:
				select {
				case out <- fromKafka(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (c *ConsumerClient) Commit(ctx context.Context, msg *broker.Message) error {
	return c.consumer.Commit(ctx, toKafka(msg))
}

func (c *ConsumerClient) Close() error {
	return c.consumer.Close()
}
