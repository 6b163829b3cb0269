package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"image-batch/internal/config"
	"image-batch/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(cfg config.KafkaConfig, retries retry.Strategy) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Brokers, cfg.JobTopic),
		retries:  retries,
	}
}

// SendJob publishes msg keyed by job id so redeliveries of one job land on
// the same partition.
func (p *ProducerClient) SendJob(ctx context.Context, msg *domain.JobMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}
	return p.producer.SendWithRetry(ctx, p.retries, []byte(msg.JobID), value)
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
